// Package eso queries the ESO archive TAP service for reduced spectral
// products and downloads them by access URL.
package eso

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spectra/internal/archives"
	"spectra/internal/identification"
	"spectra/internal/votable"
)

// ProductInfo is one row of the ivoa.obscore product listing.
type ProductInfo struct {
	DpID       string
	Instrument string
	AccessURL  string
}

// Client talks to the ESO TAP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an ESO archive client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("eso base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ archives.Fetcher = (*Client)(nil)

// Name implements archives.Fetcher.
func (c *Client) Name() string { return "eso" }

// SearchProducts lists reduced spectra whose target name matches.
func (c *Client) SearchProducts(ctx context.Context, target string) ([]ProductInfo, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target name must not be empty")
	}
	escaped := strings.ReplaceAll(identification.CanonicalTarget(target), "'", "''")
	query := fmt.Sprintf(
		"SELECT TOP 10 dp_id, instrument_name, access_url FROM ivoa.obscore "+
			"WHERE dataproduct_type = 'spectrum' AND LOWER(target_name) = '%s' "+
			"ORDER BY t_min DESC", escaped)

	params := url.Values{}
	params.Set("request", "doQuery")
	params.Set("lang", "adql")
	params.Set("format", "votable")
	params.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/sync", strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eso tap returned %d (latency=%v)", resp.StatusCode, latency)
	}
	table, err := votable.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eso response: %w", err)
	}

	ids, err := table.Column("dp_id")
	if err != nil {
		return nil, fmt.Errorf("eso response: %w", err)
	}
	instruments, _ := table.Column("instrument_name")
	urls, err := table.Column("access_url")
	if err != nil {
		return nil, fmt.Errorf("eso response: %w", err)
	}

	out := make([]ProductInfo, 0, len(ids))
	for i := range ids {
		info := ProductInfo{DpID: ids[i], AccessURL: urls[i]}
		if i < len(instruments) {
			info.Instrument = instruments[i]
		}
		out = append(out, info)
	}
	return out, nil
}

// Download retrieves one product by its access URL.
func (c *Client) Download(ctx context.Context, target string, info ProductInfo) (*archives.Product, error) {
	if strings.TrimSpace(info.AccessURL) == "" {
		return nil, errors.New("product has no access url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.AccessURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eso download returned %d (latency=%v)", resp.StatusCode, latency)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<20))
	if err != nil {
		return nil, fmt.Errorf("read product payload: %w", err)
	}
	return &archives.Product{
		Archive:     c.Name(),
		Target:      target,
		Query:       map[string]string{"dp_id": info.DpID},
		FileName:    info.DpID + ".fits",
		Format:      string(identification.FormatFITS),
		Data:        data,
		RetrievedAt: time.Now().UTC(),
	}, nil
}

// Fetch downloads the most recent reduced spectrum for a target.
func (c *Client) Fetch(ctx context.Context, target string) (*archives.Product, error) {
	products, err := c.SearchProducts(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no reduced spectra for %q: %w", target, archives.ErrNoProduct)
	}
	return c.Download(ctx, target, products[0])
}
