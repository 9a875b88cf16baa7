// Package mast fetches CALSPEC flux standards from the MAST reference
// atlas area. CALSPEC files are plain HTTPS downloads keyed by a star
// alias, so the client is a resolver table plus a download.
package mast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spectra/internal/archives"
	"spectra/internal/identification"
)

// calspecFiles maps canonical target names to their current CALSPEC
// product. STIS products are preferred where several exist.
var calspecFiles = map[string]string{
	"vega":        "alpha_lyr_stis_011.fits",
	"alpha lyr":   "alpha_lyr_stis_011.fits",
	"sirius":      "sirius_stis_005.fits",
	"alpha cma":   "sirius_stis_005.fits",
	"bd+17 4708":  "bd_17d4708_stisnic_007.fits",
	"bd+28 4211":  "bd_28d4211_stis_008.fits",
	"bd+33 2642":  "bd_33d2642_fos_003.fits",
	"feige 34":    "feige34_stis_007.fits",
	"feige 66":    "feige66_stis_004.fits",
	"feige 110":   "feige110_stisnic_008.fits",
	"g 191-b2b":   "g191b2b_stisnic_008.fits",
	"g191-b2b":    "g191b2b_stisnic_008.fits",
	"gd 71":       "gd71_stisnic_008.fits",
	"gd 153":      "gd153_stisnic_008.fits",
	"hz 43":       "hz43_stis_007.fits",
	"hz 44":       "hz44_stis_008.fits",
	"grw+70 5824": "grw_70d5824_stisnic_007.fits",
	"p330e":       "p330e_stisnic_008.fits",
	"ksi2 cet":    "ksi2ceti_stis_008.fits",
	"lds749b":     "lds749b_stisnic_008.fits",
	"10 lac":      "10lac_stis_009.fits",
	"mu col":      "mucol_stis_009.fits",
	"lam lep":     "lamlep_stis_009.fits",
}

// Client downloads CALSPEC spectra.
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

// New creates a MAST CALSPEC client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("mast base url required")
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
func (c *Client) Name() string { return "mast" }

// Resolve returns the CALSPEC file name for a target, or false when the
// target is not a known flux standard.
func Resolve(target string) (string, bool) {
	file, ok := calspecFiles[identification.CanonicalTarget(target)]
	return file, ok
}

// Fetch downloads the CALSPEC product for a target.
func (c *Client) Fetch(ctx context.Context, target string) (*archives.Product, error) {
	file, ok := Resolve(target)
	if !ok {
		return nil, fmt.Errorf("%q is not a known calspec standard: %w", target, archives.ErrNoProduct)
	}
	return c.FetchFile(ctx, target, file)
}

// FetchFile downloads a named CALSPEC file.
func (c *Client) FetchFile(ctx context.Context, target, file string) (*archives.Product, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, errors.New("file name must not be empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+file, nil)
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

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("calspec file %s missing (latency=%v): %w", file, latency, archives.ErrNoProduct)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mast download returned %d (latency=%v)", resp.StatusCode, latency)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<20))
	if err != nil {
		return nil, fmt.Errorf("read calspec payload: %w", err)
	}
	return &archives.Product{
		Archive:     c.Name(),
		Target:      target,
		Query:       map[string]string{"file": file},
		FileName:    file,
		Format:      string(identification.FormatFITS),
		Data:        data,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
