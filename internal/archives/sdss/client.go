// Package sdss queries SDSS SkyServer for optical spectra. Positional
// search goes through the SkyServerWS SQL endpoint; the FITS product itself
// comes from the science archive server.
package sdss

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spectra/internal/archives"
	"spectra/internal/identification"
)

// defaultSpectrumBaseURL is the DR17 science archive endpoint serving
// individual spectra as FITS.
const defaultSpectrumBaseURL = "https://dr17.sdss.org/optical/spectrum/view/data/format=fits/spec=lite"

// SpecInfo identifies one SDSS spectrum.
type SpecInfo struct {
	SpecObjID string  `json:"specObjID"`
	Plate     int     `json:"plate"`
	MJD       int     `json:"mjd"`
	FiberID   int     `json:"fiberID"`
	Class     string  `json:"class"`
	Redshift  float64 `json:"z"`
}

// Resolver supplies coordinates for a target name. SDSS search is
// positional, so name resolution is delegated.
type Resolver interface {
	ResolveCoordinates(ctx context.Context, name string) (ra, dec float64, err error)
}

// Client talks to SkyServer and the science archive.
type Client struct {
	baseURL         string
	spectrumBaseURL string
	httpClient      *http.Client
	resolver        Resolver
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

// WithSpectrumBaseURL overrides the science archive endpoint.
func WithSpectrumBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(base); trimmed != "" {
			c.spectrumBaseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithResolver sets the name-to-coordinates resolver used by Fetch.
func WithResolver(r Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

// New creates an SDSS client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("sdss base url required")
	}
	client := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		spectrumBaseURL: defaultSpectrumBaseURL,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ archives.Fetcher = (*Client)(nil)

// Name implements archives.Fetcher.
func (c *Client) Name() string { return "sdss" }

// SearchNearest finds the closest spectrum within radiusArcmin of the given
// position.
func (c *Client) SearchNearest(ctx context.Context, ra, dec, radiusArcmin float64) (*SpecInfo, error) {
	if radiusArcmin <= 0 {
		radiusArcmin = 1
	}
	sql := fmt.Sprintf(
		"SELECT TOP 1 s.specObjID, s.plate, s.mjd, s.fiberID, s.class, s.z "+
			"FROM specObj s JOIN dbo.fGetNearbySpecObjEq(%.6f, %.6f, %.4f) n ON s.specObjID = n.specObjID "+
			"ORDER BY n.distance", ra, dec, radiusArcmin)

	params := url.Values{}
	params.Set("cmd", sql)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/SearchTools/SqlSearch?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("sdss search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	// SkyServer wraps result sets in a list of named tables.
	var payload []struct {
		TableName string     `json:"TableName"`
		Rows      []SpecInfo `json:"Rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sdss response: %w", err)
	}
	for _, tbl := range payload {
		if len(tbl.Rows) > 0 {
			info := tbl.Rows[0]
			return &info, nil
		}
	}
	return nil, fmt.Errorf("no spectrum within %.2f arcmin of (%.4f, %.4f): %w",
		radiusArcmin, ra, dec, archives.ErrNoProduct)
}

// FetchSpectrum downloads the FITS product for a plate/mjd/fiber triple.
func (c *Client) FetchSpectrum(ctx context.Context, target string, info *SpecInfo) (*archives.Product, error) {
	if info == nil {
		return nil, errors.New("spectrum info required")
	}
	params := url.Values{}
	params.Set("plateid", fmt.Sprintf("%d", info.Plate))
	params.Set("mjd", fmt.Sprintf("%d", info.MJD))
	params.Set("fiberid", fmt.Sprintf("%d", info.FiberID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.spectrumBaseURL+"?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("spectrum %d-%d-%d missing (latency=%v): %w",
			info.Plate, info.MJD, info.FiberID, latency, archives.ErrNoProduct)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sdss download returned %d (latency=%v)", resp.StatusCode, latency)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<20))
	if err != nil {
		return nil, fmt.Errorf("read spectrum payload: %w", err)
	}
	return &archives.Product{
		Archive: c.Name(),
		Target:  target,
		Query: map[string]string{
			"plate": fmt.Sprintf("%d", info.Plate),
			"mjd":   fmt.Sprintf("%d", info.MJD),
			"fiber": fmt.Sprintf("%d", info.FiberID),
		},
		FileName:    fmt.Sprintf("spec-%04d-%d-%04d.fits", info.Plate, info.MJD, info.FiberID),
		Format:      string(identification.FormatFITS),
		Data:        data,
		RetrievedAt: time.Now().UTC(),
	}, nil
}

// Fetch resolves a target name to coordinates and downloads the nearest
// spectrum.
func (c *Client) Fetch(ctx context.Context, target string) (*archives.Product, error) {
	if c.resolver == nil {
		return nil, errors.New("sdss fetch by name requires a coordinate resolver")
	}
	ra, dec, err := c.resolver.ResolveCoordinates(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", target, err)
	}
	info, err := c.SearchNearest(ctx, ra, dec, 1)
	if err != nil {
		return nil, err
	}
	return c.FetchSpectrum(ctx, target, info)
}
