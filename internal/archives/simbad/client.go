// Package simbad resolves target names against the SIMBAD TAP service.
// SIMBAD carries no spectra; it answers who a target is (main identifier,
// coordinates, spectral type) so other archives can be queried precisely.
package simbad

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spectra/internal/votable"
)

// Object is a resolved SIMBAD target.
type Object struct {
	MainID       string
	RA           float64
	Dec          float64
	ObjectType   string
	SpectralType string
}

// Client queries the SIMBAD TAP endpoint.
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

// New creates a SIMBAD client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("simbad base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ErrNotResolved reports that SIMBAD knows no object by the queried name.
var ErrNotResolved = errors.New("simbad could not resolve target")

// Resolve looks a target name up by identifier and returns the matched
// object.
func (c *Client) Resolve(ctx context.Context, name string) (*Object, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("target name must not be empty")
	}

	// ADQL string literals escape quotes by doubling them.
	escaped := strings.ReplaceAll(name, "'", "''")
	query := fmt.Sprintf(
		"SELECT basic.main_id, basic.ra, basic.dec, basic.otype_txt, basic.sp_type "+
			"FROM basic JOIN ident ON ident.oidref = basic.oid "+
			"WHERE ident.id = '%s'", escaped)

	table, err := c.sync(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("no match for %q: %w", name, ErrNotResolved)
	}

	ra, err := table.FloatColumn("ra")
	if err != nil {
		return nil, fmt.Errorf("simbad response: %w", err)
	}
	dec, err := table.FloatColumn("dec")
	if err != nil {
		return nil, fmt.Errorf("simbad response: %w", err)
	}
	mainID, _ := table.Column("main_id")
	otype, _ := table.Column("otype_txt")
	spType, _ := table.Column("sp_type")

	obj := &Object{MainID: first(mainID), RA: ra[0], Dec: dec[0]}
	obj.ObjectType = first(otype)
	obj.SpectralType = first(spType)
	return obj, nil
}

// sync runs a synchronous TAP query and parses the VOTable answer.
func (c *Client) sync(ctx context.Context, adql string) (*votable.Table, error) {
	params := url.Values{}
	params.Set("request", "doQuery")
	params.Set("lang", "adql")
	params.Set("format", "votable")
	params.Set("query", adql)

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
		return nil, fmt.Errorf("simbad tap returned %d (latency=%v)", resp.StatusCode, latency)
	}
	table, err := votable.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("simbad response: %w", err)
	}
	return table, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
