// Package nist queries the NIST Atomic Spectra Database for emission and
// absorption line lists. The ASD answers tab-delimited text; the client
// parses it into typed lines in nanometers.
package nist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Line is one spectral line of a species.
type Line struct {
	Species           string  `json:"species"`
	WavelengthNm      float64 `json:"wavelength_nm"`
	RelativeIntensity string  `json:"relative_intensity,omitempty"`
	TransitionProb    float64 `json:"transition_probability,omitempty"`
	LowerLevel        string  `json:"lower_level,omitempty"`
	UpperLevel        string  `json:"upper_level,omitempty"`
}

// Client queries the ASD lines form endpoint.
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

// New creates a NIST ASD client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("nist base url required")
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

// FetchLines retrieves the line list for a species ("H I", "Fe II") between
// two wavelengths in nanometers.
func (c *Client) FetchLines(ctx context.Context, species string, lowNm, highNm float64) ([]Line, error) {
	species = strings.TrimSpace(species)
	if species == "" {
		return nil, errors.New("species must not be empty")
	}
	if lowNm <= 0 || highNm <= lowNm {
		return nil, fmt.Errorf("invalid wavelength window [%g, %g]", lowNm, highNm)
	}

	params := url.Values{}
	params.Set("spectra", species)
	params.Set("low_w", strconv.FormatFloat(lowNm, 'f', -1, 64))
	params.Set("upp_w", strconv.FormatFloat(highNm, 'f', -1, 64))
	params.Set("unit", "1")   // nanometers
	params.Set("format", "3") // tab-delimited
	params.Set("remove_js", "on")
	params.Set("line_out", "0")
	params.Set("intens_out", "on")
	params.Set("A_out", "on")
	params.Set("enrg_out", "on")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/lines1.pl?"+params.Encode(), nil)
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
		return nil, fmt.Errorf("nist asd returned %d (latency=%v)", resp.StatusCode, latency)
	}

	lines, err := parseLines(resp, species)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// parseLines reads the tab-delimited ASD table. Column names vary with
// query options, so columns are located by substring.
func parseLines(resp *http.Response, species string) ([]Line, error) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var header []string
	wlIdx, intensIdx, akiIdx, lowerIdx, upperIdx := -1, -1, -1, -1, -1
	var out []Line

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.Trim(strings.TrimSpace(fields[i]), "\"=")
		}
		if header == nil {
			header = fields
			for i, name := range header {
				lower := strings.ToLower(name)
				switch {
				case wlIdx < 0 && strings.Contains(lower, "wl"):
					wlIdx = i
				case intensIdx < 0 && strings.Contains(lower, "intens"):
					intensIdx = i
				case akiIdx < 0 && strings.Contains(lower, "aki"):
					akiIdx = i
				case lowerIdx < 0 && strings.Contains(lower, "lower"):
					lowerIdx = i
				case upperIdx < 0 && strings.Contains(lower, "upper"):
					upperIdx = i
				}
			}
			if wlIdx < 0 {
				return nil, fmt.Errorf("nist response has no wavelength column (header %v)", header)
			}
			continue
		}
		if wlIdx >= len(fields) {
			continue
		}
		wl, err := strconv.ParseFloat(fields[wlIdx], 64)
		if err != nil {
			// Unobserved lines leave the wavelength cell blank.
			continue
		}
		entry := Line{Species: species, WavelengthNm: wl}
		if intensIdx >= 0 && intensIdx < len(fields) {
			entry.RelativeIntensity = fields[intensIdx]
		}
		if akiIdx >= 0 && akiIdx < len(fields) {
			if aki, err := strconv.ParseFloat(fields[akiIdx], 64); err == nil {
				entry.TransitionProb = aki
			}
		}
		if lowerIdx >= 0 && lowerIdx < len(fields) {
			entry.LowerLevel = fields[lowerIdx]
		}
		if upperIdx >= 0 && upperIdx < len(fields) {
			entry.UpperLevel = fields[upperIdx]
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan nist response: %w", err)
	}
	return out, nil
}
