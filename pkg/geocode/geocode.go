// Package geocode is a thin client for a Nominatim-compatible geocoding
// endpoint. Best effort only: no retries, no API key, transport-default
// timeouts.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNotFound is returned when the provider has no match for a query.
var ErrNotFound = errors.New("geocode: no result")

// Result is one forward-geocoding match.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client against baseURL, or the public Nominatim
// instance when baseURL is empty.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Nominatim serializes coordinates as strings.
type searchRow struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves a free-text query to the provider's best match.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", "1")

	var rows []searchRow
	if err := c.get(ctx, "/search", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	lat, err := strconv.ParseFloat(rows[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad latitude %q: %w", rows[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(rows[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad longitude %q: %w", rows[0].Lon, err)
	}
	return &Result{Latitude: lat, Longitude: lon, DisplayName: rows[0].DisplayName}, nil
}

// Reverse resolves coordinates to a formatted address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var row struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.get(ctx, "/reverse", q, &row); err != nil {
		return "", err
	}
	if row.DisplayName == "" {
		return "", ErrNotFound
	}
	return row.DisplayName, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode: provider returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geocode: decode response: %w", err)
	}
	return nil
}
