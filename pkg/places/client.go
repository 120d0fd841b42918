// Package places queries the Google Places API (v1) for business details.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/okanogan-digital/directory-cli/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask limits the response to the fields the merger consumes.
const fieldMask = "places.displayName,places.formattedAddress,places.nationalPhoneNumber," +
	"places.websiteUri,places.rating,places.types,places.photos,places.location," +
	"places.regularOpeningHours.weekdayDescriptions"

// Client performs Places API operations.
type Client interface {
	// FindByNameAddress searches for a business by name near an address.
	// Returns nil, nil when nothing plausible is found.
	FindByNameAddress(ctx context.Context, name, address string) (*Place, error)
	// PhotoURL resolves a photo resource name to a fetchable media URL.
	PhotoURL(photoName string, maxWidthPx int) string
}

// Place is a place returned by text search.
type Place struct {
	DisplayName      DisplayName   `json:"displayName"`
	FormattedAddress string        `json:"formattedAddress"`
	NationalPhone    string        `json:"nationalPhoneNumber"`
	WebsiteURI       string        `json:"websiteUri"`
	Rating           float64       `json:"rating"`
	Types            []string      `json:"types"`
	Photos           []Photo       `json:"photos"`
	Location         *LatLng       `json:"location"`
	OpeningHours     *OpeningHours `json:"regularOpeningHours"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// Photo is a photo resource reference.
type Photo struct {
	Name string `json:"name"`
}

// LatLng is a geographic point.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OpeningHours carries the human-readable weekly schedule.
type OpeningHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps request throughput.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize,omitempty"`
}

type textSearchResponse struct {
	Places []Place `json:"places"`
}

func (c *httpClient) FindByNameAddress(ctx context.Context, name, address string) (*Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit wait")
	}

	query := name
	if address != "" {
		query += " " + address
	}
	body, err := json.Marshal(textSearchRequest{TextQuery: query, PageSize: 1})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	result, err := resilience.DoVal(ctx, c.retry, "places.text_search", func(ctx context.Context) (*textSearchResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "places: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", fieldMask)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "places: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "places: read response")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		var out textSearchResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, eris.Wrap(err, "places: unmarshal response")
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Places) == 0 {
		return nil, nil
	}
	return &result.Places[0], nil
}

// PhotoURL builds the media URL for a photo resource name. The API key
// travels in the URL per the Places photo media contract.
func (c *httpClient) PhotoURL(photoName string, maxWidthPx int) string {
	if photoName == "" {
		return ""
	}
	if maxWidthPx <= 0 {
		maxWidthPx = 800
	}
	return fmt.Sprintf("%s/%s/media?maxWidthPx=%d&key=%s", c.baseURL, photoName, maxWidthPx, c.apiKey)
}
