// Package yelp queries the Yelp Fusion API for business listings and
// review data.
package yelp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/okanogan-digital/directory-cli/internal/resilience"
)

const defaultBaseURL = "https://api.yelp.com/v3"

// Category is a Yelp business category.
type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// Location holds a business's address fields.
type Location struct {
	DisplayAddress []string `json:"display_address"`
	City           string   `json:"city"`
	ZipCode        string   `json:"zip_code"`
}

// Coordinates is a lat/lng pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HoursBlock is one day's open interval from business details.
type HoursBlock struct {
	Day   int    `json:"day"` // 0 = Monday
	Start string `json:"start"`
	End   string `json:"end"`
}

// Hours is a business's operating schedule.
type Hours struct {
	Open []HoursBlock `json:"open"`
}

// Business is a Yelp business record.
type Business struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	DisplayPhone string       `json:"display_phone"`
	Rating       float64      `json:"rating"`
	ImageURL     string       `json:"image_url"`
	Photos       []string     `json:"photos"`
	Categories   []Category   `json:"categories"`
	Location     Location     `json:"location"`
	Coordinates  *Coordinates `json:"coordinates"`
	Hours        []Hours      `json:"hours"`
}

// Client performs Yelp Fusion API operations.
type Client interface {
	// Search finds businesses matching a term near a location.
	Search(ctx context.Context, term, location string, limit int) ([]Business, error)
	// Details fetches the full record (photos, hours) for a business ID.
	Details(ctx context.Context, id string) (*Business, error)
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

// WithRateLimit caps request throughput. Fusion's free tier allows 5000
// calls/day, so the default keeps bursts short.
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

// NewClient creates a Yelp Fusion client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	Businesses []Business `json:"businesses"`
}

func (c *httpClient) Search(ctx context.Context, term, location string, limit int) ([]Business, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("location", location)
	q.Set("limit", strconv.Itoa(limit))

	var out searchResponse
	if err := c.get(ctx, "search", "/businesses/search?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Businesses, nil
}

func (c *httpClient) Details(ctx context.Context, id string) (*Business, error) {
	var out Business
	if err := c.get(ctx, "details", "/businesses/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, op, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "yelp: rate limit wait")
	}

	return resilience.Do(ctx, c.retry, "yelp."+op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return eris.Wrap(err, "yelp: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "yelp: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "yelp: read response")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("yelp: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrap(err, "yelp: unmarshal response")
		}
		return nil
	})
}

// weekdayNames translates Fusion's day indexes (0 = Monday).
var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// FlattenHours converts a details response's hours into a day -> interval
// map with times rendered as "H:MM AM - H:MM PM".
func FlattenHours(hours []Hours) map[string]string {
	if len(hours) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, block := range hours[0].Open {
		if block.Day < 0 || block.Day >= len(weekdayNames) {
			continue
		}
		day := weekdayNames[block.Day]
		interval := formatClock(block.Start) + " - " + formatClock(block.End)
		if existing, ok := out[day]; ok {
			out[day] = existing + ", " + interval
			continue
		}
		out[day] = interval
	}
	return out
}

// formatClock renders Fusion's "HHMM" strings as "H:MM AM/PM".
func formatClock(hhmm string) string {
	if len(hhmm) != 4 {
		return hhmm
	}
	hour, err := strconv.Atoi(hhmm[:2])
	if err != nil {
		return hhmm
	}
	minute := hhmm[2:]
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return strings.TrimSpace(strconv.Itoa(hour) + ":" + minute + " " + suffix)
}
