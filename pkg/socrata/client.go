// Package socrata queries the Washington business licensing dataset on
// the state open-data portal (SODA API).
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
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

const (
	defaultBaseURL = "https://data.wa.gov"
	defaultDataset = "7xux-kdpf"
)

// License is one business licensing row.
type License struct {
	LicenseNumber   string `json:"license_number,omitempty"`
	BusinessName    string `json:"business_name"`
	LocationName    string `json:"location_name,omitempty"`
	LocationAddress string `json:"location_address,omitempty"`
	BusinessAddress string `json:"business_address,omitempty"`
	City            string `json:"location_city,omitempty"`
	State           string `json:"location_state,omitempty"`
	Zip             string `json:"location_zip,omitempty"`
	Phone           string `json:"phone,omitempty"`
	LicenseStatus   string `json:"license_status,omitempty"`
	LicenseType     string `json:"license_type,omitempty"`
	FirstIssueDate  string `json:"first_issuance_date,omitempty"`
}

// Client performs SODA dataset queries.
type Client interface {
	// FetchByZip returns active licenses registered in a ZIP code.
	FetchByZip(ctx context.Context, zip string, limit int) ([]License, error)
	// SearchByKey looks up one license by license number; nil, nil on miss.
	SearchByKey(ctx context.Context, licenseNumber string) (*License, error)
	// SearchByName searches licenses by business name.
	SearchByName(ctx context.Context, name string, limit int) ([]License, error)
	// SearchByLocation searches licenses by city.
	SearchByLocation(ctx context.Context, city string, limit int) ([]License, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the portal base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithDataset overrides the dataset identifier.
func WithDataset(id string) Option {
	return func(c *httpClient) { c.dataset = id }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps request throughput. Unauthenticated SODA access is
// throttled aggressively upstream, so the default stays conservative.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	appToken string
	baseURL  string
	dataset  string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a Socrata client. The app token may be empty for
// anonymous access.
func NewClient(appToken string, opts ...Option) Client {
	c := &httpClient{
		appToken: appToken,
		baseURL:  defaultBaseURL,
		dataset:  defaultDataset,
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(2), 2),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FetchByZip(ctx context.Context, zip string, limit int) ([]License, error) {
	q := url.Values{}
	q.Set("$where", fmt.Sprintf("location_zip = '%s' AND license_status = 'Active'", escape(zip)))
	q.Set("$limit", strconv.Itoa(limit))
	return c.query(ctx, "fetch_by_zip", q)
}

func (c *httpClient) SearchByKey(ctx context.Context, licenseNumber string) (*License, error) {
	q := url.Values{}
	q.Set("license_number", licenseNumber)
	q.Set("$limit", "1")
	rows, err := c.query(ctx, "search_by_key", q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *httpClient) SearchByName(ctx context.Context, name string, limit int) ([]License, error) {
	q := url.Values{}
	q.Set("$where", fmt.Sprintf("upper(business_name) like '%%%s%%'", escape(strings.ToUpper(name))))
	q.Set("$limit", strconv.Itoa(limit))
	return c.query(ctx, "search_by_name", q)
}

func (c *httpClient) SearchByLocation(ctx context.Context, city string, limit int) ([]License, error) {
	q := url.Values{}
	q.Set("$where", fmt.Sprintf("upper(location_city) = '%s'", escape(strings.ToUpper(city))))
	q.Set("$limit", strconv.Itoa(limit))
	return c.query(ctx, "search_by_location", q)
}

func (c *httpClient) query(ctx context.Context, op string, params url.Values) ([]License, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "socrata: rate limit wait")
	}

	endpoint := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, c.dataset, params.Encode())

	return resilience.DoVal(ctx, c.retry, "socrata."+op, func(ctx context.Context) ([]License, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrap(err, "socrata: create request")
		}
		req.Header.Set("Accept", "application/json")
		if c.appToken != "" {
			req.Header.Set("X-App-Token", c.appToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "socrata: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "socrata: read response")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("socrata: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		var rows []License
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, eris.Wrap(err, "socrata: unmarshal response")
		}
		return rows, nil
	})
}

// escape doubles single quotes for SoQL string literals.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
