package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/okanogan-digital/directory-cli/internal/model"
	"github.com/okanogan-digital/directory-cli/internal/normalize"
)

// maxBodyBytes bounds how much of a page is read. Small-town business
// sites are rarely large; anything past this is images and scripts.
const maxBodyBytes = 512 * 1024

// circuitBreaker tracks consecutive failures so a dead or hostile site
// doesn't slow every remaining business in the batch.
type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	openUntil   time.Time
	threshold   int
	window      time.Duration
	cooldown    time.Duration
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, window: window, cooldown: cooldown}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Now().Before(cb.openUntil)
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	if now.Sub(cb.lastFailure) > cb.window {
		cb.failures = 0
	}
	cb.failures++
	cb.lastFailure = now
	if cb.failures >= cb.threshold {
		cb.openUntil = now.Add(cb.cooldown)
		zap.L().Warn("scrape: circuit breaker opened",
			zap.Int("failures", cb.failures),
			zap.Duration("cooldown", cb.cooldown),
		)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

// LocalScraper fetches HTML via net/http and extracts fields with no
// external service. Includes a circuit breaker: 5 consecutive failures
// within 60s pauses scraping for 2 minutes.
type LocalScraper struct {
	client  *http.Client
	breaker *circuitBreaker
}

// NewLocalScraper creates a LocalScraper with bounded timeouts.
func NewLocalScraper(timeout time.Duration) *LocalScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		breaker: newCircuitBreaker(5, time.Minute, 2*time.Minute),
	}
}

func (l *LocalScraper) Name() string { return "local_http" }

// Scrape fetches the URL and extracts business fields from the HTML. A
// malformed or unreachable URL yields an error the caller treats as "no
// data"; nothing here is fatal to the pipeline.
func (l *LocalScraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedRecord, error) {
	if l.breaker.isOpen() {
		return nil, eris.New("local_http: circuit open")
	}

	target := normalize.Website(rawURL)
	if target == "" {
		return nil, eris.New("local_http: empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TonasketDirectoryBot/1.0)")

	resp, err := l.client.Do(req)
	if err != nil {
		l.breaker.recordFailure()
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		l.breaker.recordFailure()
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if resp.StatusCode >= 400 {
		l.breaker.recordFailure()
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text") {
		return nil, eris.Errorf("local_http: not a page (%s)", ct)
	}

	l.breaker.recordSuccess()
	rec := Extract(string(body))
	if rec == nil {
		return nil, nil
	}
	return rec, nil
}
