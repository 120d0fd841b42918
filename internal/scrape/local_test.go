package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalScraper_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "TonasketDirectoryBot")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	rec, err := NewLocalScraper(0).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "joe@bakery.com", rec.Email)
}

func TestLocalScraper_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0).Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestLocalScraper_UnreachableHost(t *testing.T) {
	s := NewLocalScraper(time.Second)
	_, err := s.Scrape(context.Background(), "http://127.0.0.1:1")
	assert.Error(t, err)
}

func TestLocalScraper_EmptyURL(t *testing.T) {
	_, err := NewLocalScraper(0).Scrape(context.Background(), "")
	assert.Error(t, err)
}

func TestLocalScraper_NonHTMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0).Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute, time.Minute)
	assert.False(t, cb.isOpen())
	cb.recordFailure()
	cb.recordFailure()
	assert.False(t, cb.isOpen())
	cb.recordFailure()
	assert.True(t, cb.isOpen())
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute, time.Minute)
	cb.recordFailure()
	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()
	assert.False(t, cb.isOpen())
}
