package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanogan-digital/directory-cli/internal/config"
	"github.com/okanogan-digital/directory-cli/internal/model"
	"github.com/okanogan-digital/directory-cli/internal/pipeline"
	"github.com/okanogan-digital/directory-cli/internal/store"
)

func newTestEnv(t *testing.T) (http.Handler, store.Store) {
	t.Helper()

	cfg = &config.Config{}
	cfg.Pipeline.DefaultZip = "98855"
	cfg.Pipeline.Concurrency = 2
	cfg.Pipeline.SourceTimeoutSecs = 5

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	// No source clients: enrichment exercises only the bundled fallback
	// dataset, so the handler runs without network access.
	enricher := pipeline.New(cfg, st, nil, nil, nil, nil, nil)
	return newRouter(enricher, st), st
}

func TestServe_Health(t *testing.T) {
	router, _ := newTestEnv(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServe_EnrichDefaultsAndPersists(t *testing.T) {
	router, st := newTestEnv(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/enrich", strings.NewReader("")))

	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.NotEmpty(t, result.Records)
	assert.Equal(t, "fallback", result.Diagnostics.FoundationSource)

	// Enrichment upserted every record.
	listed, err := st.ListBusinesses(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Len(t, listed, len(result.Records))
}

func TestServe_EnrichBadBody(t *testing.T) {
	router, _ := newTestEnv(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_GetBusiness(t *testing.T) {
	router, st := newTestEnv(t)

	b := &model.Business{ID: "lic-601", Name: "Alpha Feed"}
	require.NoError(t, st.UpsertBusiness(context.Background(), b))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/businesses/lic-601", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alpha Feed")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/businesses/lic-999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ListRuns(t *testing.T) {
	router, st := newTestEnv(t)

	run, err := st.CreateRun(context.Background(), "98855")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(context.Background(), run.ID, model.RunStatusComplete, 4, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), run.ID)
}

func TestFormatRunsList(t *testing.T) {
	finished := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)
	runs := []model.Run{{
		ID:         "run-1",
		Zip:        "98855",
		Status:     model.RunStatusComplete,
		Businesses: 12,
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
	}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "98855")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "5m0s")
}
