package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_UpsertBusiness_Insert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := &model.Business{
		ID:      "lic-601123456",
		Name:    "Joe's Bakery",
		Address: "123 Main Street, Tonasket, WA 98855",
		Phone:   "(509) 486-1234",
	}
	require.NoError(t, st.UpsertBusiness(ctx, b))

	got, err := st.GetBusiness(ctx, "lic-601123456")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Joe's Bakery", got.Name)
	assert.Equal(t, "(509) 486-1234", got.Phone)
}

func TestSQLite_UpsertBusiness_MatchByName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertBusiness(ctx, &model.Business{
		ID:   "biz-aaaa",
		Name: "Joe's Bakery",
	}))
	// Same name, different ID: replaces the existing row instead of inserting.
	require.NoError(t, st.UpsertBusiness(ctx, &model.Business{
		ID:    "biz-bbbb",
		Name:  "Joe's Bakery",
		Phone: "(509) 486-1234",
	}))

	list, err := st.ListBusinesses(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "(509) 486-1234", list[0].Phone)
}

func TestSQLite_UpsertBusiness_MatchByAddressAndPhone(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertBusiness(ctx, &model.Business{
		ID:      "biz-aaaa",
		Name:    "Joes Bakery",
		Address: "123 Main Street, Tonasket, WA 98855",
		Phone:   "(509) 486-1234",
	}))
	require.NoError(t, st.UpsertBusiness(ctx, &model.Business{
		ID:      "biz-bbbb",
		Name:    "Joe's Bakery LLC",
		Address: "123 Main Street, Tonasket, WA 98855",
		Phone:   "(509) 486-1234",
	}))

	list, err := st.ListBusinesses(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Joe's Bakery LLC", list[0].Name)
}

func TestSQLite_UpsertBusiness_EmptyAddressNeverMatches(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertBusiness(ctx, &model.Business{ID: "biz-aaaa", Name: "One"}))
	require.NoError(t, st.UpsertBusiness(ctx, &model.Business{ID: "biz-bbbb", Name: "Two"}))

	list, err := st.ListBusinesses(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSQLite_GetBusiness_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetBusiness(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListBusinesses_OrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"Charlie's", "Alpha Feed", "Borderline Brewing"} {
		require.NoError(t, st.UpsertBusiness(ctx, &model.Business{ID: "biz-" + name, Name: name}))
	}

	list, err := st.ListBusinesses(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha Feed", list[0].Name)
	assert.Equal(t, "Borderline Brewing", list[1].Name)
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "98855")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	diag := model.NewDiagnostics()
	diag.FoundationSource = "socrata"
	diag.RecordHit("places")

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, 12, diag))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 12, got.Businesses)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Diagnostics)
	assert.Equal(t, "socrata", got.Diagnostics.FoundationSource)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "missing", model.RunStatusFailed, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_ListRuns_FilterByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "98855")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "98844")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, r1.ID, model.RunStatusComplete, 3, nil))

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, r1.ID, complete[0].ID)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
