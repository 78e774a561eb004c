package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveRun_AssignsIDAndRoundTrips(t *testing.T) {
	store := newTestStore(t)

	run := &Run{
		TelegramID:  1,
		ProductFile: "products.csv",
		TargetDepth: 3,
		Status:      RunSucceeded,
		InputRows:   10,
		OutputRows:  8,
		Duration:    1500 * time.Millisecond,
	}
	require.NoError(t, store.SaveRun(run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "products.csv", got.ProductFile)
	assert.Equal(t, "", got.CategoryFile)
	assert.Equal(t, 8, got.OutputRows)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, RunSucceeded, got.Status)
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun("missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRuns_NewestFirstAndLimited(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveRun(&Run{
			TelegramID:  1,
			ProductFile: []string{"a.csv", "b.csv", "c.csv"}[i],
			Status:      RunSucceeded,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.SaveRun(&Run{
		TelegramID:  2,
		ProductFile: "other.csv",
		Status:      RunFailed,
		Error:       "boom",
		CreatedAt:   base.Add(time.Hour),
	}))

	runs, err := store.ListRuns(1, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.csv", runs[0].ProductFile)
	assert.Equal(t, "b.csv", runs[1].ProductFile)

	all, err := store.ListRuns(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "other.csv", all[0].ProductFile)
	assert.Equal(t, "boom", all[0].Error)
}

func TestUploads_ReplaceAndClear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetUpload(&Upload{TelegramID: 1, Kind: UploadProducts, FileID: "f1", FileName: "old.csv", Rows: 2}))
	require.NoError(t, store.SetUpload(&Upload{TelegramID: 1, Kind: UploadProducts, FileID: "f2", FileName: "new.csv", Rows: 5}))
	require.NoError(t, store.SetUpload(&Upload{TelegramID: 1, Kind: UploadCategories, FileID: "c1", FileName: "cats.csv", Rows: 3}))
	require.NoError(t, store.SetUpload(&Upload{TelegramID: 2, Kind: UploadProducts, FileID: "x", FileName: "x.csv"}))

	uploads, err := store.GetUploads(1)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "f2", uploads[UploadProducts].FileID)
	assert.Equal(t, 5, uploads[UploadProducts].Rows)
	assert.Equal(t, "cats.csv", uploads[UploadCategories].FileName)

	require.NoError(t, store.ClearUploads(1))
	uploads, err = store.GetUploads(1)
	require.NoError(t, err)
	assert.Empty(t, uploads)

	other, err := store.GetUploads(2)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestTargetDepth(t *testing.T) {
	store := newTestStore(t)

	depth, err := store.GetTargetDepth(1)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	require.NoError(t, store.SetTargetDepth(1, 2))
	require.NoError(t, store.SetTargetDepth(1, 4))

	depth, err = store.GetTargetDepth(1)
	require.NoError(t, err)
	assert.Equal(t, 4, depth)
}

func TestAllowedUsers(t *testing.T) {
	store := newTestStore(t)

	allowed, err := store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, store.AddAllowedUser(42, 1))
	require.NoError(t, store.AddAllowedUser(42, 1))

	allowed, err = store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.True(t, allowed)

	users, err := store.GetAllowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].AddedBy)

	require.NoError(t, store.RemoveAllowedUser(42))
	allowed, err = store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.False(t, allowed)
}
