package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "printhost-db-test")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := Init(Config{Path: filepath.Join(dir, "test.db")}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()
	Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func newRecord(success bool, finishedAt time.Time) *PrintRecord {
	return &PrintRecord{
		ID:            uuid.NewString(),
		Cookie:        7,
		DeviceName:    "lp0",
		SourceName:    "report",
		ExpectedPages: 3,
		RenderedPages: 3,
		Success:       success,
		StartedAt:     finishedAt.Add(-time.Second),
		FinishedAt:    finishedAt,
	}
}

func TestJobsInsertAndGet(t *testing.T) {
	ctx := context.Background()
	rec := newRecord(true, time.Now())
	rec.ErrorMessage = ""

	require.NoError(t, Jobs.Insert(ctx, rec))

	got, err := Jobs.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Cookie, got.Cookie)
	assert.Equal(t, rec.DeviceName, got.DeviceName)
	assert.Equal(t, rec.ExpectedPages, got.ExpectedPages)
	assert.True(t, got.Success)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestJobsGetByIDNotFound(t *testing.T) {
	_, err := Jobs.GetByID(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestJobsListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	old := newRecord(true, time.Now().Add(-time.Hour))
	recent := newRecord(false, time.Now())
	require.NoError(t, Jobs.Insert(ctx, old))
	require.NoError(t, Jobs.Insert(ctx, recent))

	records, err := Jobs.List(ctx, 100, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 2)

	var oldIdx, recentIdx int
	for i, r := range records {
		if r.ID == old.ID {
			oldIdx = i
		}
		if r.ID == recent.ID {
			recentIdx = i
		}
	}
	assert.Less(t, recentIdx, oldIdx)
}

func TestJobsStats(t *testing.T) {
	ctx := context.Background()
	before, err := Jobs.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, Jobs.Insert(ctx, newRecord(true, time.Now())))
	require.NoError(t, Jobs.Insert(ctx, newRecord(false, time.Now())))

	after, err := Jobs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Total+2, after.Total)
	assert.Equal(t, before.Succeeded+1, after.Succeeded)
	assert.Equal(t, after.Total-after.Succeeded, after.Failed)
}

func TestJobsPruneBefore(t *testing.T) {
	ctx := context.Background()
	stale := newRecord(true, time.Now().AddDate(0, 0, -90))
	fresh := newRecord(true, time.Now())
	require.NoError(t, Jobs.Insert(ctx, stale))
	require.NoError(t, Jobs.Insert(ctx, fresh))

	pruned, err := Jobs.PruneBefore(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pruned, int64(1))

	_, err = Jobs.GetByID(ctx, stale.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = Jobs.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, err := Settings.Get(ctx, "missing-key")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, Settings.Set(ctx, "theme", "dark"))
	got, err := Settings.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Value)

	require.NoError(t, Settings.Set(ctx, "theme", "light"))
	got, err = Settings.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", got.Value)
}
