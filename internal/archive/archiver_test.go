package archive

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

	"github.com/orrn/printhost/internal/db"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "printhost-archive-test")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := db.Init(db.Config{Path: filepath.Join(dir, "test.db")}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()
	db.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func insertRecord(t *testing.T, finishedAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Jobs.Insert(context.Background(), &db.PrintRecord{
		ID:         id,
		Cookie:     1,
		DeviceName: "lp0",
		Success:    true,
		StartedAt:  finishedAt.Add(-time.Second),
		FinishedAt: finishedAt,
	}))
	return id
}

func TestSweepPrunesExpiredRecords(t *testing.T) {
	staleID := insertRecord(t, time.Now().AddDate(0, 0, -60))
	freshID := insertRecord(t, time.Now())

	a := NewArchiver(Config{RetentionDays: 30})
	a.Sweep()

	_, err := db.Jobs.GetByID(context.Background(), staleID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = db.Jobs.GetByID(context.Background(), freshID)
	assert.NoError(t, err)
}

func TestArchiverSweepsOnStart(t *testing.T) {
	staleID := insertRecord(t, time.Now().AddDate(0, 0, -60))

	a := NewArchiver(Config{RetentionDays: 30, SweepInterval: time.Hour})
	a.Start()
	defer a.Stop()

	require.Eventually(t, func() bool {
		_, err := db.Jobs.GetByID(context.Background(), staleID)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestArchiverDefaults(t *testing.T) {
	a := NewArchiver(Config{})
	assert.Equal(t, 30, a.retentionDays)
	assert.Equal(t, time.Hour, a.interval)
}
