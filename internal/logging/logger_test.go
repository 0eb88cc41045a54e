package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quaynav/quay/internal/database"
)

func testLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "quay.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var buf bytes.Buffer
	return New(db.GetDB(), &buf), &buf
}

func TestLogWritesConsoleAndDB(t *testing.T) {
	logger, buf := testLogger(t)

	cl := logger.WithComponent("debounce").WithArchive("incremental-x.zip")
	cl.Info("armed timer for %d minutes", 30)

	out := buf.String()
	if !strings.Contains(out, "[debounce/incremental-x.zip]") || !strings.Contains(out, "armed timer for 30 minutes") {
		t.Errorf("console output = %q", out)
	}

	entries, err := logger.Query(QueryOptions{Component: "debounce", Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Level != LevelInfo || entries[0].Archive != "incremental-x.zip" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestQueryFiltersByLevel(t *testing.T) {
	logger, _ := testLogger(t)
	logger.Info("all good")
	logger.Error("broken")

	entries, err := logger.Query(QueryOptions{Level: LevelError})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "broken" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestPruneOldLogs(t *testing.T) {
	logger, _ := testLogger(t)
	logger.Info("recent entry")

	deleted, err := logger.PruneOldLogs(time.Hour)
	if err != nil {
		t.Fatalf("PruneOldLogs: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted %d recent entries", deleted)
	}
}

func TestConsoleOnlyLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(nil, &buf)
	logger.Warn("no database")
	if !strings.Contains(buf.String(), "WARN: no database") {
		t.Errorf("console output = %q", buf.String())
	}
}
