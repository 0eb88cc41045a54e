package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quaynav/quay/internal/logging"
)

func testCleaner(t *testing.T) (*Cleaner, string) {
	t.Helper()
	dir := t.TempDir()
	log := logging.New(nil, os.Stderr).WithComponent("retention")
	return NewCleaner(dir, log), dir
}

func seed(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func names(t *testing.T, dir string) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		out[e.Name()] = true
	}
	return out
}

func TestCleanDeletesOldestBeyondKeep(t *testing.T) {
	cleaner, dir := testCleaner(t)

	// 10 daily archives, oldest has the highest age
	for i := 0; i < 10; i++ {
		seed(t, dir, fmt.Sprintf("daily-%02d.zip", i), time.Duration(i)*time.Hour)
	}

	deleted := cleaner.Clean("daily", 7)
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}

	left := names(t, dir)
	for i := 0; i < 7; i++ {
		if !left[fmt.Sprintf("daily-%02d.zip", i)] {
			t.Errorf("recent archive daily-%02d.zip was deleted", i)
		}
	}
	for i := 7; i < 10; i++ {
		if left[fmt.Sprintf("daily-%02d.zip", i)] {
			t.Errorf("old archive daily-%02d.zip survived", i)
		}
	}

	// Idempotent: immediate rerun deletes nothing
	if deleted := cleaner.Clean("daily", 7); deleted != 0 {
		t.Errorf("second clean deleted %d", deleted)
	}
}

func TestCleanPrefixPoolsAreIndependent(t *testing.T) {
	cleaner, dir := testCleaner(t)

	for i := 0; i < 5; i++ {
		seed(t, dir, fmt.Sprintf("incremental-%d.zip", i), time.Duration(i)*time.Hour)
	}
	for i := 0; i < 4; i++ {
		seed(t, dir, fmt.Sprintf("daily-%d.zip", i), time.Duration(i)*time.Hour)
	}

	deleted := cleaner.Clean("incremental", 2)
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}

	left := names(t, dir)
	for i := 0; i < 4; i++ {
		if !left[fmt.Sprintf("daily-%d.zip", i)] {
			t.Errorf("daily-%d.zip touched by incremental clean", i)
		}
	}
}

func TestCleanOrdersByMtimeNotName(t *testing.T) {
	cleaner, dir := testCleaner(t)

	// Name says old, mtime says new; mtime must win
	seed(t, dir, "daily-1990.zip", time.Minute)
	seed(t, dir, "daily-2099.zip", 48*time.Hour)

	if deleted := cleaner.Clean("daily", 1); deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	left := names(t, dir)
	if !left["daily-1990.zip"] || left["daily-2099.zip"] {
		t.Errorf("remaining = %v, mtime ordering violated", left)
	}
}

func TestCleanIgnoresForeignFiles(t *testing.T) {
	cleaner, dir := testCleaner(t)

	seed(t, dir, "daily-a.zip", time.Hour)
	seed(t, dir, "dailynotes.txt", 48*time.Hour)
	seed(t, dir, "daily-b.tar", 48*time.Hour)

	if deleted := cleaner.Clean("daily", 1); deleted != 0 {
		t.Errorf("deleted = %d foreign files", deleted)
	}
}
