package archive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quaynav/quay/internal/model"
)

func seedArchive(t *testing.T, dir, name string, size int, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	seedArchive(t, dir, "daily-old.zip", 10, 3*time.Hour)
	seedArchive(t, dir, "daily-new.zip", 10, time.Hour)
	seedArchive(t, dir, "notes.txt", 10, 0) // ignored: not a zip

	archives, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("List = %+v", archives)
	}
	if archives[0].Name != "daily-new.zip" || archives[1].Name != "daily-old.zip" {
		t.Errorf("order = %s, %s", archives[0].Name, archives[1].Name)
	}
}

func TestListPrefixIsolation(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	seedArchive(t, dir, "incremental-a.zip", 10, time.Hour)
	seedArchive(t, dir, "incremental-b.zip", 10, 2*time.Hour)
	seedArchive(t, dir, "daily-a.zip", 10, time.Hour)
	seedArchive(t, dir, "manual-a.zip", 10, time.Hour)

	inc, err := store.ListPrefix(model.PrefixIncremental)
	if err != nil {
		t.Fatal(err)
	}
	if len(inc) != 2 {
		t.Errorf("incremental pool = %+v", inc)
	}
	daily, _ := store.ListPrefix(model.PrefixDaily)
	if len(daily) != 1 {
		t.Errorf("daily pool = %+v", daily)
	}
}

func TestGetAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)
	seedArchive(t, dir, "manual-x.zip", 2048, 0)

	arch, err := store.Get("manual-x.zip")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if arch.SizeBytes != 2048 || arch.Prefix != model.PrefixManual {
		t.Errorf("Get = %+v", arch)
	}

	if _, err := store.Get("missing.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}

	if err := store.Delete("manual-x.zip"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete("manual-x.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestSaveRejectsCollisionAndBadNames(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	if _, err := store.Save("../evil.zip", strings.NewReader("x")); err == nil {
		t.Error("path traversal name accepted")
	}

	arch, err := store.Save("manual-import.zip", strings.NewReader("imported"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if arch.SizeBytes != int64(len("imported")) {
		t.Errorf("saved size = %d", arch.SizeBytes)
	}

	if _, err := store.Save("manual-import.zip", strings.NewReader("again")); err == nil {
		t.Error("collision accepted on Save")
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	seedArchive(t, dir, "incremental-a.zip", 1024*1024, 0)
	seedArchive(t, dir, "incremental-b.zip", 1024*1024, time.Hour)
	seedArchive(t, dir, "daily-a.zip", 512*1024, 0)
	seedArchive(t, dir, "import.zip", 512*1024, 0) // counts as manual

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pools[model.PrefixIncremental].Count != 2 {
		t.Errorf("incremental = %+v", stats.Pools[model.PrefixIncremental])
	}
	if stats.Pools[model.PrefixIncremental].SizeMB != 2 {
		t.Errorf("incremental size = %v", stats.Pools[model.PrefixIncremental].SizeMB)
	}
	if stats.Pools[model.PrefixManual].Count != 1 {
		t.Errorf("manual = %+v", stats.Pools[model.PrefixManual])
	}
	if stats.Total.Count != 4 || stats.Total.SizeMB != 3 {
		t.Errorf("total = %+v", stats.Total)
	}
}
