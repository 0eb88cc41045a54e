package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "dataDir: /tmp/quay-test\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8090" {
		t.Errorf("Listen = %q, want :8090", cfg.Listen)
	}
	if cfg.BackupDir != "/tmp/quay-test/backups" {
		t.Errorf("BackupDir = %q", cfg.BackupDir)
	}
	if len(cfg.Sources) != 3 {
		t.Fatalf("Sources = %v, want 3 defaults", cfg.Sources)
	}
	if cfg.Sources[2] != "/tmp/quay-test/.env" {
		t.Errorf("Sources[2] = %q", cfg.Sources[2])
	}
	if cfg.RemoteDir != "quay-backups" {
		t.Errorf("RemoteDir = %q", cfg.RemoteDir)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("QUAY_TEST_SECRET", "s3cret")
	t.Setenv("QUAY_TEST_DIR", "/srv/quay")

	path := writeConfig(t, "dataDir: ${QUAY_TEST_DIR}\nvaultSecret: $QUAY_TEST_SECRET\nsources:\n  - ${QUAY_TEST_DIR}/extra\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/quay" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.VaultSecret != "s3cret" {
		t.Errorf("VaultSecret = %q", cfg.VaultSecret)
	}
	if cfg.Sources[0] != "/srv/quay/extra" {
		t.Errorf("Sources[0] = %q", cfg.Sources[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	want := "/var/lib/quay/database/quay.db"
	if got := cfg.DatabasePath(); got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
}
