package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration file
type Config struct {
	Listen       string   `yaml:"listen,omitempty"`       // HTTP listen address, default ":8090"
	DataDir      string   `yaml:"dataDir,omitempty"`      // base directory for database, uploads, policy files
	BackupDir    string   `yaml:"backupDir,omitempty"`    // where archives are written, default <dataDir>/backups
	Sources      []string `yaml:"sources,omitempty"`      // paths included in every archive
	AuthPassword string   `yaml:"authPassword,omitempty"` // operator password; empty disables auth
	VaultSecret  string   `yaml:"vaultSecret,omitempty"`  // secret for remote-credential encryption
	RemoteDir    string   `yaml:"remoteDir,omitempty"`    // collection name on the remote store
	CORSOrigins  []string `yaml:"corsOrigins,omitempty"`  // extra allowed origins beyond localhost
}

// Load reads and parses the config file, expanding environment variables
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Listen = expandEnv(cfg.Listen)
	cfg.DataDir = expandEnv(cfg.DataDir)
	cfg.BackupDir = expandEnv(cfg.BackupDir)
	cfg.AuthPassword = expandEnv(cfg.AuthPassword)
	cfg.VaultSecret = expandEnv(cfg.VaultSecret)
	cfg.RemoteDir = expandEnv(cfg.RemoteDir)
	for i := range cfg.Sources {
		cfg.Sources[i] = expandEnv(cfg.Sources[i])
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = expandEnv(cfg.CORSOrigins[i])
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with all defaults applied, for running without a file
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8090"
	}
	if c.DataDir == "" {
		c.DataDir = "/var/lib/quay"
	}
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(c.DataDir, "backups")
	}
	if len(c.Sources) == 0 {
		c.Sources = []string{
			filepath.Join(c.DataDir, "database"),
			filepath.Join(c.DataDir, "uploads"),
			filepath.Join(c.DataDir, ".env"),
		}
	}
	if c.RemoteDir == "" {
		c.RemoteDir = "quay-backups"
	}
}

// DatabasePath returns the location of the sqlite database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "database", "quay.db")
}

// PolicyPath returns the location of the persisted backup policy
func (c *Config) PolicyPath() string {
	return filepath.Join(c.DataDir, "backup-policy.json")
}

// CredentialPath returns the location of the encrypted remote credential
func (c *Config) CredentialPath() string {
	return filepath.Join(c.DataDir, "webdav.json")
}

// expandEnv expands environment variable references in the format ${VAR} or $VAR
func expandEnv(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if match[1] == '{' {
			varName = match[2 : len(match)-1] // ${VAR}
		} else {
			varName = match[1:] // $VAR
		}
		return os.Getenv(varName)
	})
}
