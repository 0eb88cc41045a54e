package model

import (
	"strings"
	"time"
)

// Archive prefixes determine which retention pool a backup belongs to.
const (
	PrefixIncremental = "incremental"
	PrefixDaily       = "daily"
	PrefixManual      = "manual"
)

// Archive describes a single backup archive on disk or on the remote store
type Archive struct {
	Name       string    `json:"name"`
	Path       string    `json:"path,omitempty"`
	Prefix     string    `json:"prefix"`
	SizeBytes  int64     `json:"sizeBytes"`
	SizeMB     float64   `json:"sizeMB"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// PrefixOf derives the retention-pool prefix from an archive file name.
// Externally produced archives without a known prefix count as manual.
func PrefixOf(name string) string {
	switch {
	case strings.HasPrefix(name, PrefixIncremental+"-"):
		return PrefixIncremental
	case strings.HasPrefix(name, PrefixDaily+"-"):
		return PrefixDaily
	default:
		return PrefixManual
	}
}

// BackupPolicy governs both backup triggers and remote sync
type BackupPolicy struct {
	Debounce   DebouncePolicy   `json:"debounce"`
	Scheduled  ScheduledPolicy  `json:"scheduled"`
	RemoteSync RemoteSyncPolicy `json:"remoteSync"`
	AutoClean  bool             `json:"autoClean"`
}

// DebouncePolicy configures the reactive (mutation-driven) trigger
type DebouncePolicy struct {
	Enabled      bool `json:"enabled"`
	DelayMinutes int  `json:"delayMinutes"` // [5,1440]
	MaxPerDay    int  `json:"maxPerDay"`    // [1,10]
	Keep         int  `json:"keep"`         // [1,30]
}

// ScheduledPolicy configures the proactive (time-of-day) trigger
type ScheduledPolicy struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`   // [0,23]
	Minute  int  `json:"minute"` // [0,59]
	Keep    int  `json:"keep"`   // [1,30]
}

// RemoteSyncPolicy toggles mirroring of archives to the remote store
type RemoteSyncPolicy struct {
	Enabled         bool `json:"enabled"`
	SyncDaily       bool `json:"syncDaily"`
	SyncIncremental bool `json:"syncIncremental"`
}

// DefaultPolicy matches the defaults the dashboard ships with:
// 30 minute debounce window, 3 fires per day, nightly backup at 02:00.
func DefaultPolicy() BackupPolicy {
	return BackupPolicy{
		Debounce: DebouncePolicy{
			Enabled:      true,
			DelayMinutes: 30,
			MaxPerDay:    3,
			Keep:         5,
		},
		Scheduled: ScheduledPolicy{
			Enabled: true,
			Hour:    2,
			Minute:  0,
			Keep:    7,
		},
		RemoteSync: RemoteSyncPolicy{},
		AutoClean:  true,
	}
}

// RemoteCredential is the plaintext form of the remote store credential.
// Only the password is ever persisted encrypted; URL and username stay
// inspectable.
type RemoteCredential struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// EncryptedSecret is an AES-GCM sealed value as stored on disk
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"` // hex, includes GCM tag
	Nonce      string `json:"nonce"`      // hex
}

// EncryptedCredential is the on-disk form of RemoteCredential
type EncryptedCredential struct {
	URL      string          `json:"url"`
	Username string          `json:"username"`
	Password EncryptedSecret `json:"password"`
}

// PoolStats aggregates archives sharing a prefix
type PoolStats struct {
	Count  int     `json:"count"`
	SizeMB float64 `json:"sizeMB"`
}

// BackupStats is the backup-statistics endpoint payload
type BackupStats struct {
	Pools      map[string]PoolStats `json:"pools"`
	Total      PoolStats            `json:"total"`
	FiredToday int                  `json:"firedToday"`
	MaxPerDay  int                  `json:"maxPerDay"`
}

// Menu is a top-level navigation group on the dashboard
type Menu struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Card is a single bookmark shown under a menu
type Card struct {
	ID          int64  `json:"id"`
	MenuID      int64  `json:"menuId"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	SortOrder   int    `json:"sortOrder"`
}

// Tag labels cards for filtering
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
