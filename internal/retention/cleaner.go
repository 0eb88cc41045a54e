package retention

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quaynav/quay/internal/logging"
)

// Cleaner enforces per-pool keep counts on the archive directory.
// Pools never interfere: cleaning "incremental" only ever touches
// archives named incremental-*.
type Cleaner struct {
	dir string
	log *logging.ComponentLogger
}

func NewCleaner(dir string, log *logging.ComponentLogger) *Cleaner {
	return &Cleaner{dir: dir, log: log}
}

// Clean deletes every archive in the prefix pool beyond the keep newest,
// ordered by modification time. Individual deletion failures are logged
// and skipped; the count of archives actually removed is returned.
func (c *Cleaner) Clean(prefix string, keep int) int {
	if keep < 0 {
		keep = 0
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.Error("read archive directory: %v", err)
		return 0
	}

	type candidate struct {
		name  string
		mtime int64
	}
	var pool []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		pool = append(pool, candidate{name: name, mtime: info.ModTime().UnixNano()})
	}

	// Most recent first. Ordering is by mtime, not by the timestamp in the
	// name, so manual renames and clock skew do not break retention.
	sort.Slice(pool, func(i, j int) bool { return pool[i].mtime > pool[j].mtime })

	deleted := 0
	for i := keep; i < len(pool); i++ {
		path := filepath.Join(c.dir, pool[i].name)
		if err := os.Remove(path); err != nil {
			c.log.Warn("delete expired archive %s: %v", pool[i].name, err)
			continue
		}
		c.log.Info("deleted expired archive %s", pool[i].name)
		deleted++
	}
	if deleted > 0 {
		c.log.Info("retention cleanup for %q removed %d archive(s), kept %d", prefix, deleted, keep)
	}
	return deleted
}
