package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quaynav/quay/internal/model"
)

// ErrNotFound is returned when a named archive does not exist locally
var ErrNotFound = errors.New("archive not found")

// Store owns the local archive directory
type Store struct {
	dir string
}

// NewStore creates the archive directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the archive directory path
func (s *Store) Dir() string {
	return s.dir
}

// List returns all local archives, newest first by modification time
func (s *Store) List() ([]model.Archive, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read archive directory: %w", err)
	}

	archives := make([]model.Archive, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		archives = append(archives, s.describe(e.Name(), info.Size(), info))
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].ModifiedAt.After(archives[j].ModifiedAt)
	})
	return archives, nil
}

// ListPrefix returns archives in one retention pool, newest first
func (s *Store) ListPrefix(prefix string) ([]model.Archive, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	pool := make([]model.Archive, 0, len(all))
	for _, a := range all {
		if strings.HasPrefix(a.Name, prefix+"-") {
			pool = append(pool, a)
		}
	}
	return pool, nil
}

// Get returns metadata for a named archive
func (s *Store) Get(name string) (model.Archive, error) {
	if err := ValidateName(name); err != nil {
		return model.Archive{}, err
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return model.Archive{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return model.Archive{}, fmt.Errorf("stat archive: %w", err)
	}
	return s.describe(name, info.Size(), info), nil
}

// Open returns a reader over a named archive, for downloads
func (s *Store) Open(name string) (io.ReadCloser, model.Archive, error) {
	arch, err := s.Get(name)
	if err != nil {
		return nil, model.Archive{}, err
	}
	f, err := os.Open(arch.Path)
	if err != nil {
		return nil, model.Archive{}, fmt.Errorf("open archive: %w", err)
	}
	return f, arch, nil
}

// Delete removes a named archive
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete archive: %w", err)
	}
	return nil
}

// Save imports an externally produced archive under the given name.
// Collisions fail rather than overwrite.
func (s *Store) Save(name string, r io.Reader) (model.Archive, error) {
	if err := ValidateName(name); err != nil {
		return model.Archive{}, err
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return model.Archive{}, fmt.Errorf("archive %s already exists", name)
	}

	out, err := os.Create(path)
	if err != nil {
		return model.Archive{}, fmt.Errorf("create archive: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return model.Archive{}, fmt.Errorf("write archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return model.Archive{}, fmt.Errorf("close archive: %w", err)
	}
	return s.Get(name)
}

// Stats aggregates counts and sizes per retention pool
func (s *Store) Stats() (model.BackupStats, error) {
	all, err := s.List()
	if err != nil {
		return model.BackupStats{}, err
	}

	stats := model.BackupStats{Pools: map[string]model.PoolStats{}}
	var totalBytes int64
	poolBytes := map[string]int64{}
	for _, a := range all {
		p := stats.Pools[a.Prefix]
		p.Count++
		poolBytes[a.Prefix] += a.SizeBytes
		stats.Pools[a.Prefix] = p
		totalBytes += a.SizeBytes
	}
	for prefix, bytes := range poolBytes {
		p := stats.Pools[prefix]
		p.SizeMB = roundMB(bytes)
		stats.Pools[prefix] = p
	}
	stats.Total = model.PoolStats{Count: len(all), SizeMB: roundMB(totalBytes)}
	return stats, nil
}

func (s *Store) describe(name string, size int64, info os.FileInfo) model.Archive {
	return model.Archive{
		Name:       name,
		Path:       filepath.Join(s.dir, name),
		Prefix:     model.PrefixOf(name),
		SizeBytes:  size,
		SizeMB:     roundMB(size),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}
}
