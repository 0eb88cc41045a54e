package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/quaynav/quay/internal/model"
)

// ErrValidation is wrapped by every bounds-check failure
var ErrValidation = errors.New("policy validation failed")

// Validate checks every bounded field. Out-of-range values are rejected,
// never clamped.
func Validate(p model.BackupPolicy) error {
	checks := []struct {
		field    string
		value    int
		min, max int
	}{
		{"debounce.delayMinutes", p.Debounce.DelayMinutes, 5, 1440},
		{"debounce.maxPerDay", p.Debounce.MaxPerDay, 1, 10},
		{"debounce.keep", p.Debounce.Keep, 1, 30},
		{"scheduled.hour", p.Scheduled.Hour, 0, 23},
		{"scheduled.minute", p.Scheduled.Minute, 0, 59},
		{"scheduled.keep", p.Scheduled.Keep, 1, 30},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s=%d outside [%d,%d]", ErrValidation, c.field, c.value, c.min, c.max)
		}
	}
	return nil
}

// Store holds the process-wide backup policy, persisted as JSON on disk.
// Subscribers are notified after every accepted update so the daily
// scheduler can re-derive its trigger time.
type Store struct {
	path string

	mu          sync.RWMutex
	current     model.BackupPolicy
	subscribers []func(model.BackupPolicy)
}

// NewStore loads the persisted policy, falling back to (and persisting)
// defaults on first start.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.current = model.DefaultPolicy()
		if err := s.persist(s.current); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read policy: %w", err)
	default:
		var p model.BackupPolicy
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse policy: %w", err)
		}
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("stored policy invalid: %w", err)
		}
		s.current = p
	}
	return s, nil
}

// Current returns the active policy
func (s *Store) Current() model.BackupPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates, persists, and activates a new policy, then notifies
// subscribers. On any failure the previous policy stays active.
func (s *Store) Update(p model.BackupPolicy) error {
	if err := Validate(p); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.persist(p); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = p
	subs := make([]func(model.BackupPolicy), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	return nil
}

// Subscribe registers a callback invoked after every accepted update
func (s *Store) Subscribe(fn func(model.BackupPolicy)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) persist(p model.BackupPolicy) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create policy directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write policy: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace policy: %w", err)
	}
	return nil
}
