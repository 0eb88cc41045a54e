package policy

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quaynav/quay/internal/model"
)

func TestValidateBounds(t *testing.T) {
	mutate := func(fn func(*model.BackupPolicy)) model.BackupPolicy {
		p := model.DefaultPolicy()
		fn(&p)
		return p
	}

	cases := []struct {
		name string
		p    model.BackupPolicy
		ok   bool
	}{
		{"defaults", model.DefaultPolicy(), true},
		{"delay floor", mutate(func(p *model.BackupPolicy) { p.Debounce.DelayMinutes = 5 }), true},
		{"delay below floor", mutate(func(p *model.BackupPolicy) { p.Debounce.DelayMinutes = 3 }), false},
		{"delay ceiling", mutate(func(p *model.BackupPolicy) { p.Debounce.DelayMinutes = 1440 }), true},
		{"delay above ceiling", mutate(func(p *model.BackupPolicy) { p.Debounce.DelayMinutes = 1441 }), false},
		{"maxPerDay zero", mutate(func(p *model.BackupPolicy) { p.Debounce.MaxPerDay = 0 }), false},
		{"maxPerDay high", mutate(func(p *model.BackupPolicy) { p.Debounce.MaxPerDay = 11 }), false},
		{"keep zero", mutate(func(p *model.BackupPolicy) { p.Debounce.Keep = 0 }), false},
		{"keep 30", mutate(func(p *model.BackupPolicy) { p.Scheduled.Keep = 30 }), true},
		{"keep 31", mutate(func(p *model.BackupPolicy) { p.Scheduled.Keep = 31 }), false},
		{"hour 23", mutate(func(p *model.BackupPolicy) { p.Scheduled.Hour = 23 }), true},
		{"hour 24", mutate(func(p *model.BackupPolicy) { p.Scheduled.Hour = 24 }), false},
		{"negative minute", mutate(func(p *model.BackupPolicy) { p.Scheduled.Minute = -1 }), false},
	}
	for _, c := range cases {
		err := Validate(c.p)
		if c.ok && err != nil {
			t.Errorf("%s: Validate = %v, want nil", c.name, err)
		}
		if !c.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s: Validate = %v, want ErrValidation", c.name, err)
		}
	}
}

func TestStoreFirstStartPersistsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-policy.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Current() != model.DefaultPolicy() {
		t.Errorf("Current = %+v", store.Current())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults not persisted: %v", err)
	}
}

func TestStoreUpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-policy.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	p := model.DefaultPolicy()
	p.Scheduled.Hour = 4
	p.Debounce.MaxPerDay = 5
	if err := store.Update(p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := NewStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Current(); got.Scheduled.Hour != 4 || got.Debounce.MaxPerDay != 5 {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestStoreRejectedUpdateKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup-policy.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	bad := model.DefaultPolicy()
	bad.Debounce.DelayMinutes = 3
	if err := store.Update(bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("Update = %v, want ErrValidation", err)
	}

	// Active policy unchanged
	if store.Current() != model.DefaultPolicy() {
		t.Errorf("Current = %+v after rejected update", store.Current())
	}

	// Persisted policy unchanged
	data, _ := os.ReadFile(path)
	var onDisk model.BackupPolicy
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk != model.DefaultPolicy() {
		t.Errorf("on disk = %+v after rejected update", onDisk)
	}
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "p.json"))
	if err != nil {
		t.Fatal(err)
	}

	var got []model.BackupPolicy
	store.Subscribe(func(p model.BackupPolicy) { got = append(got, p) })

	bad := model.DefaultPolicy()
	bad.Scheduled.Hour = 99
	store.Update(bad) // rejected: no notification

	good := model.DefaultPolicy()
	good.Scheduled.Hour = 5
	if err := store.Update(good); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || got[0].Scheduled.Hour != 5 {
		t.Errorf("notifications = %+v", got)
	}
}
