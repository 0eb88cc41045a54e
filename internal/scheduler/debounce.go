package scheduler

import (
	"sync"
	"time"

	"github.com/quaynav/quay/internal/logging"
	"github.com/quaynav/quay/internal/model"
)

// PolicySource yields the currently active backup policy. Satisfied by
// policy.Store.
type PolicySource interface {
	Current() model.BackupPolicy
}

// Debounce coalesces bursts of data mutations into a single delayed
// backup run. Each notification cancels any pending timer and arms a
// fresh one, so the backup fires only after the configured quiet
// period. A per-day quota caps how many debounced backups can fire;
// the counter resets lazily on the first check of a new day.
type Debounce struct {
	policies PolicySource
	clock    Clock
	run      func() error
	log      *logging.ComponentLogger

	mu            sync.Mutex
	timer         Timer
	firedToday    int
	lastFiredDate string
}

// NewDebounce wires a debounce scheduler around run, which performs one
// incremental backup cycle. run is invoked on the timer goroutine.
func NewDebounce(policies PolicySource, clock Clock, log *logging.ComponentLogger, run func() error) *Debounce {
	return &Debounce{
		policies: policies,
		clock:    clock,
		run:      run,
		log:      log,
	}
}

// NotifyMutation records that persistent data changed. If debounced
// backups are enabled and today's quota is not exhausted, the pending
// timer (if any) is cancelled and rearmed for the configured delay.
func (d *Debounce) NotifyMutation() {
	pol := d.policies.Current().Debounce
	if !pol.Enabled {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.rolloverLocked()
	if d.firedToday >= pol.MaxPerDay {
		d.log.Debug("debounce quota reached (%d/%d), skipping rearm", d.firedToday, pol.MaxPerDay)
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	delay := time.Duration(pol.DelayMinutes) * time.Minute
	d.timer = d.clock.AfterFunc(delay, d.fire)
	d.log.Debug("debounce timer armed, firing in %s", delay)
}

// fire runs one backup cycle. The quota is only consumed on success so
// a failed build does not burn a slot.
func (d *Debounce) fire() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()

	if err := d.run(); err != nil {
		d.log.Error("debounced backup failed: %v", err)
		return
	}

	d.mu.Lock()
	d.rolloverLocked()
	d.firedToday++
	d.mu.Unlock()
}

// rolloverLocked resets the daily counter when the date has changed.
// Callers must hold mu.
func (d *Debounce) rolloverLocked() {
	today := d.clock.Now().Format("2006-01-02")
	if d.lastFiredDate != today {
		d.lastFiredDate = today
		d.firedToday = 0
	}
}

// Usage reports how many debounced backups fired today alongside the
// active quota.
func (d *Debounce) Usage() (fired, max int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolloverLocked()
	return d.firedToday, d.policies.Current().Debounce.MaxPerDay
}

// Stop cancels any pending timer. Safe to call more than once.
func (d *Debounce) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
