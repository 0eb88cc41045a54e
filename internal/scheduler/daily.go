package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quaynav/quay/internal/logging"
	"github.com/quaynav/quay/internal/model"
)

// Daily runs one full backup per day at a configured time using a cron
// entry. Reschedule swaps the entry in place when the policy changes,
// so edits take effect without a restart.
type Daily struct {
	cron *cron.Cron
	log  *logging.ComponentLogger
	run  func() error

	mu    sync.Mutex
	entry cron.EntryID
}

// NewDaily builds the daily scheduler around run, which performs one
// full backup cycle. The cron loop is not started until Start is
// called.
func NewDaily(log *logging.ComponentLogger, run func() error) *Daily {
	return &Daily{
		cron: cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		log:  log,
		run:  run,
	}
}

// Apply installs or removes the cron entry according to the scheduled
// policy. Called once at startup and again on every policy update.
func (d *Daily) Apply(pol model.ScheduledPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.entry != 0 {
		d.cron.Remove(d.entry)
		d.entry = 0
	}
	if !pol.Enabled {
		d.log.Info("daily backup disabled")
		return
	}

	spec := fmt.Sprintf("%d %d * * *", pol.Minute, pol.Hour)
	id, err := d.cron.AddFunc(spec, func() {
		if err := d.run(); err != nil {
			d.log.Error("daily backup failed: %v", err)
		}
	})
	if err != nil {
		// Policy validation bounds hour and minute, so this only
		// happens on a programming error.
		d.log.Error("schedule daily backup %q: %v", spec, err)
		return
	}
	d.entry = id
	d.log.Info("daily backup scheduled at %02d:%02d", pol.Hour, pol.Minute)
}

// NextRun reports when the daily backup will fire next. Zero time when
// no entry is scheduled.
func (d *Daily) NextRun() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entry == 0 {
		return time.Time{}
	}
	return d.cron.Entry(d.entry).Next
}

func (d *Daily) Start() { d.cron.Start() }

// Stop halts the cron loop and waits for a running job to finish.
func (d *Daily) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}
