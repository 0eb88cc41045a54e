package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quaynav/quay/internal/archive"
	"github.com/quaynav/quay/internal/logging"
	"github.com/quaynav/quay/internal/model"
	"github.com/quaynav/quay/internal/policy"
	"github.com/quaynav/quay/internal/remote"
	"github.com/quaynav/quay/internal/retention"
	"github.com/quaynav/quay/internal/scheduler"
)

// Service orchestrates the backup lifecycle: it owns both triggers
// (debounced and daily), runs the build/retain/sync pipeline for each
// fired backup, and exposes manual operations for the API layer.
type Service struct {
	policies *policy.Store
	archives *archive.Store
	cleaner  *retention.Cleaner
	remote   *remote.Client
	sources  []string
	log      *logging.ComponentLogger

	debounce *scheduler.Debounce
	daily    *scheduler.Daily
}

// New wires the service around the given stores. Start must be called
// to activate the schedulers.
func New(policies *policy.Store, archives *archive.Store, cleaner *retention.Cleaner, remoteClient *remote.Client, sources []string, logger *logging.Logger) *Service {
	s := &Service{
		policies: policies,
		archives: archives,
		cleaner:  cleaner,
		remote:   remoteClient,
		sources:  sources,
		log:      logger.WithComponent("backup"),
	}
	s.debounce = scheduler.NewDebounce(policies, scheduler.SystemClock{}, logger.WithComponent("debounce"), func() error {
		_, err := s.RunCycle(context.Background(), model.PrefixIncremental, "debounced after data change")
		return err
	})
	s.daily = scheduler.NewDaily(logger.WithComponent("daily"), func() error {
		_, err := s.RunCycle(context.Background(), model.PrefixDaily, "scheduled daily backup")
		return err
	})
	return s
}

// Start arms the daily cron from the current policy and keeps it in
// sync with future policy updates.
func (s *Service) Start() {
	s.daily.Apply(s.policies.Current().Scheduled)
	s.daily.Start()
	s.policies.Subscribe(func(p model.BackupPolicy) {
		s.daily.Apply(p.Scheduled)
	})
}

// Stop cancels any pending debounce timer and drains the cron loop
func (s *Service) Stop() {
	s.debounce.Stop()
	s.daily.Stop()
}

// NotifyMutation signals that dashboard data changed and an incremental
// backup should be considered.
func (s *Service) NotifyMutation() {
	s.debounce.NotifyMutation()
}

// ManualBackup builds a backup in the manual pool right away. Manual
// archives are never auto-cleaned.
func (s *Service) ManualBackup(ctx context.Context, description string) (model.Archive, error) {
	if description == "" {
		description = "manual backup"
	}
	return s.RunCycle(ctx, model.PrefixManual, description)
}

// RunCycle performs one full backup pass for the given pool: build the
// archive, prune the pool to its keep limit, and mirror to the remote
// store when enabled. Retention and sync failures are logged but never
// undo the local backup.
func (s *Service) RunCycle(ctx context.Context, prefix, description string) (model.Archive, error) {
	arch, err := s.archives.Build(prefix, description, s.sources)
	if err != nil {
		s.log.Error("build %s backup: %v", prefix, err)
		return model.Archive{}, fmt.Errorf("build %s backup: %w", prefix, err)
	}
	s.log.WithArchive(arch.Name).Info("archive built (%.2f MB)", arch.SizeMB)

	pol := s.policies.Current()
	if pol.AutoClean {
		if keep, ok := keepFor(pol, prefix); ok {
			if n := s.cleaner.Clean(prefix, keep); n > 0 {
				s.log.Info("pruned %d old %s archive(s), keeping %d", n, prefix, keep)
			}
		}
	}

	if shouldSync(pol.RemoteSync, prefix) {
		if err := s.remote.Upload(ctx, arch); err != nil {
			switch {
			case errors.Is(err, remote.ErrNotConfigured):
				s.log.Debug("remote sync enabled but no credential configured")
			default:
				s.log.Warn("remote upload of %s failed: %v", arch.Name, err)
			}
		}
	}

	return arch, nil
}

// keepFor resolves the retention limit for a pool. Manual archives are
// not subject to retention.
func keepFor(pol model.BackupPolicy, prefix string) (int, bool) {
	switch prefix {
	case model.PrefixIncremental:
		return pol.Debounce.Keep, true
	case model.PrefixDaily:
		return pol.Scheduled.Keep, true
	default:
		return 0, false
	}
}

// shouldSync applies the per-pool sync toggles. Manual backups mirror
// whenever remote sync is on at all, since they are explicit operator
// actions.
func shouldSync(pol model.RemoteSyncPolicy, prefix string) bool {
	if !pol.Enabled {
		return false
	}
	switch prefix {
	case model.PrefixIncremental:
		return pol.SyncIncremental
	case model.PrefixDaily:
		return pol.SyncDaily
	default:
		return true
	}
}

// Stats combines on-disk pool statistics with today's debounce usage
func (s *Service) Stats() (model.BackupStats, error) {
	stats, err := s.archives.Stats()
	if err != nil {
		return model.BackupStats{}, err
	}
	stats.FiredToday, stats.MaxPerDay = s.debounce.Usage()
	return stats, nil
}

// NextDaily reports the next scheduled daily backup time, zero when the
// daily trigger is disabled.
func (s *Service) NextDaily() time.Time {
	return s.daily.NextRun()
}
