package scheduler

import (
	"testing"

	"github.com/quaynav/quay/internal/model"
)

func TestDailyApplyAndReschedule(t *testing.T) {
	d := NewDaily(testLogger(), func() error { return nil })
	d.Start()
	defer d.Stop()

	pol := model.ScheduledPolicy{Enabled: true, Hour: 3, Minute: 30, Keep: 7}
	d.Apply(pol)

	next := d.NextRun()
	if next.IsZero() {
		t.Fatal("NextRun() is zero after enabling")
	}
	if next.Hour() != 3 || next.Minute() != 30 {
		t.Errorf("NextRun() = %s, want a 03:30 fire time", next)
	}

	pol.Hour, pol.Minute = 22, 15
	d.Apply(pol)
	next = d.NextRun()
	if next.Hour() != 22 || next.Minute() != 15 {
		t.Errorf("NextRun() after reschedule = %s, want a 22:15 fire time", next)
	}
}

func TestDailyDisableRemovesEntry(t *testing.T) {
	d := NewDaily(testLogger(), func() error { return nil })
	d.Start()
	defer d.Stop()

	d.Apply(model.ScheduledPolicy{Enabled: true, Hour: 2, Minute: 0, Keep: 7})
	if d.NextRun().IsZero() {
		t.Fatal("NextRun() is zero after enabling")
	}

	d.Apply(model.ScheduledPolicy{Enabled: false})
	if !d.NextRun().IsZero() {
		t.Error("NextRun() is set after disabling")
	}
}
