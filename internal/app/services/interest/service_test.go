package interest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingAdvancer struct {
	calls atomic.Int64
}

func (c *countingAdvancer) AdvanceWeek(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := New(&countingAdvancer{}, "not a cron spec", nil)
	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStartStop(t *testing.T) {
	adv := &countingAdvancer{}
	svc := New(adv, "@every 10ms", nil)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for adv.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if adv.calls.Load() == 0 {
		t.Fatal("scheduler never fired")
	}

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestDefaultSchedule(t *testing.T) {
	svc := New(&countingAdvancer{}, "", nil)
	if svc.schedule != DefaultSchedule {
		t.Fatalf("schedule = %q, want default", svc.schedule)
	}
}
