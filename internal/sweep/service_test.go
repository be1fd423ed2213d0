package sweep

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.acquired = true
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "sweep-test", Output: io.Discard})
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.runCycle(context.Background())
	if err == nil {
		t.Fatal("expected the cycle to surface the failed job")
	}
	for _, job := range registry.Jobs() {
		if job.(*testJob).runs != 1 {
			t.Fatalf("job %s expected one run, got %d", job.Name(), job.(*testJob).runs)
		}
	}
}

func TestRunCycleCombinesJobFailures(t *testing.T) {
	registry := NewRegistry(
		&testJob{name: "alert-sweep", err: errors.New("scan failed")},
		&testJob{name: "alertlog-cleanup", err: errors.New("db down")},
		&testJob{name: "notification-cleanup"},
	)
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.runCycle(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected two aggregated failures, got %d: %v", got, err)
	}
	for _, fragment := range []string{"alert-sweep", "scan failed", "alertlog-cleanup", "db down"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("combined error missing %q: %v", fragment, err)
		}
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "sweep"}
	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("locked cycle must not run jobs, ran %d", job.runs)
	}
}

func TestRunCycleReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(&testJob{name: "sweep"}),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !lock.acquired || lock.held {
		t.Fatalf("lock must be acquired and released, got %+v", lock)
	}
}

func TestThrottleSuppressesEarlyReruns(t *testing.T) {
	inner := &testJob{name: "cleanup"}
	job := Throttle(inner, 24*time.Hour)

	clock := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	job.(*throttledJob).now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if inner.runs != 1 {
		t.Fatalf("expected one run inside the window, got %d", inner.runs)
	}

	clock = clock.Add(25 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run after window: %v", err)
	}
	if inner.runs != 2 {
		t.Fatalf("expected a second run after the window, got %d", inner.runs)
	}
}

func TestThrottleRetriesFailedRuns(t *testing.T) {
	inner := &testJob{name: "cleanup", err: errors.New("db down")}
	job := Throttle(inner, 24*time.Hour)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if inner.runs != 2 {
		t.Fatalf("failed run must not consume the window, got %d runs", inner.runs)
	}
}

type fakeEngine struct {
	stats alerts.SweepStats
	err   error
	calls int
}

func (f *fakeEngine) Sweep(context.Context) (alerts.SweepStats, error) {
	f.calls++
	return f.stats, f.err
}

func TestAlertSweepJobRunsEngine(t *testing.T) {
	engine := &fakeEngine{stats: alerts.SweepStats{Evaluated: 12, Dispatched: 3, Suppressed: 2}}
	job, err := NewAlertSweepJob(AlertSweepJobParams{Logger: testLogger(), Engine: engine})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("expected one sweep, got %d", engine.calls)
	}
}

func TestAlertSweepJobPropagatesErrors(t *testing.T) {
	engine := &fakeEngine{err: errors.New("scan failed")}
	job, err := NewAlertSweepJob(AlertSweepJobParams{Logger: testLogger(), Engine: engine})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
