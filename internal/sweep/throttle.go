package sweep

import (
	"context"
	"time"
)

// Throttle wraps a job so it runs at most once per interval even though the
// sweep loop ticks far more often. Cleanup jobs ride the same loop as the
// alert sweep but only need to fire daily.
func Throttle(job Job, every time.Duration) Job {
	if job == nil {
		return nil
	}
	if every <= 0 {
		return job
	}
	return &throttledJob{job: job, every: every, now: time.Now}
}

type throttledJob struct {
	job     Job
	every   time.Duration
	lastRun time.Time
	now     func() time.Time
}

func (t *throttledJob) Name() string { return t.job.Name() }

func (t *throttledJob) Run(ctx context.Context) error {
	now := t.now()
	if !t.lastRun.IsZero() && now.Sub(t.lastRun) < t.every {
		return nil
	}
	if err := t.job.Run(ctx); err != nil {
		return err
	}
	t.lastRun = now
	return nil
}
