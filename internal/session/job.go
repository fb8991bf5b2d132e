package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// jobType labels refresh runs in the background job metrics.
const jobType = "session_refresh"

// DefaultRefreshInterval is the default interval between reloads.
const DefaultRefreshInterval = 60 * time.Second

// JobMetrics provides centralized background job metrics tracking.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// RefreshJobConfig configures the periodic session reload.
type RefreshJobConfig struct {
	// Interval is the duration between reloads.
	Interval time.Duration
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking. Optional.
	JobMetrics JobMetrics
}

// RefreshJob periodically reloads a Session so reviews written by other
// instances show up in rankings.
type RefreshJob struct {
	config  RefreshJobConfig
	session *Session

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshJob creates a refresh job for s.
func NewRefreshJob(config RefreshJobConfig, s *Session) *RefreshJob {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RefreshJob{config: config, session: s}
}

// Start begins the periodic reload.
// Returns immediately; the job runs in a background goroutine.
func (j *RefreshJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	stopCh, doneCh := j.stopCh, j.doneCh
	j.mu.Unlock()

	go j.run(ctx, stopCh, doneCh)
	return nil
}

// Stop signals the job to stop and waits for it to finish.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	if !j.running || j.stopCh == nil {
		j.mu.Unlock()
		return
	}
	stopCh, doneCh := j.stopCh, j.doneCh
	j.stopCh = nil
	j.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning returns whether the job is currently running.
func (j *RefreshJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run clears running on exit, whether stopped or cancelled, so the job can
// be started again.
func (j *RefreshJob) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("session refresh job stopping due to context cancellation")
			return
		case <-stopCh:
			j.config.Logger.Info("session refresh job stopping due to stop signal")
			return
		case <-ticker.C:
			_ = j.RefreshNow(ctx)
		}
	}
}

// RefreshNow reloads the session immediately and records job metrics.
func (j *RefreshJob) RefreshNow(ctx context.Context) error {
	start := time.Now()
	err := j.session.Load(ctx)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "failure"
		j.config.Logger.Error("session refresh failed", "error", err)
		if j.config.JobMetrics != nil {
			errorType := "load_error"
			if errors.Is(err, context.DeadlineExceeded) {
				errorType = "timeout"
			}
			j.config.JobMetrics.IncJobErrors(jobType, errorType)
		}
	}

	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobType, status)
		j.config.JobMetrics.ObserveJobDuration(jobType, duration)
	}
	return err
}
