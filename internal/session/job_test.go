package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/vibemap/internal/review"
)

type recordingJobMetrics struct {
	mu     sync.Mutex
	totals map[string]int
	errors map[string]int
	obs    int
}

func newRecordingJobMetrics() *recordingJobMetrics {
	return &recordingJobMetrics{totals: map[string]int{}, errors: map[string]int{}}
}

func (m *recordingJobMetrics) IncJobsTotal(jobType, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[jobType+"/"+status]++
}

func (m *recordingJobMetrics) ObserveJobDuration(jobType string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs++
}

func (m *recordingJobMetrics) IncJobErrors(jobType, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[jobType+"/"+errorType]++
}

func (m *recordingJobMetrics) total(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[key]
}

func TestRefreshJob_StartStop(t *testing.T) {
	f := newFixture(t)
	job := NewRefreshJob(RefreshJobConfig{Interval: 100 * time.Millisecond, Logger: testLogger()}, f.session)

	if job.IsRunning() {
		t.Error("job should not be running before Start")
	}

	ctx := context.Background()
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !job.IsRunning() {
		t.Error("job should be running after Start")
	}
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() second call error = %v", err)
	}

	job.Stop()
	if job.IsRunning() {
		t.Error("job should not be running after Stop")
	}
	job.Stop()
}

func TestRefreshJob_RestartAfterCancel(t *testing.T) {
	f := newFixture(t)
	job := NewRefreshJob(RefreshJobConfig{Interval: time.Hour, Logger: testLogger()}, f.session)

	ctx, cancel := context.WithCancel(context.Background())
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for job.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if job.IsRunning() {
		t.Fatal("job should stop running once its context is cancelled")
	}

	if err := job.Start(context.Background()); err != nil {
		t.Fatalf("Start() after cancel error = %v", err)
	}
	if !job.IsRunning() {
		t.Error("job should run again after a restart")
	}
	job.Stop()
	if job.IsRunning() {
		t.Error("job should not be running after Stop")
	}
}

func TestRefreshJob_PicksUpExternalReviews(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	metrics := newRecordingJobMetrics()
	job := NewRefreshJob(RefreshJobConfig{Interval: 20 * time.Millisecond, Logger: testLogger(), JobMetrics: metrics}, f.session)

	// Written by another instance, bypassing this session.
	f.reviews.Add(&review.Review{PlaceID: "p3", Occasion: "Late night", Food: 4, Value: 4, Vibe: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := job.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for metrics.total(jobType+"/success") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	job.Stop()

	status, _ := f.session.Status()
	if status.Reviews != 4 {
		t.Errorf("expected refreshed snapshot with 4 reviews, got %d", status.Reviews)
	}
	if metrics.total(jobType+"/success") == 0 {
		t.Error("expected at least one successful refresh to be recorded")
	}
}

func TestRefreshJob_RecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.session.places = failingPlaces{Repository: f.places}

	metrics := newRecordingJobMetrics()
	job := NewRefreshJob(RefreshJobConfig{Logger: testLogger(), JobMetrics: metrics}, f.session)

	if err := job.RefreshNow(context.Background()); err == nil {
		t.Fatal("expected RefreshNow to fail")
	}
	if metrics.total(jobType+"/failure") != 1 {
		t.Errorf("expected one failure, got %v", metrics.totals)
	}
	if metrics.errors[jobType+"/load_error"] != 1 {
		t.Errorf("expected load_error to be counted, got %v", metrics.errors)
	}
	if metrics.obs != 1 {
		t.Errorf("expected one duration sample, got %d", metrics.obs)
	}
}

func TestRefreshJob_TimeoutErrorType(t *testing.T) {
	f := newFixture(t)
	metrics := newRecordingJobMetrics()
	job := NewRefreshJob(RefreshJobConfig{Logger: testLogger(), JobMetrics: metrics}, f.session)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	f.session.places = slowPlaces{Repository: f.places}
	err := job.RefreshNow(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if metrics.errors[jobType+"/timeout"] != 1 {
		t.Errorf("expected timeout to be counted, got %v", metrics.errors)
	}
}
