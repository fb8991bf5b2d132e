package jobs

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(vec *prometheus.CounterVec, labels ...string) float64 {
	metric, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return -1
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func getHistogramVecSample(vec *prometheus.HistogramVec, labels ...string) (uint64, float64) {
	metric, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, -1
	}
	m, ok := metric.(prometheus.Metric)
	if !ok {
		return 0, -1
	}
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return 0, -1
	}
	return out.GetHistogram().GetSampleCount(), out.GetHistogram().GetSampleSum()
}

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if len(m.Collectors()) != 3 {
		t.Errorf("expected 3 collectors, got %d", len(m.Collectors()))
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.IncJobsTotal(JobTypeSessionRefresh, StatusSuccess)
		m.ObserveJobDuration(JobTypeSessionRefresh, 1.0)
		m.IncJobErrors(JobTypeSessionRefresh, "timeout")

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}

		expected := map[string]bool{
			metricsNamespace + "_" + MetricBackgroundJobsTotal:      false,
			metricsNamespace + "_" + MetricBackgroundJobsDuration:   false,
			metricsNamespace + "_" + MetricBackgroundJobErrorsTotal: false,
		}
		for _, family := range families {
			if _, ok := expected[family.GetName()]; ok {
				expected[family.GetName()] = true
			}
		}
		for name, found := range expected {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	testCases := []struct {
		status string
		count  int
	}{
		{StatusSuccess, 10},
		{StatusFailure, 2},
	}

	for _, tc := range testCases {
		for i := 0; i < tc.count; i++ {
			m.IncJobsTotal(JobTypeSessionRefresh, tc.status)
		}
		if got := getCounterVecValue(m.jobsTotal, JobTypeSessionRefresh, tc.status); got != float64(tc.count) {
			t.Errorf("jobsTotal %s = %f, want %d", tc.status, got, tc.count)
		}
	}

	m.IncJobErrors(JobTypeSessionRefresh, "timeout")
	m.IncJobErrors(JobTypeSessionRefresh, "load_error")
	m.IncJobErrors(JobTypeSessionRefresh, "load_error")
	if got := getCounterVecValue(m.jobErrors, JobTypeSessionRefresh, "load_error"); got != 2 {
		t.Errorf("jobErrors load_error = %f, want 2", got)
	}
}

func TestMetrics_ObserveJobDuration(t *testing.T) {
	m := NewMetrics()
	durations := []float64{0.05, 0.5, 5.0, 30.0, 120.0}

	var expectedSum float64
	for _, d := range durations {
		m.ObserveJobDuration(JobTypeSessionRefresh, d)
		expectedSum += d
	}

	count, sum := getHistogramVecSample(m.jobsDuration, JobTypeSessionRefresh)
	if count != uint64(len(durations)) {
		t.Errorf("sample count = %d, want %d", count, len(durations))
	}
	if sum < expectedSum*0.99 || sum > expectedSum*1.01 {
		t.Errorf("sample sum = %f, want approximately %f", sum, expectedSum)
	}
}

func TestMetrics_Concurrency(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	iterations := 100
	goroutines := 10

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.IncJobsTotal(JobTypeSessionRefresh, StatusSuccess)
				m.ObserveJobDuration(JobTypeSessionRefresh, 1.5)
				m.IncJobErrors(JobTypeSessionRefresh, "test_error")
			}
		}()
	}
	wg.Wait()

	expected := float64(goroutines * iterations)
	if got := getCounterVecValue(m.jobsTotal, JobTypeSessionRefresh, StatusSuccess); got != expected {
		t.Errorf("jobsTotal = %f, want %f", got, expected)
	}
	if got := getCounterVecValue(m.jobErrors, JobTypeSessionRefresh, "test_error"); got != expected {
		t.Errorf("jobErrors = %f, want %f", got, expected)
	}
	if count, _ := getHistogramVecSample(m.jobsDuration, JobTypeSessionRefresh); count != uint64(goroutines*iterations) {
		t.Errorf("jobsDuration count = %d, want %d", count, goroutines*iterations)
	}
}
