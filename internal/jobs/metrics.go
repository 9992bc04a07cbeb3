package jobs

import (
	"sync"
	"time"

	"github.com/risseraka/matchmakr/model"
)

// Recorder receives finished jobs, typically a Prometheus registry.
type Recorder interface {
	RecordJob(jobType, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordJob(string, string, time.Duration) {}

// StatsData is a copy of the job counters (safe for copying)
type StatsData struct {
	JobsCreated          int64                   `json:"jobs_created"`
	JobsCompleted        int64                   `json:"jobs_completed"`
	JobsFailed           int64                   `json:"jobs_failed"`
	AverageExecutionTime time.Duration           `json:"average_execution_time_ns"`
	JobsByType           map[model.JobType]int64 `json:"jobs_by_type"`
}

// SuccessRate returns the share of finished jobs that completed (1 when none finished).
func (d StatsData) SuccessRate() float64 {
	finished := d.JobsCompleted + d.JobsFailed
	if finished == 0 {
		return 1.0
	}
	return float64(d.JobsCompleted) / float64(finished)
}

// Stats tracks in-process job counters
type Stats struct {
	mu                 sync.RWMutex
	created            int64
	completed          int64
	failed             int64
	totalExecutionTime time.Duration
	byType             map[model.JobType]int64
}

// NewStats creates empty counters
func NewStats() *Stats {
	return &Stats{byType: make(map[model.JobType]int64)}
}

func (s *Stats) recordCreated(jobType model.JobType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	s.byType[jobType]++
}

func (s *Stats) recordFinished(jobType model.JobType, status model.JobStatus, executionTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == model.JobStatusFailed {
		s.failed++
		return
	}
	s.completed++
	s.totalExecutionTime += executionTime
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[model.JobType]int64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	data := StatsData{
		JobsCreated:   s.created,
		JobsCompleted: s.completed,
		JobsFailed:    s.failed,
		JobsByType:    byType,
	}
	if s.completed > 0 {
		data.AverageExecutionTime = s.totalExecutionTime / time.Duration(s.completed)
	}
	return data
}
