package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/model"
)

// JobFunc is the body of a background job.
type JobFunc func(ctx context.Context, jobID string) error

// Manager handles background job execution and tracking.
// Jobs run on a bounded ants pool; Stop cancels running jobs and waits for them.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*model.Job
	pool     *ants.Pool
	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	stats    *Stats
	recorder Recorder
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder reports finished jobs to r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, opts ...Option) (*Manager, error) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	pool, err := ants.NewPool(maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to create job pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		jobs:     make(map[string]*model.Job),
		pool:     pool,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
		stats:    NewStats(),
		recorder: nopRecorder{},
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start begins background cleanup of finished jobs.
func (m *Manager) Start() {
	m.logger.Info("Job manager started", "max_workers", m.pool.Cap())
	go m.cleanupRoutine()
}

// Stop cancels running jobs, waits for them and releases the pool.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.cancel()
		m.wg.Wait()
		m.pool.Release()
		m.logger.Info("Job manager stopped")
	})
}

// CreateJob creates a new pending job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, dataset string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		Dataset:   dataset,
		CreatedAt: m.now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.stats.recordCreated(jobType)
	m.logger.Debug("Created job", "job_id", job.ID, "type", job.Type, "dataset", dataset)
	return job.ID
}

// GetJob retrieves a copy of a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns copies of the jobs of a dataset, newest first.
// An empty dataset lists every job.
func (m *Manager) ListJobs(dataset string) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if dataset == "" || job.Dataset == dataset {
			result = append(result, copyJob(job))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy
}

// ExecuteJob runs a pending job on the worker pool.
func (m *Manager) ExecuteJob(jobID string, jobFunc JobFunc) error {
	select {
	case <-m.stopChan:
		return fmt.Errorf("job manager is shutting down")
	default:
	}

	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	jobType := job.Type
	m.mu.Unlock()

	m.wg.Add(1)
	task := func() {
		defer m.wg.Done()
		m.setRunning(jobID)

		startTime := m.now()
		err := jobFunc(m.ctx, jobID)
		executionTime := m.now().Sub(startTime)

		if err != nil {
			m.finish(jobID, model.JobStatusFailed, err.Error())
			m.stats.recordFinished(jobType, model.JobStatusFailed, executionTime)
			m.recorder.RecordJob(string(jobType), string(model.JobStatusFailed), executionTime)
			m.logger.Warn("Job failed", "job_id", jobID, "took", executionTime, "error", err)
			return
		}
		m.finish(jobID, model.JobStatusCompleted, "")
		m.stats.recordFinished(jobType, model.JobStatusCompleted, executionTime)
		m.recorder.RecordJob(string(jobType), string(model.JobStatusCompleted), executionTime)
		m.logger.Info("Job completed", "job_id", jobID, "took", executionTime)
	}

	if err := m.pool.Submit(task); err != nil {
		m.wg.Done()
		m.finish(jobID, model.JobStatusFailed, err.Error())
		return fmt.Errorf("failed to schedule job %s: %w", jobID, err)
	}
	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

func (m *Manager) setRunning(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[jobID]; ok {
		now := m.now()
		job.Status = model.JobStatusRunning
		job.StartedAt = &now
	}
}

func (m *Manager) finish(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	now := m.now()
	job.CompletedAt = &now
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(24 * time.Hour)
		case <-m.stopChan:
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than maxAge
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}
	if cleaned > 0 {
		m.logger.Debug("Cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// Stats returns a snapshot of job counters.
func (m *Manager) Stats() StatsData {
	return m.stats.Snapshot()
}
