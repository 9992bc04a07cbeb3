// Package testing provides fixtures and helpers shared by the matchmakr tests.
package testing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risseraka/matchmakr/model"
)

// FixedNow is the reference clock used by fixtures so that seniority is deterministic.
var FixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// Clock returns FixedNow.
func Clock() time.Time {
	return FixedNow
}

// YearsAgo returns the unix millisecond timestamp of FixedNow minus years.
func YearsAgo(years float64) int64 {
	return FixedNow.UnixMilli() - int64(years*model.YearMillis)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Profile ids of the sample dataset.
const (
	AliceID int64 = 1
	BobID   int64 = 2
	CarolID int64 = 3
)

// SampleProfiles returns a fresh copy of the Alice/Bob/Carol dataset.
// Alice and Bob endorse each other for Go; Carol's Rust endorsement comes from Bob.
// Ids 10 to 14 are endorsers that are not part of the dataset.
func SampleProfiles() []model.Profile {
	return []model.Profile{
		{
			ID:       CarolID,
			Name:     "Carol",
			Location: "Berlin",
			Skills: []model.Skill{
				{Name: "Rust", EndorsementCount: 1, Endorsers: []int64{BobID}},
			},
			Positions: []model.Position{
				{CompanyName: "Beta", Title: "Engineer", StartDate: YearsAgo(1)},
			},
		},
		{
			ID:       AliceID,
			Name:     "Alice",
			Location: "São Paulo",
			Skills: []model.Skill{
				{Name: "Go", EndorsementCount: 5, Endorsers: []int64{BobID, 10, 11, 12, 13}},
			},
			Positions: []model.Position{
				{CompanyName: "Acme", Title: "Backend Engineer", StartDate: YearsAgo(6)},
			},
		},
		{
			ID:       BobID,
			Name:     "Bob",
			Location: "Lisbon",
			Skills: []model.Skill{
				{Name: "Go", EndorsementCount: 2, Endorsers: []int64{AliceID, 14}},
			},
			Positions: []model.Position{
				{CompanyName: "Acme", Title: "Developer", StartDate: YearsAgo(3), EndDate: Ptr(YearsAgo(1))},
			},
		},
	}
}

// SkillMatrixProfiles returns profiles with overlapping skill sets for co-occurrence tests.
func SkillMatrixProfiles() []model.Profile {
	skills := func(names ...string) []model.Skill {
		out := make([]model.Skill, len(names))
		for i, n := range names {
			out[i] = model.Skill{Name: n, EndorsementCount: len(names) - i}
		}
		return out
	}
	return []model.Profile{
		{ID: 101, Name: "Dana", Skills: skills("Go", "Docker", "Kubernetes")},
		{ID: 102, Name: "Eve", Skills: skills("Go", "Docker")},
		{ID: 103, Name: "Frank", Skills: skills("Go", "Rust")},
		{ID: 104, Name: "Grace", Skills: skills("Docker", "Kubernetes")},
		{ID: 105, Name: "Heidi", Skills: skills("Python")},
	}
}

// Pointers returns pointers into profiles.
func Pointers(profiles []model.Profile) []*model.Profile {
	out := make([]*model.Profile, len(profiles))
	for i := range profiles {
		out[i] = &profiles[i]
	}
	return out
}

// WriteDataset writes profiles as <dir>/<name>.json and returns the file path.
func WriteDataset(t *testing.T, dir, name string, profiles []model.Profile) string {
	t.Helper()

	data, err := json.Marshal(profiles)
	require.NoError(t, err, "Failed to marshal dataset")

	path := filepath.Join(dir, name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644), "Failed to write dataset")
	return path
}

// JobGetter is the part of the job manager the polling helpers need.
type JobGetter interface {
	GetJob(jobID string) (*model.Job, error)
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  true,
	}
}

// WaitForJobCompletion polls a job until it reaches a terminal status or times out
func WaitForJobCompletion(t *testing.T, jobs JobGetter, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()

	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobs.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted, model.JobStatusFailed:
				return job
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedDataset string) {
	t.Helper()

	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedDataset, job.Dataset, "Job dataset should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}
