package engine

import (
	"context"
	"fmt"

	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/store"
)

// ReloadAsync schedules a reload of name and returns the job id to poll.
func (e *Engine) ReloadAsync(name string) (string, error) {
	if err := store.ValidateName(name); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeReloadDataset, name, map[string]string{
		"operation": "reload_dataset",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, jobID string) error {
		return e.executeReloadJob(ctx, name, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start reload job: %w", err)
	}
	return jobID, nil
}

func (e *Engine) executeReloadJob(ctx context.Context, name, jobID string) error {
	progress := func(current, total int, message string) {
		e.jobManager.UpdateJobProgress(jobID, current, total, message)
	}
	if _, err := e.load(ctx, name, progress); err != nil {
		return fmt.Errorf("reload of dataset '%s' failed: %w", name, err)
	}
	return nil
}
