package tasks

import (
	"context"

	"github.com/tmcphee/casewatch/app/watcher"
)

// CycleRunner is the slice of the watcher the scheduler drives.
type CycleRunner interface {
	TryRun(ctx context.Context) (watcher.Cycle, error)
}

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application to manage the poll loop.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
