package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmcphee/casewatch/app/watcher"
)

type CheckFeedTask struct {
	Task
	runner CycleRunner
}

func NewCheckFeedTask(runner CycleRunner) *CheckFeedTask {
	return &CheckFeedTask{
		Task:   NewTask(TaskTypeCheckFeed),
		runner: runner,
	}
}

func (t *CheckFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cycle, err := t.runner.TryRun(ctx)
	if errors.Is(err, watcher.ErrCycleInFlight) {
		// A previous cycle is still running; this tick is skipped, not
		// queued behind it.
		slog.Debug("Check cycle still in flight, skipping tick")
		return nil
	}
	if err != nil {
		return fmt.Errorf("check cycle failed: %w", err)
	}

	if cycle.Empty {
		slog.Debug("Task completed", "type", "CheckFeed", "duration", t.GetDuration(), "changes", 0)
		return nil
	}

	slog.Info("Task completed",
		"type", "CheckFeed",
		"duration", t.GetDuration(),
		"changes", cycle.Changes,
		"matched", cycle.Matched,
		"sent", cycle.Sent,
		"failed", cycle.Failed)

	return nil
}
