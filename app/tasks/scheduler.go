package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler drives the poll loop: one check task per tick, executed by a
// single worker. The queue holds at most one pending check, so ticks that
// fire while a cycle is running (or already pending) are dropped, never
// queued behind it.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan TaskInterface
}

func NewScheduler(runner CycleRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan TaskInterface, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// Prime the baseline (or catch up) immediately on startup.
		s.enqueueCheck()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueCheck()
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight task, if any, to
// finish. Cycles are never interrupted mid-send.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.queue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueCheck() {
	// A full queue means a check is already pending behind the running
	// cycle; this tick is skipped, not queued.
	if err := s.EnqueueTask(NewCheckFeedTask(s.runner)); err != nil {
		slog.Debug("Tick skipped", "reason", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.queue:
			// Stop may have raced the select; no new cycle starts
			// after it.
			if s.ctx.Err() != nil {
				return
			}
			s.executeTask(task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	// Not derived from s.ctx: Stop waits for the in-flight cycle to finish
	// rather than interrupting its sends. The deadline still bounds a hung
	// upstream.
	taskCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		// Log and move on: the next tick re-polls and state was left
		// untouched by the failed cycle.
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}
}
