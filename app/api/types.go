package api

import (
	"context"
	"time"

	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/subscription"
	"github.com/tmcphee/casewatch/app/watcher"
)

// CycleRunner is the slice of the watcher the API drives: a blocking forced
// check plus the outcome of the last completed cycle.
type CycleRunner interface {
	Run(ctx context.Context) (watcher.Cycle, error)
	Stats() (watcher.Cycle, time.Time, bool)
}

var _ CycleRunner = (*watcher.Watcher)(nil)

// CommandHandler executes one textual command for a destination.
type CommandHandler interface {
	Handle(ctx context.Context, destination, text string) (reply string, handled bool)
}

type Handler struct {
	db           *database.DB
	snapshotRepo database.SnapshotRepository
	registry     *subscription.Registry
	runner       CycleRunner
	commands     CommandHandler
	destinations int
}
