package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/subscription"
)

func NewHandler(db *database.DB, snapshotRepo database.SnapshotRepository,
	registry *subscription.Registry, runner CycleRunner,
	commands CommandHandler, destinations int) *Handler {
	return &Handler{
		db:           db,
		snapshotRepo: snapshotRepo,
		registry:     registry,
		runner:       runner,
		commands:     commands,
		destinations: destinations,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"status":    "ok",
	}

	if err := h.db.Ping(); err != nil {
		slog.Error("Database ping failed", "error", err)
		health["status"] = "degraded"
		health["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	if count, err := h.snapshotRepo.CountRecords(); err == nil {
		health["records"] = count
	}
	health["subscriptions"] = h.registry.Count()
	health["destinations"] = h.destinations

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"subscriptions": h.registry.Count(),
	}

	if count, err := h.snapshotRepo.CountRecords(); err == nil {
		stats["records"] = count
	}

	if cycle, at, ok := h.runner.Stats(); ok {
		stats["last_cycle"] = map[string]interface{}{
			"at":      at.Format(time.RFC3339),
			"changes": cycle.Changes,
			"matched": cycle.Matched,
			"sent":    cycle.Sent,
			"failed":  cycle.Failed,
			"empty":   cycle.Empty,
			"initial": cycle.Initial,
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APICheck(c *gin.Context) {
	cycle, err := h.runner.Run(c.Request.Context())
	if err != nil {
		slog.Error("Forced check failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Check failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"changes": cycle.Changes,
		"matched": cycle.Matched,
		"sent":    cycle.Sent,
		"failed":  cycle.Failed,
		"empty":   cycle.Empty,
		"initial": cycle.Initial,
	})
}

type commandRequest struct {
	Destination string `json:"destination" binding:"required"`
	Text        string `json:"text" binding:"required"`
}

func (h *Handler) APICommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	reply, handled := h.commands.Handle(c.Request.Context(), req.Destination, req.Text)
	c.JSON(http.StatusOK, gin.H{
		"reply":   reply,
		"handled": handled,
	})
}

func (h *Handler) APIListSubscriptions(c *gin.Context) {
	entries := h.registry.Entries()

	subscriptions := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		state := "all"
		if len(entry.Filters) > 0 {
			state = "filtered"
		}
		subscriptions = append(subscriptions, map[string]interface{}{
			"destination": entry.Destination,
			"state":       state,
			"filters":     entry.Filters,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
		"total":         len(subscriptions),
	})
}
