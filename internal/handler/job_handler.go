package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchids/queue-dashboard/internal/stats"
	"github.com/orchids/queue-dashboard/pkg/logger"
	"github.com/orchids/queue-dashboard/pkg/response"
)

// JobHandler serves the cross-queue views: all jobs and recent activity.
// Both lean on the aggregator's scan so the three summary endpoints share a
// single implementation.
type JobHandler struct {
	agg *stats.Aggregator
	log *logger.Logger
}

func NewJobHandler(agg *stats.Aggregator, log *logger.Logger) *JobHandler {
	return &JobHandler{agg: agg, log: log}
}

func (h *JobHandler) ListAllJobs(c *gin.Context) {
	limit := intQuery(c, "limit", 100)

	jobs, err := h.agg.AllJobs(c.Request.Context(), limit)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to list all jobs", err, nil)
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) RecentActivity(c *gin.Context) {
	limit := intQuery(c, "limit", 20)

	activity, err := h.agg.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to fetch recent activity", err, nil)
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, activity)
}
