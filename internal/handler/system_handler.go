package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orchids/queue-dashboard/internal/engine"
	"github.com/orchids/queue-dashboard/internal/stats"
	"github.com/orchids/queue-dashboard/pkg/logger"
	"github.com/orchids/queue-dashboard/pkg/response"
)

type SystemHandler struct {
	engine engine.Engine
	agg    *stats.Aggregator
	log    *logger.Logger
}

func NewSystemHandler(eng engine.Engine, agg *stats.Aggregator, log *logger.Logger) *SystemHandler {
	return &SystemHandler{engine: eng, agg: agg, log: log}
}

func (h *SystemHandler) Health(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusOK, gin.H{"status": "demo"})
		return
	}

	health, err := h.engine.Health(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "engine health check failed", err, nil)
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *SystemHandler) SystemStats(c *gin.Context) {
	snapshot, err := h.agg.ComputeSystemStats(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to compute system stats", err, nil)
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *SystemHandler) ListWorkers(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusOK, gin.H{"workers": []engine.WorkerInfo{}, "count": 0})
		return
	}

	workers, err := h.engine.Workers(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to list workers", err, nil)
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"workers": workers, "count": len(workers)})
}
