package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orchids/queue-dashboard/internal/domain"
	"github.com/orchids/queue-dashboard/internal/engine"
	"github.com/orchids/queue-dashboard/pkg/logger"
	"github.com/orchids/queue-dashboard/pkg/response"
)

// pauseReason tags pauses initiated through the dashboard API so worker-side
// tooling can tell them apart from operational pauses.
const pauseReason = "dashboard"

type QueueHandler struct {
	engine engine.Engine
	log    *logger.Logger
}

// NewQueueHandler builds the queue CRUD handler. eng may be nil: the server
// then runs degraded, read endpoints answer with empty collections and
// mutations with 503.
func NewQueueHandler(eng engine.Engine, log *logger.Logger) *QueueHandler {
	return &QueueHandler{engine: eng, log: log}
}

func (h *QueueHandler) ListQueues(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusOK, gin.H{"queues": []domain.Queue{}, "total": 0})
		return
	}

	queues, err := h.engine.GetAllQueues(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to list queues", err, nil)
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"queues": queues, "total": len(queues)})
}

type createQueueRequest struct {
	Name        string `json:"name"`
	QueueID     string `json:"queueId"`
	Description string `json:"description"`
	MaxSize     int    `json:"maxSize"`
}

func (h *QueueHandler) CreateQueue(c *gin.Context) {
	var req createQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		response.ValidationError(c, domain.ErrInvalidName.Error())
		return
	}
	if strings.TrimSpace(req.QueueID) == "" {
		response.ValidationError(c, domain.ErrInvalidQueueID.Error())
		return
	}
	if req.MaxSize <= 0 {
		req.MaxSize = domain.DefaultMaxSize
	}

	if h.engine == nil {
		response.ServiceUnavailable(c, domain.ErrEngineUnavailable.Error())
		return
	}

	queue, err := h.engine.CreateQueue(c.Request.Context(), domain.QueueSpec{
		ID:          strings.TrimSpace(req.QueueID),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		MaxSize:     req.MaxSize,
	})
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to create queue", err, map[string]interface{}{
			"queue_id": req.QueueID,
		})
		response.BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, queue)
}

func (h *QueueHandler) DeleteQueue(c *gin.Context) {
	queueID := c.Param("queueId")

	if h.engine == nil {
		response.ServiceUnavailable(c, domain.ErrEngineUnavailable.Error())
		return
	}

	if err := h.engine.DeleteQueue(c.Request.Context(), queueID); err != nil {
		h.log.Error(c.Request.Context(), "failed to delete queue", err, map[string]interface{}{
			"queue_id": queueID,
		})
		response.BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *QueueHandler) PauseQueue(c *gin.Context) {
	queueID := c.Param("queueId")

	if h.engine == nil {
		response.ServiceUnavailable(c, domain.ErrEngineUnavailable.Error())
		return
	}

	if err := h.engine.PauseQueue(c.Request.Context(), queueID, pauseReason); err != nil {
		h.log.Error(c.Request.Context(), "failed to pause queue", err, map[string]interface{}{
			"queue_id": queueID,
		})
		response.BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *QueueHandler) ResumeQueue(c *gin.Context) {
	queueID := c.Param("queueId")

	if h.engine == nil {
		response.ServiceUnavailable(c, domain.ErrEngineUnavailable.Error())
		return
	}

	if err := h.engine.ResumeQueue(c.Request.Context(), queueID); err != nil {
		h.log.Error(c.Request.Context(), "failed to resume queue", err, map[string]interface{}{
			"queue_id": queueID,
		})
		response.BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *QueueHandler) ListQueueJobs(c *gin.Context) {
	queueID := c.Param("queueId")
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	if h.engine == nil {
		c.JSON(http.StatusOK, []domain.Job{})
		return
	}

	jobs, err := h.engine.GetQueueItems(c.Request.Context(), queueID, limit, offset)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to list queue jobs", err, map[string]interface{}{
			"queue_id": queueID,
		})
		response.InternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, jobs)
}

type addJobRequest struct {
	Data     json.RawMessage `json:"data"`
	Priority int             `json:"priority"`
}

func (h *QueueHandler) AddJob(c *gin.Context) {
	queueID := c.Param("queueId")

	var req addJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body")
		return
	}
	if len(req.Data) == 0 {
		response.ValidationError(c, "data is required")
		return
	}

	if h.engine == nil {
		response.ServiceUnavailable(c, domain.ErrEngineUnavailable.Error())
		return
	}

	job, err := h.engine.AddJob(c.Request.Context(), queueID, req.Data, req.Priority)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to add job", err, map[string]interface{}{
			"queue_id": queueID,
		})
		response.BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *QueueHandler) CancelJob(c *gin.Context) {
	queueID := c.Param("queueId")
	jobID := c.Param("jobId")

	if h.engine == nil {
		response.ServiceUnavailable(c, domain.ErrEngineUnavailable.Error())
		return
	}

	if err := h.engine.CancelJob(c.Request.Context(), queueID, jobID); err != nil {
		h.log.Error(c.Request.Context(), "failed to cancel job", err, map[string]interface{}{
			"queue_id": queueID,
			"job_id":   jobID,
		})
		response.BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func intQuery(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
