package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/pkg/response"
)

// RunHandler handles HTTP requests for classification runs
type RunHandler struct {
	service *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(service *service.RunService) *RunHandler {
	return &RunHandler{service: service}
}

// CreateRun creates a run and starts it in the background
// POST /api/admin/runs
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req service.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	run, err := h.service.CreateRun(req, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Accepted(c, run)
}

// GetRun retrieves a run by ID
// GET /api/admin/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	run, err := h.service.GetRun(id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, run)
}

// ListRuns lists runs
// GET /api/admin/runs?skill_name=&status=&limit=&offset=
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	runs, err := h.service.ListRuns(c.Query("skill_name"), c.Query("status"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

// DeleteRun cancels an active run. With purge=true a finished run is deleted
// together with its labels.
// DELETE /api/admin/runs/:id
func (h *RunHandler) DeleteRun(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if c.Query("purge") == "true" {
		if err := h.service.DeleteRun(id); err != nil {
			fail(c, err)
			return
		}
		response.Success(c, gin.H{"message": "Run deleted successfully"})
		return
	}

	if err := h.service.CancelRun(id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Run cancelled successfully"})
}
