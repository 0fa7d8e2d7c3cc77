package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/pkg/response"
)

// TrialHandler handles HTTP requests for trials
type TrialHandler struct {
	service *service.TrialService
}

// NewTrialHandler creates a new trial handler
func NewTrialHandler(service *service.TrialService) *TrialHandler {
	return &TrialHandler{service: service}
}

// GetTrials handles GET /api/v1/trials
func (h *TrialHandler) GetTrials(c *gin.Context) {
	var filter models.TrialFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.service.GetTrials(filter)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// GetTrial handles GET /api/v1/trials/:id
func (h *TrialHandler) GetTrial(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	trial, err := h.service.GetTrial(id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, trial)
}

// GetLabels handles GET /api/v1/trials/:id/labels?source=
func (h *TrialHandler) GetLabels(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	source := c.Query("source")
	labels, err := h.service.GetLabels(id, source)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"source": source, "labels": labels})
}

// GetEvents handles GET /api/v1/trials/:id/events?source=&type=
func (h *TrialHandler) GetEvents(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	types, ok := queryLabels(c, "type")
	if !ok {
		return
	}
	events, err := h.service.GetEvents(id, c.Query("source"), types...)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, events)
}

// GetAgreement handles GET /api/v1/trials/:id/agreement?reference=&candidate=&class=
func (h *TrialHandler) GetAgreement(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	classes, ok := queryLabels(c, "class")
	if !ok {
		return
	}
	report, err := h.service.GetAgreement(id, c.Query("reference"), c.Query("candidate"), classes...)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, report)
}
