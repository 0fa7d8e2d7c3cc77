package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/pkg/response"
)

// ClassifyHandler handles stateless classification requests
type ClassifyHandler struct {
	service *service.ClassifyService
}

// NewClassifyHandler creates a new classify handler
func NewClassifyHandler(service *service.ClassifyService) *ClassifyHandler {
	return &ClassifyHandler{service: service}
}

// ListAlgorithms lists the detectors and their default params
// GET /api/v1/algorithms
func (h *ClassifyHandler) ListAlgorithms(c *gin.Context) {
	response.Success(c, h.service.Algorithms())
}

// Classify labels the posted samples
// POST /api/v1/classify/:algorithm
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req service.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Classify(c.Param("algorithm"), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}
