package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/pkg/response"
)

// DatasetHandler handles dataset administration
type DatasetHandler struct {
	service *service.DatasetService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

// ImportDatasetRequest is the body of an import
type ImportDatasetRequest struct {
	Refresh bool `json:"refresh"`
}

// ImportDataset imports the configured dataset
// POST /api/admin/datasets/import
func (h *DatasetHandler) ImportDataset(c *gin.Context) {
	var req ImportDatasetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	result, err := h.service.Import(c.Request.Context(), req.Refresh)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// ListDatasets lists the stored datasets
// GET /api/admin/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	datasets, err := h.service.ListDatasets()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, datasets)
}
