package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/pkg/response"
)

// ProfileHandler handles threshold profiles
type ProfileHandler struct {
	service *service.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// CreateProfile handles POST /api/admin/profiles
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req service.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	profile, err := h.service.CreateProfile(req, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, profile)
}

// ListProfiles handles GET /api/admin/profiles?skill_name=
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.service.ListProfiles(c.Query("skill_name"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, profiles)
}
