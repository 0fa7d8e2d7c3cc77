package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/detector"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
	"github.com/jengzang/gaze-events-backend-go/pkg/response"
)

// statusOf maps service errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, detector.ErrInvalidConfig),
		errors.Is(err, detector.ErrInvalidSample),
		errors.Is(err, detector.ErrUnknownDetector):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	response.Error(c, statusOf(err), err.Error())
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid ID")
		return 0, false
	}
	return id, true
}

func queryLabels(c *gin.Context, key string) ([]models.Label, bool) {
	var out []models.Label
	for _, v := range c.QueryArray(key) {
		l, err := models.ParseLabel(v, false)
		if err != nil {
			response.BadRequest(c, err.Error())
			return nil, false
		}
		out = append(out, l)
	}
	return out, true
}

func currentUser(c *gin.Context) string {
	if user := c.GetString("user"); user != "" {
		return user
	}
	return "admin"
}
