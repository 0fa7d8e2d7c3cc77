package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		send func(c *gin.Context)
		code int
		want Response
	}{
		{"success", func(c *gin.Context) { Success(c, 1) }, http.StatusOK, Response{Message: "success", Data: 1.0}},
		{"accepted", func(c *gin.Context) { Accepted(c, "x") }, http.StatusAccepted, Response{Message: "accepted", Data: "x"}},
		{"bad request", func(c *gin.Context) { BadRequest(c, "no") }, http.StatusBadRequest, Response{Code: 400, Message: "no"}},
		{"not found", func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound, Response{Code: 404, Message: "gone"}},
		{"internal", func(c *gin.Context) { InternalError(c, "boom") }, http.StatusInternalServerError, Response{Code: 500, Message: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.send(c)

			assert.Equal(t, tt.code, w.Code)
			var got Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
