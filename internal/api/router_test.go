package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/config"
	"github.com/jengzang/gaze-events-backend-go/internal/database"
	"github.com/jengzang/gaze-events-backend-go/internal/middleware"
	"github.com/jengzang/gaze-events-backend-go/internal/models"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t     *testing.T
	app   *App
	db    *sql.DB
	token string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := config.Default()
	cfg.JWTSecret = "router-test"
	cfg.RateLimit = 1000
	cfg.SnapshotDir = ""
	app := NewApp(cfg, db)
	t.Cleanup(func() {
		app.Close()
		db.Close()
	})

	token, err := middleware.IssueToken(cfg.JWTSecret, "tester", middleware.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return &testApp{t: t, app: app, db: db, token: token}
}

func (a *testApp) do(method, path string, body interface{}, admin bool) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.app.Router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *testApp) seed() int64 {
	trial := models.Trial{
		SubjectID: "UH21", StimulusType: "img", StimulusName: "Rome", SamplingRateHz: 500,
		Raters: map[string][]models.Label{"RA": {1, 1, 1, 2, 2, 1}},
	}
	for i, x := range []float64{0, 0.1, 0.2, 50, 100, 100.1} {
		trial.Samples = append(trial.Samples, models.GazeSample{Index: i, TimeMs: float64(i) * 2, X: x})
	}
	trials := []models.Trial{trial}
	require.NoError(a.t, repository.NewDatasetRepository(a.db).Import(&models.Dataset{UUID: "u", Name: "mini"}, trials))
	return trials[0].ID
}

func TestHealthAndCORS(t *testing.T) {
	a := newTestApp(t)
	code, _ := a.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/algorithms", nil)
	w := httptest.NewRecorder()
	a.app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestClassifyEndpoint(t *testing.T) {
	a := newTestApp(t)

	code, env := a.do(http.MethodGet, "/api/v1/algorithms", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"idt"`)

	body := map[string]interface{}{
		"samples": []map[string]interface{}{{"x": 0, "y": 0}, {"x": 3, "y": 4}, {"x": nil, "y": nil}},
		"params":  map[string]interface{}{"velocity_threshold": 5.0},
		"events":  true,
	}
	code, env = a.do(http.MethodPost, "/api/v1/classify/ivt", body, false)
	require.Equal(t, http.StatusOK, code, env.Message)

	var result struct {
		Labels []models.Label     `json:"labels"`
		Events []models.GazeEvent `json:"events"`
		Counts map[string]int     `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []models.Label{1, 1, 0}, result.Labels)
	assert.Len(t, result.Events, 2)

	code, _ = a.do(http.MethodPost, "/api/v1/classify/hmm", body, false)
	assert.Equal(t, http.StatusBadRequest, code)

	body["params"] = map[string]interface{}{"window_size": 1}
	code, _ = a.do(http.MethodPost, "/api/v1/classify/idt", body, false)
	assert.Equal(t, http.StatusBadRequest, code)

	body["strict"] = true
	code, _ = a.do(http.MethodPost, "/api/v1/classify/ivt", body, false)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTrialEndpoints(t *testing.T) {
	a := newTestApp(t)
	id := a.seed()
	base := "/api/v1/trials/" + jsonID(id)

	code, env := a.do(http.MethodGet, "/api/v1/trials?pageSize=5", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, _ = a.do(http.MethodGet, base, nil, false)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/v1/trials/999", nil, false)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/api/v1/trials/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodGet, base+"/labels?source=RA", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"saccade"`)
	code, _ = a.do(http.MethodGet, base+"/labels", nil, false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodGet, base+"/events?source=RA&type=saccade", nil, false)
	require.Equal(t, http.StatusOK, code)
	var events []models.GazeEvent
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Len(t, events, 1)

	code, env = a.do(http.MethodGet, base+"/agreement?reference=RA&candidate=RA", nil, false)
	require.Equal(t, http.StatusOK, code)
	var report models.AgreementReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1.0, report.Kappa)
}

func TestAdminRequiresToken(t *testing.T) {
	a := newTestApp(t)
	code, _ := a.do(http.MethodGet, "/api/admin/runs", nil, false)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRunEndpoints(t *testing.T) {
	a := newTestApp(t)
	trialID := a.seed()

	code, env := a.do(http.MethodPost, "/api/admin/profiles", map[string]interface{}{
		"name": "strict", "skill_name": "ivt", "params": map[string]interface{}{"velocity_threshold": 1},
	}, true)
	require.Equal(t, http.StatusOK, code, env.Message)
	var profile models.ThresholdProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))

	code, env = a.do(http.MethodPost, "/api/admin/runs", map[string]interface{}{
		"skill_name": "ivt", "mode": "FULL_RECOMPUTE", "threshold_profile_id": profile.ID,
	}, true)
	require.Equal(t, http.StatusAccepted, code, env.Message)
	var run models.ClassificationRun
	require.NoError(t, json.Unmarshal(env.Data, &run))

	a.app.Runs.Wait()
	code, env = a.do(http.MethodGet, "/api/admin/runs/"+jsonID(run.ID), nil, true)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, models.RunStatusCompleted, run.Status, run.ErrorMessage)

	code, env = a.do(http.MethodGet, "/api/v1/trials/"+jsonID(trialID)+"/agreement?reference=RA&candidate="+run.LabelSource(), nil, false)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"accuracy":1`)

	code, _ = a.do(http.MethodDelete, "/api/admin/runs/"+jsonID(run.ID), nil, true)
	assert.Equal(t, http.StatusBadRequest, code, "completed runs cannot be cancelled")
	code, _ = a.do(http.MethodDelete, "/api/admin/runs/"+jsonID(run.ID)+"?purge=true", nil, true)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/admin/runs/"+jsonID(run.ID), nil, true)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodPost, "/api/admin/runs", map[string]interface{}{"skill_name": "nope"}, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodGet, "/api/admin/profiles?skill_name=ivt", nil, true)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"strict"`)

	code, env = a.do(http.MethodGet, "/api/admin/datasets", nil, true)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"mini"`)
}

func jsonID(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}
