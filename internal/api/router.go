package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/gaze-events-backend-go/internal/analysis"
	_ "github.com/jengzang/gaze-events-backend-go/internal/analysis/classification"
	_ "github.com/jengzang/gaze-events-backend-go/internal/analysis/outliers"
	"github.com/jengzang/gaze-events-backend-go/internal/config"
	"github.com/jengzang/gaze-events-backend-go/internal/dataset"
	"github.com/jengzang/gaze-events-backend-go/internal/handler"
	"github.com/jengzang/gaze-events-backend-go/internal/middleware"
	"github.com/jengzang/gaze-events-backend-go/internal/repository"
	"github.com/jengzang/gaze-events-backend-go/internal/service"
)

// App is the HTTP application with the background run workers it owns
type App struct {
	Router *gin.Engine
	Runs   *service.RunService

	limiter *middleware.RateLimiter
}

// Close cancels active runs and stops the rate limiter
func (a *App) Close() {
	a.Runs.Shutdown()
	a.limiter.Close()
}

// NewApp wires repositories, services and handlers and sets up the routes
func NewApp(cfg *config.Config, db *sql.DB) *App {
	env := analysis.Env{DB: db, Defaults: cfg.Detectors}

	trials := repository.NewTrialRepository(db)
	labels := repository.NewLabelRepository(db)

	runs := service.NewRunService(env)
	classify := handler.NewClassifyHandler(service.NewClassifyService(cfg.Detectors, cfg.Screen, cfg.ViewerDistanceCm))
	trialHandler := handler.NewTrialHandler(service.NewTrialService(trials, labels))
	datasetHandler := handler.NewDatasetHandler(service.NewDatasetService(
		repository.NewDatasetRepository(db),
		dataset.NewArchiveLoader(nil, cfg.SnapshotDir),
		cfg.Dataset,
	))
	runHandler := handler.NewRunHandler(runs)
	profileHandler := handler.NewProfileHandler(service.NewProfileService(repository.NewProfileRepository(db)))

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Gaze Events API is running",
		})
	})

	v1 := r.Group("/api/v1", middleware.RateLimit(limiter))
	{
		v1.GET("/algorithms", classify.ListAlgorithms)
		v1.POST("/classify/:algorithm", classify.Classify)

		trialRoutes := v1.Group("/trials")
		{
			trialRoutes.GET("", trialHandler.GetTrials)
			trialRoutes.GET("/:id", trialHandler.GetTrial)
			trialRoutes.GET("/:id/labels", trialHandler.GetLabels)
			trialRoutes.GET("/:id/events", trialHandler.GetEvents)
			trialRoutes.GET("/:id/agreement", trialHandler.GetAgreement)
		}
	}

	admin := r.Group("/api/admin", middleware.RequireAdmin(cfg.JWTSecret))
	{
		admin.POST("/datasets/import", datasetHandler.ImportDataset)
		admin.GET("/datasets", datasetHandler.ListDatasets)

		admin.POST("/runs", runHandler.CreateRun)
		admin.GET("/runs", runHandler.ListRuns)
		admin.GET("/runs/:id", runHandler.GetRun)
		admin.DELETE("/runs/:id", runHandler.DeleteRun)

		admin.POST("/profiles", profileHandler.CreateProfile)
		admin.GET("/profiles", profileHandler.ListProfiles)
	}

	return &App{Router: r, Runs: runs, limiter: limiter}
}
