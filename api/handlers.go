// Package api exposes the engine over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/risseraka/matchmakr/internal/engine"
	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/internal/metrics"
	"github.com/risseraka/matchmakr/internal/search"
	"github.com/risseraka/matchmakr/internal/skills"
	"github.com/risseraka/matchmakr/internal/suggest"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

// maxSaveBodySize bounds POST /save bodies.
const maxSaveBodySize = 1 << 20

// Engine is the part of *engine.Engine the handlers use.
type Engine interface {
	ListDatasets(ctx context.Context) ([]engine.DatasetInfo, error)
	Summary(ctx context.Context, dataset string) (indexing.Summary, error)
	ReloadAsync(dataset string) (string, error)
	GetJobManager() services.JobManager

	Query(ctx context.Context, dataset string, params search.Params) (*search.Result, error)
	GetProfile(ctx context.Context, dataset string, id int64) (*engine.ProfileView, error)
	Suggest(ctx context.Context, dataset, text string) (*suggest.Result, error)

	Relations(ctx context.Context, dataset string) ([]model.Relation, error)
	RelatedSkills(ctx context.Context, dataset, name string) ([]model.SkillCount, error)
	TopSkills(ctx context.Context, dataset, name string) ([]skills.TopSkill, error)
	MapField(ctx context.Context, dataset, field, q string) (*engine.FieldListing, error)
	Related(ctx context.Context, dataset, field, name, related string) (*engine.RelatedListing, error)

	SavedSearches(ctx context.Context) ([]model.SavedSearch, error)
	SavedSearch(ctx context.Context, dataset, key string) (*engine.SavedSearchResult, error)
	Save(ctx context.Context, table, key, value string) (model.SavedSearch, error)
}

var _ Engine = (*engine.Engine)(nil)

// API holds dependencies for API handlers, primarily the engine.
type API struct {
	engine Engine
	logger *logging.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(eng Engine, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Nop()
	}
	return &API{engine: eng, logger: logger}
}

// SetupRoutes defines all the API routes. reg may be nil, which disables
// request metrics and the /metrics endpoint.
func SetupRoutes(router *gin.Engine, eng Engine, reg *metrics.Registry, logger *logging.Logger) {
	apiHandler := NewAPI(eng, logger)

	router.Use(RequestIDMiddleware(), LoggingMiddleware(apiHandler.logger), CORSMiddleware())
	if reg != nil {
		router.Use(MetricsMiddleware(reg))
		router.GET("/metrics", gin.WrapH(reg.Handler()))
	}

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/jobs/:jobId", apiHandler.GetJobHandler)

	router.GET("/savedSearches", apiHandler.ListSavedSearchesHandler)
	router.POST("/save", RequestSizeLimitMiddleware(maxSaveBodySize), apiHandler.SaveHandler)

	datasetRoutes := router.Group("/datasets")
	{
		datasetRoutes.GET("", apiHandler.ListDatasetsHandler)
		datasetRoutes.GET("/:dataset", apiHandler.GetDatasetHandler)
		datasetRoutes.POST("/:dataset/reload", apiHandler.ReloadDatasetHandler)
		datasetRoutes.GET("/:dataset/jobs", apiHandler.ListJobsHandler)

		datasetRoutes.GET("/:dataset/profiles", apiHandler.QueryProfilesHandler)
		datasetRoutes.GET("/:dataset/profiles/:id", apiHandler.GetProfileHandler)
		datasetRoutes.GET("/:dataset/suggest", apiHandler.SuggestHandler)
		datasetRoutes.GET("/:dataset/relations", apiHandler.RelationsHandler)

		datasetRoutes.GET("/:dataset/skills/:name/related", apiHandler.RelatedSkillsHandler)
		datasetRoutes.GET("/:dataset/skills/:name/top", apiHandler.TopSkillsHandler)

		datasetRoutes.GET("/:dataset/fields/:field", apiHandler.MapFieldHandler)
		datasetRoutes.GET("/:dataset/fields/:field/:name/related/:related", apiHandler.RelatedFieldHandler)

		datasetRoutes.GET("/:dataset/savedSearches/:key", apiHandler.SavedSearchHandler)
	}
}

// HealthCheckHandler reports that the process is serving.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// dataset validates the :dataset path parameter, sending a 400 when it is invalid.
func (api *API) dataset(c *gin.Context) (string, bool) {
	name := c.Param("dataset")
	if result := ValidateDatasetName(name); result.HasErrors() {
		SendValidationError(c, result)
		return "", false
	}
	return name, true
}

// ListDatasetsHandler lists the datasets known to the loader.
func (api *API) ListDatasetsHandler(c *gin.Context) {
	datasets, err := api.engine.ListDatasets(c.Request.Context())
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"datasets": datasets,
		"total":    len(datasets),
	})
}

// GetDatasetHandler returns the map sizes of a dataset, loading it if needed.
func (api *API) GetDatasetHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	summary, err := api.engine.Summary(c.Request.Context(), name)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ReloadDatasetHandler schedules a reload and answers 202 with the job id.
func (api *API) ReloadDatasetHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	jobID, err := api.engine.ReloadAsync(name)
	if err != nil {
		SendJobExecutionError(c, "reload", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Reload started for dataset '" + name + "'",
		"job_id":  jobID,
	})
}

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	job, err := api.engine.GetJobManager().GetJob(c.Param("jobId"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler handles requests to list jobs for a dataset
func (api *API) ListJobsHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	jobs := api.engine.GetJobManager().ListJobs(name)
	c.JSON(http.StatusOK, gin.H{
		"jobs":    jobs,
		"dataset": name,
		"total":   len(jobs),
	})
}
