package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risseraka/matchmakr/internal/cache"
	"github.com/risseraka/matchmakr/internal/engine"
	"github.com/risseraka/matchmakr/internal/logging"
	testutil "github.com/risseraka/matchmakr/internal/testing"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/store"
)

// --- Test Helpers ---

func setupTestAPI(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader := store.NewMemoryLoader()
	loader.Put("base", testutil.SampleProfiles())
	loader.Put("skills", testutil.SkillMatrixProfiles())

	eng, err := engine.NewEngine(engine.Options{
		Loader: loader,
		Now:    testutil.Clock,
		Cache:  cache.Config{Enabled: true, MaxCost: 1000, NumCounters: 1000},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	router := gin.New()
	SetupRoutes(router, eng, eng.Metrics(), logging.Nop())
	return router, eng
}

func doRequest(router *gin.Engine, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type queryResponse struct {
	Total   int `json:"total"`
	Results []struct {
		Profile struct {
			ID int64 `json:"id"`
		} `json:"profile"`
	} `json:"results"`
}

func (r queryResponse) ids() []int64 {
	ids := make([]int64, len(r.Results))
	for i, h := range r.Results {
		ids[i] = h.Profile.ID
	}
	return ids
}

// --- Test Cases ---

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestAPI(t)

	rec := doRequest(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	router, _ := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/datasets/base/profiles/99", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "req-42", decode[APIError](t, rec).RequestID)
}

func TestDatasetEndpoints(t *testing.T) {
	router, _ := setupTestAPI(t)

	t.Run("list", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[struct {
			Datasets []engine.DatasetInfo `json:"datasets"`
			Total    int                  `json:"total"`
		}](t, rec)
		assert.Equal(t, 2, body.Total)
		assert.Equal(t, "base", body.Datasets[0].Name)
	})

	t.Run("summary", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/base", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[struct {
			Counts map[string]int `json:"counts"`
		}](t, rec)
		assert.Equal(t, 3, body.Counts["profiles"])
	})

	t.Run("unknown dataset", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/nope", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, ErrorCodeNotFound, decode[APIError](t, rec).Code)
	})

	t.Run("invalid name", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/%20base", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decode[APIError](t, rec)
		assert.Equal(t, ErrorCodeValidationFailed, apiErr.Code)
		require.Len(t, apiErr.Details, 1)
		assert.Equal(t, "dataset", apiErr.Details[0].Field)
	})
}

func TestReloadAndJobs(t *testing.T) {
	router, eng := setupTestAPI(t)

	rec := doRequest(router, http.MethodPost, "/datasets/base/reload", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, _ := decode[map[string]any](t, rec)["job_id"].(string)
	require.NotEmpty(t, jobID)

	testutil.WaitForJobCompletion(t, eng.GetJobManager(), jobID, testutil.DefaultJobPollingOptions())

	rec = doRequest(router, http.MethodGet, "/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[model.Job](t, rec)
	testutil.AssertJobCompleted(t, &job, model.JobTypeReloadDataset, "base")

	rec = doRequest(router, http.MethodGet, "/datasets/base/jobs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["total"])

	rec = doRequest(router, http.MethodGet, "/jobs/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryProfiles(t *testing.T) {
	router, _ := setupTestAPI(t)

	rec := doRequest(router, http.MethodGet, "/datasets/base/profiles?skills.name=Go", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[queryResponse](t, rec)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, []int64{testutil.AliceID, testutil.BobID}, body.ids())

	rec = doRequest(router, http.MethodGet, "/datasets/base/profiles?skills.name=Go&location=Lisbon", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{testutil.BobID, testutil.AliceID}, decode[queryResponse](t, rec).ids())

	rec = doRequest(router, http.MethodGet, "/datasets/base/profiles?skills.name=%2BGo&location=Berlin", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{testutil.AliceID, testutil.BobID}, decode[queryResponse](t, rec).ids())

	rec = doRequest(router, http.MethodGet, "/datasets/base/profiles", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[queryResponse](t, rec).Results, 3)
}

func TestGetProfileEndpoint(t *testing.T) {
	router, _ := setupTestAPI(t)

	tests := []struct {
		name   string
		path   string
		status int
		code   ErrorCode
	}{
		{"found", "/datasets/base/profiles/1", http.StatusOK, ""},
		{"not an integer", "/datasets/base/profiles/abc", http.StatusBadRequest, ErrorCodeValidationFailed},
		{"unknown id", "/datasets/base/profiles/99", http.StatusNotFound, ErrorCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[APIError](t, rec).Code)
				return
			}
			assert.Contains(t, rec.Body.String(), `"superEndorser":true`)
		})
	}
}

func TestSuggestEndpoint(t *testing.T) {
	router, _ := setupTestAPI(t)

	rec := doRequest(router, http.MethodGet, "/datasets/base/suggest?q=Go", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skills.name"`)
}

func TestFieldEndpoints(t *testing.T) {
	router, _ := setupTestAPI(t)

	t.Run("map listing", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/base/fields/skills.name?q=ru", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		listing := decode[engine.FieldListing](t, rec)
		assert.Equal(t, 2, listing.Total)
		assert.Equal(t, 1, listing.Count)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/base/fields/hobbies", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, ErrorCodeUnknownField, decode[APIError](t, rec).Code)
	})

	t.Run("related", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/base/fields/skills.name/go/related/positions.companyName", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		listing := decode[engine.RelatedListing](t, rec)
		require.Len(t, listing.Items, 1)
		assert.Equal(t, engine.RelatedItem{Name: "acme", Count: 2}, listing.Items[0])
	})

	t.Run("related unknown value", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/datasets/base/fields/skills.name/cobol/related/location", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSkillEndpoints(t *testing.T) {
	router, _ := setupTestAPI(t)

	rec := doRequest(router, http.MethodGet, "/datasets/skills/skills/Go/related", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	related := decode[struct {
		Related []model.SkillCount `json:"related"`
	}](t, rec)
	require.NotEmpty(t, related.Related)
	assert.Equal(t, model.SkillCount{Name: "docker", Count: 2}, related.Related[0])

	rec = doRequest(router, http.MethodGet, "/datasets/skills/skills/docker/top", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/datasets/base/relations", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, decode[map[string]any](t, rec)["total"])
}

func TestSaveAndReplay(t *testing.T) {
	router, _ := setupTestAPI(t)

	payload := []byte(`{"table":"search","key":"gophers","value":{"query":{"skills.name":["Go"]},"description":"Go people"}}`)
	rec := doRequest(router, http.MethodPost, "/save", payload, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	form := url.Values{
		"table": {"search"},
		"key":   {"lisbon"},
		"value": {`{"query":{"location":["Lisbon"]}}`},
	}
	rec = doRequest(router, http.MethodPost, "/save", []byte(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(router, http.MethodGet, "/savedSearches", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode[map[string]any](t, rec)["total"])

	rec = doRequest(router, http.MethodGet, "/datasets/base/savedSearches/gophers", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[engine.SavedSearchResult](t, rec)
	assert.Equal(t, "gophers", replay.Title)
	assert.Equal(t, 2, replay.Count)

	rec = doRequest(router, http.MethodGet, "/datasets/base/profiles?savedSearch=gophers,lisbon", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{testutil.BobID, testutil.AliceID}, decode[queryResponse](t, rec).ids())

	rec = doRequest(router, http.MethodGet, "/datasets/base/savedSearches/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveRejected(t *testing.T) {
	router, _ := setupTestAPI(t)

	t.Run("missing parameters", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/save", []byte(`{}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decode[APIError](t, rec)
		assert.Equal(t, ErrorCodeMissingParameter, apiErr.Code)
		assert.Len(t, apiErr.Details, 3)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/save", []byte(`{"table":`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorCodeInvalidJSON, decode[APIError](t, rec).Code)
	})

	t.Run("key too long", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{
			"table": "search",
			"key":   strings.Repeat("k", 300),
			"value": map[string]any{"query": map[string]any{"name": []string{"alice"}}},
		})
		require.NoError(t, err)
		rec := doRequest(router, http.MethodPost, "/save", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		apiErr := decode[APIError](t, rec)
		assert.Equal(t, ErrorCodeValidationFailed, apiErr.Code)
		require.Len(t, apiErr.Details, 1)
		assert.Equal(t, "Key", apiErr.Details[0].Field)
	})

	t.Run("unsupported table", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/save",
			[]byte(`{"table":"users","key":"k","value":{"query":{"name":["a"]}}}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorCodeValidationFailed, decode[APIError](t, rec).Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestAPI(t)

	doRequest(router, http.MethodGet, "/health", nil, "")
	rec := doRequest(router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `matchmakr_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
