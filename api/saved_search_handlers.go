package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// saveJSONRequest is the JSON body of POST /save. value may be an object or
// the legacy string-encoded form.
type saveJSONRequest struct {
	Table string          `json:"table" binding:"max=64"`
	Key   string          `json:"key" binding:"max=256"`
	Value json.RawMessage `json:"value" binding:"max=65536"`
}

// saveFormRequest is the form posted by the save template.
type saveFormRequest struct {
	Table string `form:"table" binding:"max=64"`
	Key   string `form:"key" binding:"max=256"`
	Value string `form:"value" binding:"max=65536"`
}

// ListSavedSearchesHandler returns every saved search.
func (api *API) ListSavedSearchesHandler(c *gin.Context) {
	saved, err := api.engine.SavedSearches(c.Request.Context())
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"searches": saved,
		"total":    len(saved),
	})
}

// SavedSearchHandler replays the search saved under :key.
func (api *API) SavedSearchHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	result, err := api.engine.SavedSearch(c.Request.Context(), name, c.Param("key"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SaveHandler stores a search. It accepts a JSON body or the form posted by
// the save template.
func (api *API) SaveHandler(c *gin.Context) {
	var table, key, value string

	if c.ContentType() == binding.MIMEJSON {
		var req saveJSONRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			api.sendBindError(c, err)
			return
		}
		table, key, value = req.Table, req.Key, string(req.Value)
	} else {
		var req saveFormRequest
		if err := c.ShouldBind(&req); err != nil {
			api.sendBindError(c, err)
			return
		}
		table, key, value = req.Table, req.Key, req.Value
	}

	saved, err := api.engine.Save(c.Request.Context(), table, key, value)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (api *API) sendBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		result := &ValidationResult{Valid: true}
		for _, fe := range verrs {
			result.AddError(fe.Field(), "failed on '"+fe.Tag()+"' (limit "+fe.Param()+")")
		}
		SendValidationError(c, result)
		return
	}
	SendInvalidJSONError(c, err)
}
