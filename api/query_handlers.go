package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/risseraka/matchmakr/internal/search"
)

// QueryProfilesHandler evaluates the raw query string against a dataset.
func (api *API) QueryProfilesHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	result, err := api.engine.Query(c.Request.Context(), name, search.Params(c.Request.URL.Query()))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProfileHandler returns one profile with its annotated skills and relations.
func (api *API) GetProfileHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	id, result := ValidateProfileID(c.Param("id"))
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	view, err := api.engine.GetProfile(c.Request.Context(), name, id)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SuggestHandler returns suggestions for the q parameter.
func (api *API) SuggestHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	result, err := api.engine.Suggest(c.Request.Context(), name, c.Query("q"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RelationsHandler returns the relations of a dataset, largest network first.
func (api *API) RelationsHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	relations, err := api.engine.Relations(c.Request.Context(), name)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"relations": relations,
		"total":     len(relations),
	})
}

// RelatedSkillsHandler returns the skills co-occurring with :name.
func (api *API) RelatedSkillsHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	related, err := api.engine.RelatedSkills(c.Request.Context(), name, c.Param("name"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"skill":   c.Param("name"),
		"related": related,
	})
}

// TopSkillsHandler returns the skills whose most frequent companion is :name.
func (api *API) TopSkillsHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	top, err := api.engine.TopSkills(c.Request.Context(), name, c.Param("name"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"skill": c.Param("name"),
		"top":   top,
	})
}

// MapFieldHandler lists the entries of a field map, optionally filtered by q.
func (api *API) MapFieldHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	listing, err := api.engine.MapField(c.Request.Context(), name, c.Param("field"), c.Query("q"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// RelatedFieldHandler aggregates :related over the profiles holding :name in :field.
func (api *API) RelatedFieldHandler(c *gin.Context) {
	name, ok := api.dataset(c)
	if !ok {
		return
	}
	listing, err := api.engine.Related(c.Request.Context(), name, c.Param("field"), c.Param("name"), c.Param("related"))
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
