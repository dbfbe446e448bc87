package rest

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
)

// listParams are the query parameters shared by every recipe listing.
type listParams struct {
	keyword  string
	created  *model.TimeRange
	page     int
	pageSize int
}

func parseListParams(c *gin.Context) (listParams, error) {
	var p listParams
	var err error
	p.keyword = c.Query("q")
	if p.created, err = model.ParseTimeRange(c.Query("published_from"), c.Query("published_to")); err != nil {
		return p, err
	}
	if p.page, err = intQuery(c, "page", 0); err != nil {
		return p, err
	}
	if p.pageSize, err = intQuery(c, "page_size", model.DefaultPageSize); err != nil {
		return p, err
	}
	return p, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.Invalid("%s must be an integer", key)
	}
	return v, nil
}

func uuidQuery(c *gin.Context, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.Invalid("%s must be a uuid", key)
	}
	return id, nil
}

func uuidParam(c *gin.Context, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		return uuid.Nil, model.Invalid("%s must be a uuid", key)
	}
	return id, nil
}

func statusQuery(c *gin.Context) (model.RecipeStatus, error) {
	raw := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	if raw == "" {
		return model.RecipeStatusDraft, nil
	}
	status := model.RecipeStatus(raw)
	if !status.Valid() {
		return "", model.Invalid("status must be one of %s, %s", model.RecipeStatusDraft, model.RecipeStatusPublished)
	}
	return status, nil
}
