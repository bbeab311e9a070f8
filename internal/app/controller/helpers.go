package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// parseIDParam reads a positive integer path parameter. On failure the
// response is already written.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// optionalUintQuery returns nil when the parameter is absent.
func optionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid "+name)
		return nil, false
	}
	v := uint(n)
	return &v, true
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid "+name)
		return 0, false
	}
	return n, true
}

func boolQuery(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}

// currentActor returns the authenticated actor or writes a 401.
func currentActor(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return model.Actor{}, false
	}
	return actor, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request body: "+err.Error())
		return false
	}
	return true
}
