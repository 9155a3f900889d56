package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/middleware"
	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
	"github.com/justmusic/justmusic-api/pkg/response"
)

// callerEmail returns the email of the verified caller. It writes a 401 and
// returns false when the request carries no claims.
func callerEmail(c *gin.Context) (string, bool) {
	claims := middleware.Claims(c)
	if claims == nil || claims.Email == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return models.NormalizeEmail(claims.Email), true
}

// requiredQuery reads a mandatory query value, writing a 400 when missing.
func requiredQuery(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" is required"))
		return "", false
	}
	return value, true
}

// requiredEmail reads the owner email from the query in canonical form.
func requiredEmail(c *gin.Context) (string, bool) {
	email, ok := requiredQuery(c, "email")
	if !ok {
		return "", false
	}
	return models.NormalizeEmail(email), true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return false
	}
	return true
}

func responseMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}
