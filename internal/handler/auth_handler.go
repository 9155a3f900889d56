package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(req models.TokenRequest) (*models.TokenResponse, error)
}

// AuthHandler exposes the token endpoint.
type AuthHandler struct {
	auth tokenIssuer
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth tokenIssuer) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Issue godoc
// @Summary Issue access token
// @Description Signs the signed-in user's identity claim into a bearer token valid for 24 hours
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.TokenRequest true "Identity claim"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jwt [post]
func (h *AuthHandler) Issue(c *gin.Context) {
	var req models.TokenRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.auth.IssueToken(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, token)
}
