package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-arrangement-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
	"github.com/noah-isme/sma-arrangement-api/pkg/response"
)

// AuthHandler reports the caller's identity. Logins happen at the identity provider.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"user_id":    claims.UserID,
		"role":       claims.Role,
		"email":      claims.Email,
		"full_name":  claims.FullName,
		"teacher_id": claims.TeacherID,
	}, nil)
}
