package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-arrangement-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

// dateParser resolves YYYY-MM-DD query values in the school's timezone, empty meaning today.
type dateParser interface {
	ParseDate(raw string) (time.Time, error)
}

func actorID(c *gin.Context) string {
	if claims := middleware.CurrentUser(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func requiredPeriod(raw string) (int, error) {
	period, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || period < 1 || period > 7 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "period must be between 1 and 7")
	}
	return period, nil
}
