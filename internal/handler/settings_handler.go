package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
	"github.com/noah-isme/sma-arrangement-api/pkg/response"
)

type settingsService interface {
	AutoMark(ctx context.Context) (*models.AutoMarkSettings, error)
	UpdateAutoMark(ctx context.Context, req dto.AutoMarkSettingsRequest) (*models.AutoMarkSettings, error)
	Suspend(ctx context.Context, date time.Time, actorID string) error
	Resume(ctx context.Context, date time.Time) (int, error)
	ListSuspensions(ctx context.Context, from time.Time) ([]models.Suspension, error)
}

// SettingsHandler manages the auto-mark schedule and suspended dates.
type SettingsHandler struct {
	settings settingsService
	dates    dateParser
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(settings settingsService, dates dateParser) *SettingsHandler {
	return &SettingsHandler{settings: settings, dates: dates}
}

// GetAutoMark godoc
// @Summary Current auto-mark settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/auto-mark [get]
func (h *SettingsHandler) GetAutoMark(c *gin.Context) {
	settings, err := h.settings.AutoMark(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateAutoMark godoc
// @Summary Update auto-mark settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.AutoMarkSettingsRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /settings/auto-mark [put]
func (h *SettingsHandler) UpdateAutoMark(c *gin.Context) {
	var req dto.AutoMarkSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.settings.UpdateAutoMark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// ListSuspensions godoc
// @Summary Suspended dates
// @Tags Settings
// @Produce json
// @Param from query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /suspensions [get]
func (h *SettingsHandler) ListSuspensions(c *gin.Context) {
	from, err := h.dates.ParseDate(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.settings.ListSuspensions(c.Request.Context(), from)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Suspend godoc
// @Summary Suspend automatic arrangements for a date
// @Tags Settings
// @Param date path string true "YYYY-MM-DD"
// @Success 204
// @Router /suspensions/{date} [post]
func (h *SettingsHandler) Suspend(c *gin.Context) {
	date, err := h.dates.ParseDate(c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.settings.Suspend(c.Request.Context(), date, actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resume godoc
// @Summary Resume automatic arrangements for a date
// @Description Teachers already marked absent on that date are queued for planning.
// @Tags Settings
// @Produce json
// @Param date path string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /suspensions/{date} [delete]
func (h *SettingsHandler) Resume(c *gin.Context) {
	date, err := h.dates.ParseDate(c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	queued, err := h.settings.Resume(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"date": date.Format("2006-01-02"), "queued": queued}, nil)
}
