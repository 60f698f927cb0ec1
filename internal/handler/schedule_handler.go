package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/internal/service"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
	"github.com/noah-isme/sma-arrangement-api/pkg/response"
)

const maxImportBytes = 2 << 20

type scheduleService interface {
	GetDay(ctx context.Context, teacherID string, weekday time.Weekday) (*models.DaySchedule, error)
	UpsertDay(ctx context.Context, teacherID string, weekday time.Weekday, req dto.UpsertDayScheduleRequest) (*models.DaySchedule, error)
	DeleteDay(ctx context.Context, teacherID string, weekday time.Weekday) error
	ImportCSV(ctx context.Context, weekday time.Weekday, src io.Reader) (*models.ScheduleImportResult, error)
	ListFree(ctx context.Context, date time.Time, period int) ([]models.FreeTeacher, error)
}

// ScheduleHandler exposes weekday timetables.
type ScheduleHandler struct {
	schedules scheduleService
	dates     dateParser
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(schedules scheduleService, dates dateParser) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, dates: dates}
}

// GetDay godoc
// @Summary Get a teacher's periods for a weekday
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Param weekday path string true "Weekday name or 0-6"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule/{weekday} [get]
func (h *ScheduleHandler) GetDay(c *gin.Context) {
	weekday, err := service.ParseWeekday(c.Param("weekday"))
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := h.schedules.GetDay(c.Request.Context(), c.Param("id"), weekday)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// UpsertDay godoc
// @Summary Replace a teacher's periods for a weekday
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param weekday path string true "Weekday name or 0-6"
// @Param payload body dto.UpsertDayScheduleRequest true "Seven class labels, FREE for a free period"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule/{weekday} [put]
func (h *ScheduleHandler) UpsertDay(c *gin.Context) {
	weekday, err := service.ParseWeekday(c.Param("weekday"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpsertDayScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	day, err := h.schedules.UpsertDay(c.Request.Context(), c.Param("id"), weekday, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// DeleteDay godoc
// @Summary Remove a teacher's periods for a weekday
// @Tags Schedules
// @Param id path string true "Teacher ID"
// @Param weekday path string true "Weekday name or 0-6"
// @Success 204
// @Router /teachers/{id}/schedule/{weekday} [delete]
func (h *ScheduleHandler) DeleteDay(c *gin.Context) {
	weekday, err := service.ParseWeekday(c.Param("weekday"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.schedules.DeleteDay(c.Request.Context(), c.Param("id"), weekday); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Import a weekday timetable from CSV
// @Description Accepts a multipart "file" field or a raw text/csv body.
// @Tags Schedules
// @Accept text/csv
// @Produce json
// @Param weekday query string true "Weekday name or 0-6"
// @Success 200 {object} response.Envelope
// @Router /schedules/import [post]
func (h *ScheduleHandler) Import(c *gin.Context) {
	weekday, err := service.ParseWeekday(c.Query("weekday"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var src io.Reader
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read upload"))
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	result, err := h.schedules.ImportCSV(c.Request.Context(), weekday, io.LimitReader(src, maxImportBytes))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListFree godoc
// @Summary Teachers free in a period
// @Tags Schedules
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param period query int true "Period 1-7"
// @Success 200 {object} response.Envelope
// @Router /schedules/free [get]
func (h *ScheduleHandler) ListFree(c *gin.Context) {
	date, err := h.dates.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	period, err := requiredPeriod(c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	teachers, err := h.schedules.ListFree(c.Request.Context(), date, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}
