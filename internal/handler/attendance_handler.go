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

type attendanceService interface {
	Mark(ctx context.Context, req dto.MarkAttendanceRequest) (*models.MarkAttendanceResult, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendanceRecord, error)
}

// AttendanceHandler records teacher presence.
type AttendanceHandler struct {
	attendance attendanceService
	dates      dateParser
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, dates dateParser) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, dates: dates}
}

// Mark godoc
// @Summary Mark a teacher present or absent
// @Description Marking a teacher absent plans substitutes for their classes. When another instance is already planning that absence the request is queued and the response is 202.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	result, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Queued {
		response.Accepted(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary Attendance marks for a date
// @Tags Attendance
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	date, err := h.dates.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.attendance.ListByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"date": date.Format("2006-01-02")})
}
