package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/internal/service"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
	"github.com/noah-isme/sma-arrangement-api/pkg/response"
)

type arrangementService interface {
	ParseDate(raw string) (time.Time, error)
	PlanForAbsence(ctx context.Context, teacherID string, date time.Time) (*models.PlanResult, error)
	FindReplacement(ctx context.Context, teacherID string, date time.Time, period int) (*models.Replacement, error)
	PreviewReplacement(ctx context.Context, teacherID string, date time.Time, period int) (*models.Replacement, error)
	CreateManualArrangement(ctx context.Context, req dto.ManualArrangementRequest) (*models.Arrangement, error)
	List(ctx context.Context, filter models.ArrangementFilter) ([]models.Arrangement, *models.Pagination, error)
	ListUncovered(ctx context.Context, date time.Time) ([]models.Arrangement, error)
	Coverage(ctx context.Context, from, to time.Time) (*models.CoverageSummary, error)
	Export(ctx context.Context, date time.Time, format string) (*service.ExportFile, error)
}

// ArrangementHandler exposes substitute planning.
type ArrangementHandler struct {
	arrangements arrangementService
}

// NewArrangementHandler constructs an ArrangementHandler.
func NewArrangementHandler(arrangements arrangementService) *ArrangementHandler {
	return &ArrangementHandler{arrangements: arrangements}
}

// Plan godoc
// @Summary Plan substitutes for an absent teacher
// @Description Idempotent per teacher and date. A repeated call returns the stored plan with existing=true.
// @Tags Arrangements
// @Accept json
// @Produce json
// @Param payload body dto.PlanArrangementRequest true "Absence"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /arrangements/plan [post]
func (h *ArrangementHandler) Plan(c *gin.Context) {
	var req dto.PlanArrangementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	teacherID := strings.TrimSpace(req.TeacherID)
	if teacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required"))
		return
	}
	date, err := h.arrangements.ParseDate(req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.arrangements.PlanForAbsence(c.Request.Context(), teacherID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.OK && !result.Existing {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}

// List godoc
// @Summary List arrangements
// @Tags Arrangements
// @Produce json
// @Param date query string false "YYYY-MM-DD"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param teacher_id query string false "Absent or replacement teacher"
// @Param status query string false "ASSIGNED, UNCOVERED or MANUALLY_ASSIGNED"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /arrangements [get]
func (h *ArrangementHandler) List(c *gin.Context) {
	filter := models.ArrangementFilter{
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		Status:    models.ArrangementStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 100),
	}
	for key, target := range map[string]**time.Time{"date": &filter.Date, "from": &filter.From, "to": &filter.To} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		d, err := h.arrangements.ParseDate(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		*target = &d
	}

	records, pagination, err := h.arrangements.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Uncovered godoc
// @Summary Periods still needing a substitute
// @Tags Arrangements
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /arrangements/uncovered [get]
func (h *ArrangementHandler) Uncovered(c *gin.Context) {
	date, err := h.arrangements.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.arrangements.ListUncovered(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"count": len(records)})
}

// Manual godoc
// @Summary Assign a substitute by hand
// @Tags Arrangements
// @Accept json
// @Produce json
// @Param payload body dto.ManualArrangementRequest true "Manual arrangement"
// @Success 201 {object} response.Envelope
// @Router /arrangements/manual [post]
func (h *ArrangementHandler) Manual(c *gin.Context) {
	var req dto.ManualArrangementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid arrangement payload"))
		return
	}
	record, err := h.arrangements.CreateManualArrangement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Replacement godoc
// @Summary Find the substitute for one period
// @Description Without preview the chosen teacher's workload is counted. Preview leaves counters untouched.
// @Tags Arrangements
// @Produce json
// @Param teacher_id query string true "Absent teacher"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param period query int true "Period 1-7"
// @Param preview query bool false "Dry run"
// @Success 200 {object} response.Envelope
// @Router /arrangements/replacement [get]
func (h *ArrangementHandler) Replacement(c *gin.Context) {
	var query dto.ReplacementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid replacement query"))
		return
	}
	teacherID := strings.TrimSpace(query.TeacherID)
	if teacherID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required"))
		return
	}
	if query.Period < 1 || query.Period > 7 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "period must be between 1 and 7"))
		return
	}
	date, err := h.arrangements.ParseDate(query.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	find := h.arrangements.FindReplacement
	if query.Preview {
		find = h.arrangements.PreviewReplacement
	}
	replacement, err := find(c.Request.Context(), teacherID, date, query.Period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, replacement, nil, map[string]interface{}{"preview": query.Preview})
}

// Coverage godoc
// @Summary Coverage summary for a date range
// @Tags Arrangements
// @Produce json
// @Param from query string false "YYYY-MM-DD, defaults to today"
// @Param to query string false "YYYY-MM-DD, defaults to from"
// @Success 200 {object} response.Envelope
// @Router /arrangements/coverage [get]
func (h *ArrangementHandler) Coverage(c *gin.Context) {
	from, err := h.arrangements.ParseDate(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to := from
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		if to, err = h.arrangements.ParseDate(raw); err != nil {
			response.Error(c, err)
			return
		}
	}
	summary, err := h.arrangements.Coverage(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Download a day's arrangements
// @Tags Arrangements
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /arrangements/export [get]
func (h *ArrangementHandler) Export(c *gin.Context) {
	date, err := h.arrangements.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.arrangements.Export(c.Request.Context(), date, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
