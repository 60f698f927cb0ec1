package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/internal/service"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type fakeArrangementSrv struct {
	fixedDates
	plan        *models.PlanResult
	planErr     error
	replacement *models.Replacement
	previewed   bool
	found       bool
	manual      *models.Arrangement
	manualErr   error
	lastManual  dto.ManualArrangementRequest
	records     []models.Arrangement
	lastFilter  models.ArrangementFilter
	coverage    *models.CoverageSummary
	coverFrom   time.Time
	coverTo     time.Time
	file        *service.ExportFile
	lastFormat  string
}

func (f *fakeArrangementSrv) PlanForAbsence(_ context.Context, teacherID string, date time.Time) (*models.PlanResult, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	res := *f.plan
	res.TeacherID = teacherID
	res.Date = date
	return &res, nil
}

func (f *fakeArrangementSrv) FindReplacement(context.Context, string, time.Time, int) (*models.Replacement, error) {
	f.found = true
	return f.replacement, nil
}

func (f *fakeArrangementSrv) PreviewReplacement(context.Context, string, time.Time, int) (*models.Replacement, error) {
	f.previewed = true
	return f.replacement, nil
}

func (f *fakeArrangementSrv) CreateManualArrangement(_ context.Context, req dto.ManualArrangementRequest) (*models.Arrangement, error) {
	f.lastManual = req
	return f.manual, f.manualErr
}

func (f *fakeArrangementSrv) List(_ context.Context, filter models.ArrangementFilter) ([]models.Arrangement, *models.Pagination, error) {
	f.lastFilter = filter
	return f.records, &models.Pagination{Page: 1, PageSize: 100, TotalCount: len(f.records)}, nil
}

func (f *fakeArrangementSrv) ListUncovered(context.Context, time.Time) ([]models.Arrangement, error) {
	return f.records, nil
}

func (f *fakeArrangementSrv) Coverage(_ context.Context, from, to time.Time) (*models.CoverageSummary, error) {
	f.coverFrom, f.coverTo = from, to
	return f.coverage, nil
}

func (f *fakeArrangementSrv) Export(_ context.Context, _ time.Time, format string) (*service.ExportFile, error) {
	f.lastFormat = format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return f.file, nil
}

func newArrangementRouter(srv *fakeArrangementSrv) http.Handler {
	h := NewArrangementHandler(srv)
	r := newTestRouter()
	r.POST("/arrangements/plan", h.Plan)
	r.GET("/arrangements", h.List)
	r.GET("/arrangements/uncovered", h.Uncovered)
	r.POST("/arrangements/manual", h.Manual)
	r.GET("/arrangements/replacement", h.Replacement)
	r.GET("/arrangements/coverage", h.Coverage)
	r.GET("/arrangements/export", h.Export)
	return r
}

func TestArrangementHandlerPlanStatusCodes(t *testing.T) {
	srv := &fakeArrangementSrv{fixedDates: fixedDates{handlerToday}, plan: &models.PlanResult{OK: true}}
	r := newArrangementRouter(srv)

	rec, envelope := perform(t, r, http.MethodPost, "/arrangements/plan", dto.PlanArrangementRequest{TeacherID: "T001", Date: "2026-10-12"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var result models.PlanResult
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	assert.Equal(t, "T001", result.TeacherID)

	srv.plan = &models.PlanResult{OK: true, Existing: true}
	rec, _ = perform(t, r, http.MethodPost, "/arrangements/plan", dto.PlanArrangementRequest{TeacherID: "T001", Date: "2026-10-12"})
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.plan = &models.PlanResult{OK: false}
	rec, _ = perform(t, r, http.MethodPost, "/arrangements/plan", dto.PlanArrangementRequest{TeacherID: "T001"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArrangementHandlerPlanErrors(t *testing.T) {
	srv := &fakeArrangementSrv{fixedDates: fixedDates{handlerToday}, plan: &models.PlanResult{OK: true}}
	r := newArrangementRouter(srv)

	rec, _ := perform(t, r, http.MethodPost, "/arrangements/plan", dto.PlanArrangementRequest{TeacherID: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = perform(t, r, http.MethodPost, "/arrangements/plan", dto.PlanArrangementRequest{TeacherID: "T001", Date: "12/10/2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv.planErr = appErrors.Clone(appErrors.ErrArrangementsSuspended, "arrangements are suspended for this date")
	rec, envelope := perform(t, r, http.MethodPost, "/arrangements/plan", dto.PlanArrangementRequest{TeacherID: "T001"})
	assert.Equal(t, appErrors.ErrArrangementsSuspended.Status, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrArrangementsSuspended.Code, envelope.Error.Code)
}

func TestArrangementHandlerListParsesFilter(t *testing.T) {
	srv := &fakeArrangementSrv{fixedDates: fixedDates{handlerToday}, records: []models.Arrangement{{ID: "a1"}}}
	r := newArrangementRouter(srv)

	rec, envelope := perform(t, r, http.MethodGet, "/arrangements?date=2026-10-12&teacher_id=T001&status=uncovered", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.Date)
	assert.Equal(t, handlerToday, *srv.lastFilter.Date)
	assert.Equal(t, "T001", srv.lastFilter.TeacherID)
	assert.Equal(t, models.ArrangementUncovered, srv.lastFilter.Status)
	assert.EqualValues(t, 1, envelope.Pagination["total_count"])

	rec, _ = perform(t, r, http.MethodGet, "/arrangements?from=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArrangementHandlerReplacementPreview(t *testing.T) {
	srv := &fakeArrangementSrv{
		fixedDates:  fixedDates{handlerToday},
		replacement: &models.Replacement{Found: true, TeacherID: "T004", Period: 1, Quality: models.QualityIdeal},
	}
	r := newArrangementRouter(srv)

	rec, envelope := perform(t, r, http.MethodGet, "/arrangements/replacement?teacher_id=T001&period=1&preview=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.previewed)
	assert.False(t, srv.found)
	assert.Equal(t, true, envelope.Meta["preview"])

	rec, _ = perform(t, r, http.MethodGet, "/arrangements/replacement?teacher_id=T001&period=1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.found)

	rec, _ = perform(t, r, http.MethodGet, "/arrangements/replacement?teacher_id=T001&period=8", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = perform(t, r, http.MethodGet, "/arrangements/replacement?period=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArrangementHandlerManual(t *testing.T) {
	replacement := "T030"
	srv := &fakeArrangementSrv{
		fixedDates: fixedDates{handlerToday},
		manual:     &models.Arrangement{ID: "m1", ReplacementTeacherID: &replacement, Status: models.ArrangementManuallyAssigned},
	}
	r := newArrangementRouter(srv)

	payload := dto.ManualArrangementRequest{AbsentTeacherID: "T001", ReplacementTeacherID: "T030", Period: 6, Date: "2026-10-12"}
	rec, _ := perform(t, r, http.MethodPost, "/arrangements/manual", payload)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, payload, srv.lastManual)

	srv.manualErr = appErrors.Clone(appErrors.ErrConflict, "replacement teacher is busy in that period")
	rec, _ = perform(t, r, http.MethodPost, "/arrangements/manual", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestArrangementHandlerCoverageDefaultsToSingleDay(t *testing.T) {
	srv := &fakeArrangementSrv{
		fixedDates: fixedDates{handlerToday},
		coverage:   &models.CoverageSummary{Total: 3, Covered: 2, Rate: decimal.RequireFromString("66.67")},
	}
	r := newArrangementRouter(srv)

	rec, envelope := perform(t, r, http.MethodGet, "/arrangements/coverage?from=2026-10-12", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, srv.coverFrom, srv.coverTo)

	var summary models.CoverageSummary
	require.NoError(t, json.Unmarshal(envelope.Data, &summary))
	assert.True(t, decimal.RequireFromString("66.67").Equal(summary.Rate))

	perform(t, r, http.MethodGet, "/arrangements/coverage?from=2026-10-05&to=2026-10-12", nil)
	assert.Equal(t, handlerToday, srv.coverTo)
}

func TestArrangementHandlerExport(t *testing.T) {
	srv := &fakeArrangementSrv{
		fixedDates: fixedDates{handlerToday},
		file:       &service.ExportFile{Filename: "arrangements-2026-10-12.csv", ContentType: "text/csv", Body: []byte("Period,Class\n1,10A\n")},
	}
	r := newArrangementRouter(srv)

	rec, _ := perform(t, r, http.MethodGet, "/arrangements/export?format=csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.lastFormat)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "arrangements-2026-10-12.csv")
	assert.Equal(t, "Period,Class\n1,10A\n", rec.Body.String())

	rec, _ = perform(t, r, http.MethodGet, "/arrangements/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
