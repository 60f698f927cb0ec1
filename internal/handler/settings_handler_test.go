package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-arrangement-api/internal/dto"
	"github.com/noah-isme/sma-arrangement-api/internal/middleware"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

type fakeSettingsSrv struct {
	settings    models.AutoMarkSettings
	suspended   map[time.Time]string
	resumeQueue int
}

func (f *fakeSettingsSrv) AutoMark(context.Context) (*models.AutoMarkSettings, error) {
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettingsSrv) UpdateAutoMark(_ context.Context, req dto.AutoMarkSettingsRequest) (*models.AutoMarkSettings, error) {
	if req.Hour == nil || req.Minute == nil || req.Enabled == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid settings payload")
	}
	f.settings = models.AutoMarkSettings{Hour: *req.Hour, Minute: *req.Minute, Enabled: *req.Enabled}
	return f.AutoMark(context.Background())
}

func (f *fakeSettingsSrv) Suspend(_ context.Context, date time.Time, actorID string) error {
	f.suspended[date] = actorID
	return nil
}

func (f *fakeSettingsSrv) Resume(_ context.Context, date time.Time) (int, error) {
	if _, ok := f.suspended[date]; !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "date is not suspended")
	}
	delete(f.suspended, date)
	return f.resumeQueue, nil
}

func (f *fakeSettingsSrv) ListSuspensions(context.Context, time.Time) ([]models.Suspension, error) {
	return nil, nil
}

func TestSettingsHandlerAutoMark(t *testing.T) {
	srv := &fakeSettingsSrv{settings: models.AutoMarkSettings{Hour: 9, Enabled: true}}
	h := NewSettingsHandler(srv, fixedDates{handlerToday})
	r := newTestRouter()
	r.GET("/settings/auto-mark", h.GetAutoMark)
	r.PUT("/settings/auto-mark", h.UpdateAutoMark)

	rec, _ := perform(t, r, http.MethodGet, "/settings/auto-mark", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	hour, minute, enabled := 10, 30, false
	rec, _ = perform(t, r, http.MethodPut, "/settings/auto-mark", dto.AutoMarkSettingsRequest{Hour: &hour, Minute: &minute, Enabled: &enabled})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, srv.settings.Hour)
	assert.False(t, srv.settings.Enabled)

	rec, _ = perform(t, r, http.MethodPut, "/settings/auto-mark", map[string]int{"hour": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsHandlerSuspendAndResume(t *testing.T) {
	srv := &fakeSettingsSrv{suspended: map[time.Time]string{}, resumeQueue: 2}
	h := NewSettingsHandler(srv, fixedDates{handlerToday})
	r := newTestRouter()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	r.POST("/suspensions/:date", h.Suspend)
	r.DELETE("/suspensions/:date", h.Resume)

	rec, _ := perform(t, r, http.MethodPost, "/suspensions/2026-10-12", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin-1", srv.suspended[handlerToday])

	rec, envelope := perform(t, r, http.MethodDelete, "/suspensions/2026-10-12", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(envelope.Data), `"queued":2`)

	rec, _ = perform(t, r, http.MethodDelete, "/suspensions/2026-10-12", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = perform(t, r, http.MethodPost, "/suspensions/not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
