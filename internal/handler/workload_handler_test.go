package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
)

type stubWorkloadService struct {
	lastDate time.Time
	entries  []models.WorkloadEntry
}

func (s *stubWorkloadService) Window() string { return "weekly" }

func (s *stubWorkloadService) WindowKey(date time.Time) string {
	year, week := date.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func (s *stubWorkloadService) List(ctx context.Context, date time.Time) ([]models.WorkloadEntry, error) {
	s.lastDate = date
	return s.entries, nil
}

func TestWorkloadHandlerList(t *testing.T) {
	svc := &stubWorkloadService{entries: []models.WorkloadEntry{{
		WorkloadCounter: models.WorkloadCounter{TeacherID: "T010", WindowKey: "2026-W42", Count: 3},
		FullName:        "Teacher T010",
		Category:        models.CategoryPGT,
	}}}
	h := NewWorkloadHandler(svc, fixedDates{today: handlerToday})
	r := newTestRouter()
	r.GET("/workloads", h.List)

	rec, env := perform(t, r, http.MethodGet, "/workloads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handlerToday, svc.lastDate)
	assert.Equal(t, "weekly", env.Meta["window"])
	assert.Equal(t, "2026-W42", env.Meta["window_key"])

	var entries []models.WorkloadEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Count)

	rec, _ = perform(t, r, http.MethodGet, "/workloads?date=12-10-2026", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
