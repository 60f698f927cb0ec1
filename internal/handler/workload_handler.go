package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/pkg/response"
)

type workloadService interface {
	Window() string
	WindowKey(date time.Time) string
	List(ctx context.Context, date time.Time) ([]models.WorkloadEntry, error)
}

// WorkloadHandler reports substitution counts.
type WorkloadHandler struct {
	workload workloadService
	dates    dateParser
}

// NewWorkloadHandler constructs a WorkloadHandler.
func NewWorkloadHandler(workload workloadService, dates dateParser) *WorkloadHandler {
	return &WorkloadHandler{workload: workload, dates: dates}
}

// List godoc
// @Summary Substitution counts per teacher
// @Tags Workloads
// @Produce json
// @Param date query string false "Selects the daily or weekly window, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /workloads [get]
func (h *WorkloadHandler) List(c *gin.Context) {
	date, err := h.dates.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.workload.List(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{
		"window":     h.workload.Window(),
		"window_key": h.workload.WindowKey(date),
	})
}
