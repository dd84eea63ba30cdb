package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	autoValidate []AutoValidatePayload
	lowStock     []LowStockScanPayload
}

func (e *recordingEnqueuer) EnqueueAutoValidate(_ context.Context, payload AutoValidatePayload) (*asynq.TaskInfo, error) {
	e.autoValidate = append(e.autoValidate, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func (e *recordingEnqueuer) EnqueueLowStockScan(_ context.Context, payload LowStockScanPayload) (*asynq.TaskInfo, error) {
	e.lowStock = append(e.lowStock, payload)
	return &asynq.TaskInfo{ID: "task-2", Queue: QueueDefault}, nil
}

func newTestRouter(enqueuer Enqueuer) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Route("/jobs", NewHandler(nil, enqueuer, logger).MountRoutes)
	return router
}

func TestRunAutoValidateEnqueuesTask(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	router := newTestRouter(enqueuer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/run/auto-validate", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"task_id":"task-1"`)
	require.Len(t, enqueuer.autoValidate, 1)
	require.False(t, enqueuer.autoValidate[0].At.IsZero())
}

func TestRunLowStockScanScopesWarehouse(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	router := newTestRouter(enqueuer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/run/low-stock-scan?warehouse_id=7", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.lowStock, 1)
	require.NotNil(t, enqueuer.lowStock[0].WarehouseID)
	require.Equal(t, int64(7), *enqueuer.lowStock[0].WarehouseID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/run/low-stock-scan?warehouse_id=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, enqueuer.lowStock, 1)
}

func TestRunEndpointsUnavailableWithoutEnqueuer(t *testing.T) {
	router := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/run/auto-validate", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
