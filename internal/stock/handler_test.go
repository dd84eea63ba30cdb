package stock

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/stockmaster/stockmaster/internal/observability"
)

func TestValidateEndpointCountsOnlyAppliedValidations(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	metrics := observability.NewMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, metrics)

	router := chi.NewRouter()
	router.Route("/api/v1", handler.MountRoutes)

	doc, err := svc.Create(context.Background(), CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Now())
	require.NoError(t, err)

	// Validating twice succeeds both times, but the second call is a no-op
	// and must not inflate the counter.
	validateURL := fmt.Sprintf("/api/v1/stock/documents/%d/validate", doc.ID)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, validateURL, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `stockmaster_documents_validated_total{doc_type="delivery"} 1`)
}
