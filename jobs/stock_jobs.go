package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockmaster/stockmaster/internal/alerts"
	"github.com/stockmaster/stockmaster/internal/observability"
	"github.com/stockmaster/stockmaster/internal/stock"
)

// NewAutoValidateHandler validates internal transfers whose scheduled date
// has arrived. Deliveries are deliberately excluded: they always require an
// explicit validation call.
func NewAutoValidateHandler(svc *stock.Service, alertSvc *alerts.Service, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AutoValidatePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		at := payload.At
		if at.IsZero() {
			at = time.Now()
		}
		ids, err := svc.ValidateDueInternalTransfers(ctx, at)
		if err != nil {
			logger.Error("auto-validate sweep failed", "error", err, "validated", len(ids))
			return err
		}
		if len(ids) > 0 {
			if metrics != nil {
				for range ids {
					metrics.DocumentValidated(string(stock.DocTypeInternal))
				}
			}
			if alertSvc != nil {
				if err := alertSvc.Invalidate(ctx); err != nil {
					logger.Warn("alert cache invalidation failed", "error", err)
				}
			}
		}
		logger.Info("auto-validate sweep done", "validated", len(ids))
		return nil
	}
}

// NewLowStockScanHandler refreshes the low-stock report and logs each
// product below threshold.
func NewLowStockScanHandler(alertSvc *alerts.Service, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		report, err := alertSvc.LowStockReport(ctx, payload.WarehouseID)
		if err != nil {
			logger.Error("low stock scan failed", "error", err)
			return err
		}
		if metrics != nil {
			metrics.SetLowStockProducts(len(report.Items))
		}
		for _, item := range report.Items {
			logger.Warn("low stock",
				"product_id", item.ProductID,
				"sku", item.SKU,
				"on_hand", item.OnHand.String(),
				"threshold", item.Threshold.String())
		}
		logger.Info("low stock scan done", "below_threshold", len(report.Items))
		return nil
	}
}
