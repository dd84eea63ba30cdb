package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAutoValidate validates internal transfers that became due.
	TaskStockAutoValidate = "stock:autovalidate"
	// TaskLowStockScan refreshes the low-stock report and logs alerts.
	TaskLowStockScan = "stock:lowstock_scan"
)

// AutoValidatePayload carries the reference time for a validation sweep. A
// zero time means "now" at processing.
type AutoValidatePayload struct {
	At time.Time `json:"at,omitempty"`
}

// NewAutoValidateTask constructs the auto-validation task.
func NewAutoValidateTask(payload AutoValidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAutoValidate, data), nil
}

// LowStockScanPayload scopes a scan to one warehouse when set.
type LowStockScanPayload struct {
	WarehouseID *int64 `json:"warehouse_id,omitempty"`
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
