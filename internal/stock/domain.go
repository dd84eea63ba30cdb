package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DocType enumerates the supported stock document kinds.
type DocType string

const (
	// DocTypeReceipt is an inbound movement from an external vendor.
	DocTypeReceipt DocType = "receipt"
	// DocTypeDelivery is an outbound movement to an external customer.
	DocTypeDelivery DocType = "delivery"
	// DocTypeInternal moves stock between two internal locations.
	DocTypeInternal DocType = "internal"
	// DocTypeAdjustment applies signed corrections to a single location.
	DocTypeAdjustment DocType = "adjustment"
)

// IsValid reports whether the doc type is known.
func (t DocType) IsValid() bool {
	switch t {
	case DocTypeReceipt, DocTypeDelivery, DocTypeInternal, DocTypeAdjustment:
		return true
	default:
		return false
	}
}

// Status models the document workflow state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready"
	StatusDone     Status = "done"
	StatusCanceled Status = "canceled"
)

// IsTerminal reports whether the status can never change again.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCanceled
}

// IsOpen reports whether the document is still in the pre-validation workflow.
func (s Status) IsOpen() bool {
	return s == StatusDraft || s == StatusWaiting || s == StatusReady
}

// Document is the transactional unit grouping one or more move lines.
type Document struct {
	ID                    int64
	DocType               DocType
	Status                Status
	Reference             string
	ContactName           string
	DeliveryAddress       string
	SourceLocationID      *int64
	DestinationLocationID *int64
	ScheduledDate         *time.Time
	ValidatedAt           *time.Time
	CreatedBy             int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Lines                 []MoveLine
}

// MoveLine is one (product, quantity) entry within a document. Quantities are
// non-negative except on adjustment documents, where they are signed deltas.
type MoveLine struct {
	ID         int64
	DocumentID int64
	ProductID  int64
	Quantity   decimal.Decimal
}

// Quant is the current on-hand quantity of one product at one location.
// A zero quantity is a meaningful state, not absence.
type Quant struct {
	ID         int64
	ProductID  int64
	LocationID int64
	Quantity   decimal.Decimal
	UpdatedAt  time.Time
}

// LedgerEntry is the immutable audit record of a single quantity movement.
// DocumentID is nullable so the entry survives deletion of its document.
type LedgerEntry struct {
	ID                    int64
	DocumentID            *int64
	ProductID             int64
	SourceLocationID      *int64
	DestinationLocationID *int64
	QuantityDelta         decimal.Decimal
	CreatedAt             time.Time
}

// LineAvailability pairs a move line with the quantity available at the
// document's source location when the status was computed.
type LineAvailability struct {
	Line      MoveLine
	Available decimal.Decimal
	Short     bool
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	DocType     DocType
	Status      Status
	WarehouseID int64
	CreatedBy   int64
	Limit       int
	Offset      int
}

// LedgerFilter narrows ledger history queries for the reporting collaborator.
type LedgerFilter struct {
	ProductID  int64
	LocationID int64
	DocType    DocType
	From       time.Time
	To         time.Time
	Reference  string
	Contact    string
	Limit      int
}

// LedgerView is a ledger entry joined with document and product context for
// move-history reporting.
type LedgerView struct {
	Entry       LedgerEntry
	ProductSKU  string
	ProductName string
	DocType     DocType
	Reference   string
	ContactName string
}

// QuantFilter narrows on-hand stock listings.
type QuantFilter struct {
	ProductID   int64
	LocationID  int64
	WarehouseID int64
	Limit       int
}

var (
	// ErrInvalidDocumentState indicates the document's locations violate the
	// constraints of its type, or its status forbids the operation.
	ErrInvalidDocumentState = errors.New("stock: invalid document state")
	// ErrReferencedEntityMissing indicates a line references a product that
	// cannot be resolved.
	ErrReferencedEntityMissing = errors.New("stock: referenced product missing")
	// ErrConcurrentUpdateConflict indicates the store reported a transaction
	// conflict; the operation may be retried.
	ErrConcurrentUpdateConflict = errors.New("stock: concurrent update conflict")
	// ErrDocumentNotFound indicates an unknown document id.
	ErrDocumentNotFound = errors.New("stock: document not found")
	// ErrDocumentImmutable indicates the document already reached Done.
	ErrDocumentImmutable = errors.New("stock: completed document is immutable")
	// ErrInvalidQuantity indicates a negative quantity on a non-adjustment line.
	ErrInvalidQuantity = errors.New("stock: quantity must not be negative")
)
