package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/stockmaster/stockmaster/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDocument(ctx context.Context, id int64) (Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error)
	AvailableQuantity(ctx context.Context, productID, locationID int64) (decimal.Decimal, error)
	ListQuants(ctx context.Context, filter QuantFilter) ([]Quant, error)
	LedgerHistory(ctx context.Context, filter LedgerFilter) ([]LedgerView, error)
	UpdateStatusIfOpen(ctx context.Context, id int64, status Status) (bool, error)
	DeleteDocument(ctx context.Context, id int64) error
	ListDueInternalTransfers(ctx context.Context, due time.Time) ([]int64, error)
}

// TxRepository exposes the primitives callable only inside the engine's
// enclosing transaction. It holds no transaction semantics of its own.
type TxRepository interface {
	InsertDocument(ctx context.Context, doc Document) (int64, error)
	InsertLines(ctx context.Context, docID int64, lines []MoveLine) error
	DeleteLines(ctx context.Context, docID int64) error
	UpdateHeader(ctx context.Context, doc Document) error
	GetDocumentForUpdate(ctx context.Context, id int64) (Document, error)
	AdjustQuant(ctx context.Context, productID, locationID int64, delta decimal.Decimal) (decimal.Decimal, error)
	AppendLedgerEntry(ctx context.Context, entry LedgerEntry) error
	MarkValidated(ctx context.Context, id int64, at time.Time) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// validateAttempts bounds retries of the whole validation transaction when
// the store reports a serialization conflict.
const validateAttempts = 3

// Service coordinates the stock document workflow and the validation engine.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// LineInput describes one requested move line.
type LineInput struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// CreateDocumentInput describes a new stock document.
type CreateDocumentInput struct {
	DocType               DocType
	Reference             string
	ContactName           string
	DeliveryAddress       string
	SourceLocationID      *int64
	DestinationLocationID *int64
	ScheduledDate         *time.Time
	CreatedBy             int64
	Lines                 []LineInput
}

// UpdateHeaderInput carries editable header fields.
type UpdateHeaderInput struct {
	Reference             *string
	ContactName           *string
	DeliveryAddress       *string
	SourceLocationID      *int64
	DestinationLocationID *int64
	ScheduledDate         *time.Time
}

// Create persists a new document with its lines. Receipts are validated
// immediately; internal transfers validate at creation when their scheduled
// date is on or before the reference time; deliveries always start in Draft.
func (s *Service) Create(ctx context.Context, input CreateDocumentInput, now time.Time) (Document, error) {
	if len(input.Lines) == 0 {
		return Document{}, fmt.Errorf("%w: document requires at least one line", ErrInvalidDocumentState)
	}
	doc := Document{
		DocType:               input.DocType,
		Status:                StatusDraft,
		Reference:             input.Reference,
		ContactName:           input.ContactName,
		DeliveryAddress:       input.DeliveryAddress,
		SourceLocationID:      input.SourceLocationID,
		DestinationLocationID: input.DestinationLocationID,
		ScheduledDate:         input.ScheduledDate,
		CreatedBy:             input.CreatedBy,
	}
	if input.DocType == DocTypeReceipt {
		doc.Status = StatusReady
	}
	if doc.Reference == "" {
		doc.Reference = newReference(doc.DocType)
	}
	kind, err := kindOf(doc)
	if err != nil {
		return Document{}, err
	}
	lines := make([]MoveLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		line := MoveLine{ProductID: in.ProductID, Quantity: in.Quantity}
		if _, _, err := kind.lineEffects(line); err != nil {
			return Document{}, err
		}
		lines = append(lines, line)
	}

	var docID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertDocument(ctx, doc)
		if err != nil {
			return err
		}
		docID = id
		return tx.InsertLines(ctx, id, lines)
	})
	if err != nil {
		return Document{}, err
	}

	if s.shouldAutoValidate(doc, now) {
		if _, err := s.Validate(ctx, docID, now); err != nil {
			return Document{}, err
		}
	}
	return s.repo.GetDocument(ctx, docID)
}

var referencePrefixes = map[DocType]string{
	DocTypeReceipt:    "RCP",
	DocTypeDelivery:   "DLV",
	DocTypeInternal:   "TRF",
	DocTypeAdjustment: "ADJ",
}

// newReference derives a default reference for documents created without one.
func newReference(t DocType) string {
	return fmt.Sprintf("%s-%s", referencePrefixes[t], strings.ToUpper(uuid.NewString()[:8]))
}

// shouldAutoValidate implements the deliberate asymmetry between document
// types: receipts validate on creation, internal transfers validate when
// already due, deliveries never validate automatically.
func (s *Service) shouldAutoValidate(doc Document, now time.Time) bool {
	switch doc.DocType {
	case DocTypeReceipt:
		return true
	case DocTypeInternal:
		if doc.ScheduledDate == nil {
			return false
		}
		today := now.Truncate(24 * time.Hour)
		return !doc.ScheduledDate.After(today)
	default:
		return false
	}
}

// Validate commits the document's quantity effects and marks it Done, inside
// one atomic transaction. Re-invoking on a Done document is a no-op; the
// returned bool reports whether effects were applied on this call. The
// whole transaction is retried a bounded number of times on serialization
// conflicts before surfacing ErrConcurrentUpdateConflict.
func (s *Service) Validate(ctx context.Context, docID int64, now time.Time) (bool, error) {
	backoff := retry.WithMaxRetries(validateAttempts-1, retry.NewExponential(25*time.Millisecond))
	var docType DocType
	var applied bool
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		kind, didApply, err := s.validateOnce(ctx, docID, now)
		if err != nil {
			if errors.Is(err, ErrConcurrentUpdateConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		docType = kind
		applied = didApply
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied && s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  0,
			Action:   fmt.Sprintf("stock:validate:%s", docType),
			Entity:   "stock_document",
			EntityID: fmt.Sprintf("%d", docID),
			Meta:     map[string]any{"validated_at": now.UTC()},
		})
	}
	return applied, nil
}

// validateOnce runs one attempt of the validation transaction. It reports the
// document type and whether effects were applied (false when the document was
// already Done).
func (s *Service) validateOnce(ctx context.Context, docID int64, now time.Time) (DocType, bool, error) {
	var docType DocType
	var applied bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		docType = doc.DocType
		if doc.Status == StatusDone {
			return nil
		}
		if doc.Status == StatusCanceled {
			return fmt.Errorf("%w: canceled document cannot be validated", ErrInvalidDocumentState)
		}
		kind, err := kindOf(doc)
		if err != nil {
			return err
		}
		id := doc.ID
		for _, line := range doc.Lines {
			changes, mv, err := kind.lineEffects(line)
			if err != nil {
				return err
			}
			for _, change := range changes {
				if _, err := tx.AdjustQuant(ctx, change.ProductID, change.LocationID, change.Delta); err != nil {
					return err
				}
			}
			entry := LedgerEntry{
				DocumentID:            &id,
				ProductID:             mv.ProductID,
				SourceLocationID:      mv.SourceLocationID,
				DestinationLocationID: mv.DestinationLocationID,
				QuantityDelta:         mv.Delta,
			}
			if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
				return err
			}
		}
		if err := tx.MarkValidated(ctx, doc.ID, now); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return docType, applied, err
}

// RecomputeStatus derives the workflow status for an open document by
// comparing requested line quantities against available stock at the source
// location. It never mutates anything; callers persist the result explicitly
// through PersistStatus. Terminal statuses are returned unchanged.
func (s *Service) RecomputeStatus(ctx context.Context, doc Document) (Status, []LineAvailability, error) {
	if doc.Status.IsTerminal() {
		return doc.Status, nil, nil
	}
	kind, err := kindOf(doc)
	if err != nil {
		return doc.Status, nil, err
	}
	source, gated := kind.availabilitySource()
	if !gated {
		return StatusReady, nil, nil
	}
	infos := make([]LineAvailability, 0, len(doc.Lines))
	anyShort := false
	for _, line := range doc.Lines {
		available, err := s.repo.AvailableQuantity(ctx, line.ProductID, source)
		if err != nil {
			return doc.Status, nil, err
		}
		short := available.LessThan(line.Quantity)
		if short {
			anyShort = true
		}
		infos = append(infos, LineAvailability{Line: line, Available: available, Short: short})
	}
	if anyShort {
		return StatusWaiting, infos, nil
	}
	return StatusReady, infos, nil
}

// PersistStatus stores a recomputed status. The update is bounded to open
// statuses so it can never race a concurrent validation into overwriting
// Done or Canceled.
func (s *Service) PersistStatus(ctx context.Context, docID int64, status Status) error {
	if !status.IsOpen() {
		return fmt.Errorf("%w: only open statuses may be persisted here", ErrInvalidDocumentState)
	}
	_, err := s.repo.UpdateStatusIfOpen(ctx, docID, status)
	return err
}

// Cancel marks an open document Canceled. Completed documents are immutable.
func (s *Service) Cancel(ctx context.Context, docID int64) error {
	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Status == StatusDone {
		return ErrDocumentImmutable
	}
	_, err = s.repo.UpdateStatusIfOpen(ctx, docID, StatusCanceled)
	return err
}

// UpdateHeader edits header fields of an open document.
func (s *Service) UpdateHeader(ctx context.Context, docID int64, input UpdateHeaderInput) (Document, error) {
	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return Document{}, err
	}
	if !doc.Status.IsOpen() {
		return Document{}, ErrDocumentImmutable
	}
	if input.Reference != nil {
		doc.Reference = *input.Reference
	}
	if input.ContactName != nil {
		doc.ContactName = *input.ContactName
	}
	if input.DeliveryAddress != nil {
		doc.DeliveryAddress = *input.DeliveryAddress
	}
	if input.SourceLocationID != nil {
		doc.SourceLocationID = input.SourceLocationID
	}
	if input.DestinationLocationID != nil {
		doc.DestinationLocationID = input.DestinationLocationID
	}
	if input.ScheduledDate != nil {
		doc.ScheduledDate = input.ScheduledDate
	}
	if _, err := kindOf(doc); err != nil {
		return Document{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateHeader(ctx, doc)
	})
	if err != nil {
		return Document{}, err
	}
	return s.repo.GetDocument(ctx, docID)
}

// ReplaceLines swaps the line set of an open document.
func (s *Service) ReplaceLines(ctx context.Context, docID int64, inputs []LineInput) (Document, error) {
	if len(inputs) == 0 {
		return Document{}, fmt.Errorf("%w: document requires at least one line", ErrInvalidDocumentState)
	}
	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return Document{}, err
	}
	if !doc.Status.IsOpen() {
		return Document{}, ErrDocumentImmutable
	}
	kind, err := kindOf(doc)
	if err != nil {
		return Document{}, err
	}
	lines := make([]MoveLine, 0, len(inputs))
	for _, in := range inputs {
		line := MoveLine{DocumentID: docID, ProductID: in.ProductID, Quantity: in.Quantity}
		if _, _, err := kind.lineEffects(line); err != nil {
			return Document{}, err
		}
		lines = append(lines, line)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteLines(ctx, docID); err != nil {
			return err
		}
		return tx.InsertLines(ctx, docID, lines)
	})
	if err != nil {
		return Document{}, err
	}
	return s.repo.GetDocument(ctx, docID)
}

// Delete removes a document. Ledger entries written for it survive with their
// document reference cleared.
func (s *Service) Delete(ctx context.Context, docID int64) error {
	return s.repo.DeleteDocument(ctx, docID)
}

// GetDocument loads a document with its lines.
func (s *Service) GetDocument(ctx context.Context, docID int64) (Document, error) {
	return s.repo.GetDocument(ctx, docID)
}

// ListDocuments lists documents matching the filter.
func (s *Service) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	return s.repo.ListDocuments(ctx, filter)
}

// ListQuants lists current on-hand quantities.
func (s *Service) ListQuants(ctx context.Context, filter QuantFilter) ([]Quant, error) {
	return s.repo.ListQuants(ctx, filter)
}

// LedgerHistory queries the append-only movement log.
func (s *Service) LedgerHistory(ctx context.Context, filter LedgerFilter) ([]LedgerView, error) {
	return s.repo.LedgerHistory(ctx, filter)
}

// ValidateDueInternalTransfers validates internal transfers in Ready whose
// scheduled date is on or before the reference time. It returns the ids that
// were validated; individual failures abort the sweep.
func (s *Service) ValidateDueInternalTransfers(ctx context.Context, now time.Time) ([]int64, error) {
	ids, err := s.repo.ListDueInternalTransfers(ctx, now)
	if err != nil {
		return nil, err
	}
	validated := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, err := s.Validate(ctx, id, now); err != nil {
			return validated, fmt.Errorf("validate document %d: %w", id, err)
		}
		validated = append(validated, id)
	}
	return validated, nil
}
