package stock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockmaster/stockmaster/internal/shared"
)

type memoryRepo struct {
	docs         map[int64]*Document
	quants       map[string]decimal.Decimal
	ledger       []LedgerEntry
	nextDocID    int64
	nextLineID   int64
	nextLedgerID int64

	// test hooks
	conflictsLeft int
	failProductID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		docs:   map[int64]*Document{},
		quants: map[string]decimal.Decimal{},
	}
}

func quantKey(productID, locationID int64) string {
	return fmt.Sprintf("%d:%d", productID, locationID)
}

func (r *memoryRepo) seedQuant(productID, locationID int64, qty decimal.Decimal) {
	r.quants[quantKey(productID, locationID)] = qty
}

func (r *memoryRepo) quant(productID, locationID int64) decimal.Decimal {
	return r.quants[quantKey(productID, locationID)]
}

func copyDoc(doc Document) Document {
	out := doc
	out.Lines = append([]MoveLine(nil), doc.Lines...)
	return out
}

func (r *memoryRepo) snapshot() (map[int64]*Document, map[string]decimal.Decimal, []LedgerEntry) {
	docs := make(map[int64]*Document, len(r.docs))
	for id, doc := range r.docs {
		clone := copyDoc(*doc)
		docs[id] = &clone
	}
	quants := make(map[string]decimal.Decimal, len(r.quants))
	for k, v := range r.quants {
		quants[k] = v
	}
	ledger := append([]LedgerEntry(nil), r.ledger...)
	return docs, quants, ledger
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	docs, quants, ledger := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.docs, r.quants, r.ledger = docs, quants, ledger
		return err
	}
	return nil
}

func (r *memoryRepo) GetDocument(_ context.Context, id int64) (Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return copyDoc(*doc), nil
}

func (r *memoryRepo) ListDocuments(_ context.Context, filter DocumentFilter) ([]Document, error) {
	var out []Document
	for _, doc := range r.docs {
		if filter.DocType != "" && doc.DocType != filter.DocType {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, copyDoc(*doc))
	}
	return out, nil
}

func (r *memoryRepo) AvailableQuantity(_ context.Context, productID, locationID int64) (decimal.Decimal, error) {
	return r.quant(productID, locationID), nil
}

func (r *memoryRepo) ListQuants(_ context.Context, _ QuantFilter) ([]Quant, error) {
	var out []Quant
	for key, qty := range r.quants {
		var productID, locationID int64
		fmt.Sscanf(key, "%d:%d", &productID, &locationID)
		out = append(out, Quant{ProductID: productID, LocationID: locationID, Quantity: qty})
	}
	return out, nil
}

func (r *memoryRepo) LedgerHistory(_ context.Context, _ LedgerFilter) ([]LedgerView, error) {
	out := make([]LedgerView, 0, len(r.ledger))
	for _, entry := range r.ledger {
		out = append(out, LedgerView{Entry: entry})
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatusIfOpen(_ context.Context, id int64, status Status) (bool, error) {
	doc, ok := r.docs[id]
	if !ok {
		return false, ErrDocumentNotFound
	}
	if !doc.Status.IsOpen() {
		return false, nil
	}
	doc.Status = status
	return true, nil
}

func (r *memoryRepo) DeleteDocument(_ context.Context, id int64) error {
	if _, ok := r.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(r.docs, id)
	for i := range r.ledger {
		if r.ledger[i].DocumentID != nil && *r.ledger[i].DocumentID == id {
			r.ledger[i].DocumentID = nil
		}
	}
	return nil
}

func (r *memoryRepo) ListDueInternalTransfers(_ context.Context, due time.Time) ([]int64, error) {
	var ids []int64
	for id, doc := range r.docs {
		if doc.DocType != DocTypeInternal || doc.Status != StatusReady {
			continue
		}
		if doc.ScheduledDate == nil || doc.ScheduledDate.After(due) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) InsertDocument(_ context.Context, doc Document) (int64, error) {
	t.repo.nextDocID++
	doc.ID = t.repo.nextDocID
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	t.repo.docs[doc.ID] = &doc
	return doc.ID, nil
}

func (t *memoryTx) InsertLines(_ context.Context, docID int64, lines []MoveLine) error {
	doc, ok := t.repo.docs[docID]
	if !ok {
		return ErrDocumentNotFound
	}
	for _, line := range lines {
		t.repo.nextLineID++
		line.ID = t.repo.nextLineID
		line.DocumentID = docID
		doc.Lines = append(doc.Lines, line)
	}
	return nil
}

func (t *memoryTx) DeleteLines(_ context.Context, docID int64) error {
	doc, ok := t.repo.docs[docID]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.Lines = nil
	return nil
}

func (t *memoryTx) UpdateHeader(_ context.Context, in Document) error {
	doc, ok := t.repo.docs[in.ID]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.Reference = in.Reference
	doc.ContactName = in.ContactName
	doc.DeliveryAddress = in.DeliveryAddress
	doc.SourceLocationID = in.SourceLocationID
	doc.DestinationLocationID = in.DestinationLocationID
	doc.ScheduledDate = in.ScheduledDate
	doc.UpdatedAt = time.Now()
	return nil
}

func (t *memoryTx) GetDocumentForUpdate(ctx context.Context, id int64) (Document, error) {
	return t.repo.GetDocument(ctx, id)
}

func (t *memoryTx) AdjustQuant(_ context.Context, productID, locationID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if t.repo.conflictsLeft > 0 {
		t.repo.conflictsLeft--
		return decimal.Zero, fmt.Errorf("adjust quant: %w", ErrConcurrentUpdateConflict)
	}
	if t.repo.failProductID != 0 && productID == t.repo.failProductID {
		return decimal.Zero, fmt.Errorf("adjust quant: %w", ErrReferencedEntityMissing)
	}
	key := quantKey(productID, locationID)
	next := t.repo.quants[key].Add(delta)
	t.repo.quants[key] = next
	return next, nil
}

func (t *memoryTx) AppendLedgerEntry(_ context.Context, entry LedgerEntry) error {
	t.repo.nextLedgerID++
	entry.ID = t.repo.nextLedgerID
	entry.CreatedAt = time.Now()
	t.repo.ledger = append(t.repo.ledger, entry)
	return nil
}

func (t *memoryTx) MarkValidated(_ context.Context, id int64, at time.Time) error {
	doc, ok := t.repo.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.Status = StatusDone
	doc.ValidatedAt = &at
	doc.UpdatedAt = at
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, day int) *time.Time {
	t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestReceiptAutoValidates(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeReceipt,
		Reference:             "PO-0042",
		ContactName:           "Acme Metals",
		DestinationLocationID: ptr(1),
		CreatedBy:             7,
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("50")}},
	}, now)
	require.NoError(t, err)

	require.Equal(t, StatusDone, doc.Status)
	require.NotNil(t, doc.ValidatedAt)
	require.True(t, repo.quant(10, 1).Equal(d("50")))
	require.Len(t, repo.ledger, 1)
	require.Nil(t, repo.ledger[0].SourceLocationID)
	require.Equal(t, int64(1), *repo.ledger[0].DestinationLocationID)
	require.True(t, repo.ledger[0].QuantityDelta.Equal(d("50")))

	require.Len(t, audit.logs, 1)
	require.Equal(t, "stock:validate:receipt", audit.logs[0].Action)
}

func TestValidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)
	now := time.Now()

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeReceipt,
		DestinationLocationID: ptr(1),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("50")}},
	}, now)
	require.NoError(t, err)
	require.Equal(t, StatusDone, doc.Status)

	applied, err := svc.Validate(ctx, doc.ID, now)
	require.NoError(t, err)
	require.False(t, applied)

	require.True(t, repo.quant(10, 1).Equal(d("50")))
	require.Len(t, repo.ledger, 1)
	require.Len(t, audit.logs, 1)
}

func TestDeliveryShortageWorkflow(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Now()
	repo.seedQuant(10, 4, d("20"))

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("30")}},
	}, now)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, doc.Status)
	require.True(t, strings.HasPrefix(doc.Reference, "DLV-"))
	require.True(t, repo.quant(10, 4).Equal(d("20")))

	status, infos, err := svc.RecomputeStatus(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, status)
	require.Len(t, infos, 1)
	require.True(t, infos[0].Short)
	require.True(t, infos[0].Available.Equal(d("20")))

	require.NoError(t, svc.PersistStatus(ctx, doc.ID, status))
	got, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, got.Status)

	// Shortage is advisory: a forced validation drives stock negative.
	applied, err := svc.Validate(ctx, doc.ID, now)
	require.NoError(t, err)
	require.True(t, applied)
	require.True(t, repo.quant(10, 4).Equal(d("-10")))
	got, err = svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)
}

func TestDeliveryFullyAvailableIsReady(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.seedQuant(10, 4, d("100"))

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("30")}},
	}, time.Now())
	require.NoError(t, err)

	status, infos, err := svc.RecomputeStatus(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, StatusReady, status)
	require.Len(t, infos, 1)
	require.False(t, infos[0].Short)
}

func TestInternalTransferConservesStock(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.seedQuant(10, 1, d("40"))

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeInternal,
		SourceLocationID:      ptr(1),
		DestinationLocationID: ptr(2),
		ScheduledDate:         date(2026, 3, 10),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("15")}},
	}, now)
	require.NoError(t, err)

	// Due today, so it validated on creation.
	require.Equal(t, StatusDone, doc.Status)
	require.True(t, repo.quant(10, 1).Equal(d("25")))
	require.True(t, repo.quant(10, 2).Equal(d("15")))
	require.True(t, repo.quant(10, 1).Add(repo.quant(10, 2)).Equal(d("40")))

	// One ledger movement carrying both endpoints, not two.
	require.Len(t, repo.ledger, 1)
	require.Equal(t, int64(1), *repo.ledger[0].SourceLocationID)
	require.Equal(t, int64(2), *repo.ledger[0].DestinationLocationID)
	require.True(t, repo.ledger[0].QuantityDelta.Equal(d("15")))
}

func TestInternalTransferScheduledLaterWaits(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.seedQuant(10, 1, d("40"))

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeInternal,
		SourceLocationID:      ptr(1),
		DestinationLocationID: ptr(2),
		ScheduledDate:         date(2026, 3, 12),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("15")}},
	}, now)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, doc.Status)
	require.True(t, repo.quant(10, 2).IsZero())

	require.NoError(t, svc.PersistStatus(ctx, doc.ID, StatusReady))

	// Not yet due.
	ids, err := svc.ValidateDueInternalTransfers(ctx, now)
	require.NoError(t, err)
	require.Empty(t, ids)

	// Due once the scheduled date arrives.
	ids, err = svc.ValidateDueInternalTransfers(ctx, time.Date(2026, 3, 12, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, []int64{doc.ID}, ids)
	require.True(t, repo.quant(10, 2).Equal(d("15")))
}

func TestAdjustmentAppliesSignedDelta(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.seedQuant(2, 3, d("8"))

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeAdjustment,
		DestinationLocationID: ptr(3),
		Lines:                 []LineInput{{ProductID: 2, Quantity: d("-15")}},
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, doc.Status)

	// Adjustments are not availability gated.
	status, _, err := svc.RecomputeStatus(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, StatusReady, status)

	_, err = svc.Validate(ctx, doc.ID, time.Now())
	require.NoError(t, err)
	require.True(t, repo.quant(2, 3).Equal(d("-7")))
}

func TestValidateRejectsCanceled(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, doc.ID))
	_, err = svc.Validate(ctx, doc.ID, time.Now())
	require.ErrorIs(t, err, ErrInvalidDocumentState)
	require.Empty(t, repo.ledger)
}

func TestDoneDocumentIsImmutable(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeReceipt,
		DestinationLocationID: ptr(1),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusDone, doc.Status)

	require.ErrorIs(t, svc.Cancel(ctx, doc.ID), ErrDocumentImmutable)

	ref := "changed"
	_, err = svc.UpdateHeader(ctx, doc.ID, UpdateHeaderInput{Reference: &ref})
	require.ErrorIs(t, err, ErrDocumentImmutable)

	_, err = svc.ReplaceLines(ctx, doc.ID, []LineInput{{ProductID: 10, Quantity: d("1")}})
	require.ErrorIs(t, err, ErrDocumentImmutable)
}

func TestValidateRollsBackOnLineFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.seedQuant(10, 4, d("100"))
	repo.seedQuant(11, 4, d("100"))

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines: []LineInput{
			{ProductID: 10, Quantity: d("30")},
			{ProductID: 11, Quantity: d("20")},
		},
	}, time.Now())
	require.NoError(t, err)

	repo.failProductID = 11
	_, err = svc.Validate(ctx, doc.ID, time.Now())
	require.ErrorIs(t, err, ErrReferencedEntityMissing)

	// The first line's effect must not survive the failed transaction.
	require.True(t, repo.quant(10, 4).Equal(d("100")))
	require.True(t, repo.quant(11, 4).Equal(d("100")))
	require.Empty(t, repo.ledger)
	got, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, got.Status)
}

func TestValidateRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Now())
	require.NoError(t, err)

	repo.conflictsLeft = 1
	applied, err := svc.Validate(ctx, doc.ID, time.Now())
	require.NoError(t, err)
	require.True(t, applied)
	require.True(t, repo.quant(10, 4).Equal(d("-5")))
}

func TestValidateSurfacesPersistentConflict(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Now())
	require.NoError(t, err)

	repo.conflictsLeft = validateAttempts + 1
	_, err = svc.Validate(ctx, doc.ID, time.Now())
	require.ErrorIs(t, err, ErrConcurrentUpdateConflict)
	require.True(t, repo.quant(10, 4).IsZero())
	got, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, got.Status)
}

func TestCreateRequiresLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateDocumentInput{
		DocType:               DocTypeReceipt,
		DestinationLocationID: ptr(1),
	}, time.Now())
	require.ErrorIs(t, err, ErrInvalidDocumentState)
}

func TestCreateRejectsNegativeQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("-3")}},
	}, time.Now())
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, repo.docs)
}

func TestPersistStatusRejectsTerminal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.PersistStatus(context.Background(), 1, StatusDone)
	require.ErrorIs(t, err, ErrInvalidDocumentState)
}

func TestDeleteKeepsLedgerEntries(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeReceipt,
		DestinationLocationID: ptr(1),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("50")}},
	}, time.Now())
	require.NoError(t, err)
	require.Len(t, repo.ledger, 1)

	require.NoError(t, svc.Delete(ctx, doc.ID))
	_, err = svc.GetDocument(ctx, doc.ID)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	// The movement record outlives its document.
	require.Len(t, repo.ledger, 1)
	require.Nil(t, repo.ledger[0].DocumentID)
	require.True(t, repo.quant(10, 1).Equal(d("50")))

	require.ErrorIs(t, svc.Delete(ctx, doc.ID), ErrDocumentNotFound)
}

func TestLedgerReconcilesWithQuants(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeReceipt,
		DestinationLocationID: ptr(1),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("50")}},
	}, now)
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeInternal,
		SourceLocationID:      ptr(1),
		DestinationLocationID: ptr(2),
		ScheduledDate:         date(2026, 3, 9),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("20")}},
	}, now)
	require.NoError(t, err)

	delivery, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(2),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, now)
	require.NoError(t, err)
	_, err = svc.Validate(ctx, delivery.ID, now)
	require.NoError(t, err)

	// Replaying the ledger yields exactly the stored quants.
	derived := map[string]decimal.Decimal{}
	for _, entry := range repo.ledger {
		if entry.SourceLocationID != nil && entry.DestinationLocationID != nil {
			src := quantKey(entry.ProductID, *entry.SourceLocationID)
			dst := quantKey(entry.ProductID, *entry.DestinationLocationID)
			derived[src] = derived[src].Sub(entry.QuantityDelta)
			derived[dst] = derived[dst].Add(entry.QuantityDelta)
			continue
		}
		loc := entry.DestinationLocationID
		if loc == nil {
			loc = entry.SourceLocationID
		}
		key := quantKey(entry.ProductID, *loc)
		derived[key] = derived[key].Add(entry.QuantityDelta)
	}
	require.Len(t, derived, len(repo.quants))
	for key, qty := range repo.quants {
		require.True(t, derived[key].Equal(qty), "location %s", key)
	}
	require.True(t, repo.quant(10, 1).Equal(d("30")))
	require.True(t, repo.quant(10, 2).Equal(d("15")))
}

func TestReplaceLinesOnOpenDocument(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:          DocTypeDelivery,
		SourceLocationID: ptr(4),
		Lines:            []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Now())
	require.NoError(t, err)

	updated, err := svc.ReplaceLines(ctx, doc.ID, []LineInput{
		{ProductID: 10, Quantity: d("7")},
		{ProductID: 11, Quantity: d("2")},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	require.True(t, updated.Lines[0].Quantity.Equal(d("7")))

	_, err = svc.ReplaceLines(ctx, doc.ID, nil)
	require.ErrorIs(t, err, ErrInvalidDocumentState)
}

func TestUpdateHeaderKeepsLocationInvariants(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	doc, err := svc.Create(ctx, CreateDocumentInput{
		DocType:               DocTypeInternal,
		SourceLocationID:      ptr(1),
		DestinationLocationID: ptr(2),
		ScheduledDate:         date(2026, 4, 1),
		Lines:                 []LineInput{{ProductID: 10, Quantity: d("5")}},
	}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Collapsing both endpoints onto one location must be rejected.
	_, err = svc.UpdateHeader(ctx, doc.ID, UpdateHeaderInput{DestinationLocationID: ptr(1)})
	require.ErrorIs(t, err, ErrInvalidDocumentState)

	ref := "TRF-7"
	updated, err := svc.UpdateHeader(ctx, doc.ID, UpdateHeaderInput{Reference: &ref})
	require.NoError(t, err)
	require.Equal(t, "TRF-7", updated.Reference)
}
