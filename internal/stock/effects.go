package stock

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// quantChange is one signed delta against a (product, location) pair.
type quantChange struct {
	ProductID  int64
	LocationID int64
	Delta      decimal.Decimal
}

// movement is the ledger view of one line's effect. An internal transfer is
// recorded once with both endpoints, not as two entries.
type movement struct {
	ProductID             int64
	SourceLocationID      *int64
	DestinationLocationID *int64
	Delta                 decimal.Decimal
}

// docKind is the tagged variant over the four document types. Each variant
// carries only the locations valid for its kind, so a receipt cannot silently
// carry a source location through effect computation.
type docKind interface {
	// lineEffects computes the quant changes and the single ledger movement
	// produced by validating one line.
	lineEffects(line MoveLine) ([]quantChange, movement, error)
	// availabilitySource names the location whose on-hand stock gates the
	// workflow status, when the kind has one.
	availabilitySource() (int64, bool)
}

type receiptKind struct {
	destination int64
}

type deliveryKind struct {
	source int64
}

type internalKind struct {
	source      int64
	destination int64
}

type adjustmentKind struct {
	location int64
}

// kindOf classifies a document, enforcing the per-type location invariants.
func kindOf(doc Document) (docKind, error) {
	src, dst := doc.SourceLocationID, doc.DestinationLocationID
	switch doc.DocType {
	case DocTypeReceipt:
		if dst == nil {
			return nil, fmt.Errorf("%w: receipt requires a destination location", ErrInvalidDocumentState)
		}
		if src != nil {
			return nil, fmt.Errorf("%w: receipt must not carry a source location", ErrInvalidDocumentState)
		}
		return receiptKind{destination: *dst}, nil
	case DocTypeDelivery:
		if src == nil {
			return nil, fmt.Errorf("%w: delivery requires a source location", ErrInvalidDocumentState)
		}
		if dst != nil {
			return nil, fmt.Errorf("%w: delivery must not carry a destination location", ErrInvalidDocumentState)
		}
		return deliveryKind{source: *src}, nil
	case DocTypeInternal:
		if src == nil || dst == nil {
			return nil, fmt.Errorf("%w: internal transfer requires source and destination locations", ErrInvalidDocumentState)
		}
		if *src == *dst {
			return nil, fmt.Errorf("%w: internal transfer locations must differ", ErrInvalidDocumentState)
		}
		return internalKind{source: *src, destination: *dst}, nil
	case DocTypeAdjustment:
		if (src == nil) == (dst == nil) {
			return nil, fmt.Errorf("%w: adjustment requires exactly one location", ErrInvalidDocumentState)
		}
		if dst != nil {
			return adjustmentKind{location: *dst}, nil
		}
		return adjustmentKind{location: *src}, nil
	default:
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidDocumentState, doc.DocType)
	}
}

func (k receiptKind) lineEffects(line MoveLine) ([]quantChange, movement, error) {
	if line.Quantity.IsNegative() {
		return nil, movement{}, ErrInvalidQuantity
	}
	dst := k.destination
	return []quantChange{
			{ProductID: line.ProductID, LocationID: dst, Delta: line.Quantity},
		}, movement{
			ProductID:             line.ProductID,
			DestinationLocationID: &dst,
			Delta:                 line.Quantity,
		}, nil
}

func (k receiptKind) availabilitySource() (int64, bool) {
	// External vendor is the implicit source; never gated on stock.
	return 0, false
}

func (k deliveryKind) lineEffects(line MoveLine) ([]quantChange, movement, error) {
	if line.Quantity.IsNegative() {
		return nil, movement{}, ErrInvalidQuantity
	}
	src := k.source
	return []quantChange{
			{ProductID: line.ProductID, LocationID: src, Delta: line.Quantity.Neg()},
		}, movement{
			ProductID:        line.ProductID,
			SourceLocationID: &src,
			Delta:            line.Quantity.Neg(),
		}, nil
}

func (k deliveryKind) availabilitySource() (int64, bool) {
	return k.source, true
}

func (k internalKind) lineEffects(line MoveLine) ([]quantChange, movement, error) {
	if line.Quantity.IsNegative() {
		return nil, movement{}, ErrInvalidQuantity
	}
	src, dst := k.source, k.destination
	return []quantChange{
			{ProductID: line.ProductID, LocationID: src, Delta: line.Quantity.Neg()},
			{ProductID: line.ProductID, LocationID: dst, Delta: line.Quantity},
		}, movement{
			ProductID:             line.ProductID,
			SourceLocationID:      &src,
			DestinationLocationID: &dst,
			Delta:                 line.Quantity,
		}, nil
}

func (k internalKind) availabilitySource() (int64, bool) {
	return k.source, true
}

func (k adjustmentKind) lineEffects(line MoveLine) ([]quantChange, movement, error) {
	// Adjustment quantities are already signed.
	loc := k.location
	return []quantChange{
			{ProductID: line.ProductID, LocationID: loc, Delta: line.Quantity},
		}, movement{
			ProductID:             line.ProductID,
			DestinationLocationID: &loc,
			Delta:                 line.Quantity,
		}, nil
}

func (k adjustmentKind) availabilitySource() (int64, bool) {
	// Corrections are deliberate; they are never held for stock.
	return 0, false
}
