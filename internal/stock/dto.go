package stock

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type lineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

type createDocumentRequest struct {
	DocType               string        `json:"doc_type" validate:"required,oneof=receipt delivery internal adjustment"`
	Reference             string        `json:"reference" validate:"max=64"`
	ContactName           string        `json:"contact_name" validate:"max=255"`
	DeliveryAddress       string        `json:"delivery_address" validate:"max=1000"`
	SourceLocationID      *int64        `json:"source_location_id"`
	DestinationLocationID *int64        `json:"destination_location_id"`
	ScheduledDate         *string       `json:"scheduled_date"`
	CreatedBy             int64         `json:"created_by" validate:"required,gt=0"`
	Lines                 []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateDocumentRequest struct {
	Reference             *string `json:"reference" validate:"omitempty,max=64"`
	ContactName           *string `json:"contact_name" validate:"omitempty,max=255"`
	DeliveryAddress       *string `json:"delivery_address" validate:"omitempty,max=1000"`
	SourceLocationID      *int64  `json:"source_location_id"`
	DestinationLocationID *int64  `json:"destination_location_id"`
	ScheduledDate         *string `json:"scheduled_date"`
}

type replaceLinesRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func parseScheduledDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled_date %q, want YYYY-MM-DD", *value)
	}
	return &t, nil
}

type lineResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type documentResponse struct {
	ID                    int64          `json:"id"`
	DocType               DocType        `json:"doc_type"`
	Status                Status         `json:"status"`
	Reference             string         `json:"reference"`
	ContactName           string         `json:"contact_name"`
	DeliveryAddress       string         `json:"delivery_address,omitempty"`
	SourceLocationID      *int64         `json:"source_location_id,omitempty"`
	DestinationLocationID *int64         `json:"destination_location_id,omitempty"`
	ScheduledDate         *string        `json:"scheduled_date,omitempty"`
	ValidatedAt           *time.Time     `json:"validated_at,omitempty"`
	CreatedBy             int64          `json:"created_by"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	Lines                 []lineResponse `json:"lines,omitempty"`
}

func toDocumentResponse(doc Document) documentResponse {
	resp := documentResponse{
		ID:                    doc.ID,
		DocType:               doc.DocType,
		Status:                doc.Status,
		Reference:             doc.Reference,
		ContactName:           doc.ContactName,
		DeliveryAddress:       doc.DeliveryAddress,
		SourceLocationID:      doc.SourceLocationID,
		DestinationLocationID: doc.DestinationLocationID,
		ValidatedAt:           doc.ValidatedAt,
		CreatedBy:             doc.CreatedBy,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}
	if doc.ScheduledDate != nil {
		formatted := doc.ScheduledDate.Format(dateLayout)
		resp.ScheduledDate = &formatted
	}
	for _, line := range doc.Lines {
		resp.Lines = append(resp.Lines, lineResponse{ID: line.ID, ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return resp
}

type lineAvailabilityResponse struct {
	ProductID int64           `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
	Short     bool            `json:"short"`
}

type availabilityResponse struct {
	DocumentID int64                      `json:"document_id"`
	Status     Status                     `json:"status"`
	Lines      []lineAvailabilityResponse `json:"lines,omitempty"`
}

type quantResponse struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ledgerEntryResponse struct {
	ID                    int64           `json:"id"`
	DocumentID            *int64          `json:"document_id,omitempty"`
	DocType               DocType         `json:"doc_type,omitempty"`
	Reference             string          `json:"reference,omitempty"`
	ContactName           string          `json:"contact_name,omitempty"`
	ProductID             int64           `json:"product_id"`
	ProductSKU            string          `json:"product_sku"`
	ProductName           string          `json:"product_name"`
	SourceLocationID      *int64          `json:"source_location_id,omitempty"`
	DestinationLocationID *int64          `json:"destination_location_id,omitempty"`
	QuantityDelta         decimal.Decimal `json:"quantity_delta"`
	CreatedAt             time.Time       `json:"created_at"`
}

func toLedgerEntryResponse(view LedgerView) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:                    view.Entry.ID,
		DocumentID:            view.Entry.DocumentID,
		DocType:               view.DocType,
		Reference:             view.Reference,
		ContactName:           view.ContactName,
		ProductID:             view.Entry.ProductID,
		ProductSKU:            view.ProductSKU,
		ProductName:           view.ProductName,
		SourceLocationID:      view.Entry.SourceLocationID,
		DestinationLocationID: view.Entry.DestinationLocationID,
		QuantityDelta:         view.Entry.QuantityDelta,
		CreatedAt:             view.Entry.CreatedAt,
	}
}
