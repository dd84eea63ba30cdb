package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockmaster/stockmaster/internal/observability"
	"github.com/stockmaster/stockmaster/internal/platform/httpx"
)

// Handler exposes the stock document workflow over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidDocumentState), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Document State", err.Error())
	case errors.Is(err, ErrDocumentImmutable):
		httpx.Problem(w, http.StatusConflict, "Document Immutable", err.Error())
	case errors.Is(err, ErrReferencedEntityMissing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Reference", err.Error())
	case errors.Is(err, ErrConcurrentUpdateConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "concurrent update, retry the request")
	default:
		h.logger.Error("stock handler failure", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func documentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scheduled, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateDocumentInput{
		DocType:               DocType(req.DocType),
		Reference:             req.Reference,
		ContactName:           req.ContactName,
		DeliveryAddress:       req.DeliveryAddress,
		SourceLocationID:      req.SourceLocationID,
		DestinationLocationID: req.DestinationLocationID,
		ScheduledDate:         scheduled,
		CreatedBy:             req.CreatedBy,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	doc, err := h.service.Create(r.Context(), input, time.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if doc.Status == StatusDone && h.metrics != nil {
		h.metrics.DocumentValidated(string(doc.DocType))
	}
	httpx.JSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter := DocumentFilter{
		DocType: DocType(r.URL.Query().Get("doc_type")),
		Status:  Status(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("warehouse_id"); v != "" {
		filter.WarehouseID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("created_by"); v != "" {
		filter.CreatedBy, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	docs, err := h.service.ListDocuments(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentResponse(doc))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	var req updateDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scheduled, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.UpdateHeader(r.Context(), id, UpdateHeaderInput{
		Reference:             req.Reference,
		ContactName:           req.ContactName,
		DeliveryAddress:       req.DeliveryAddress,
		SourceLocationID:      req.SourceLocationID,
		DestinationLocationID: req.DestinationLocationID,
		ScheduledDate:         scheduled,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) replaceLines(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	var req replaceLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	doc, err := h.service.ReplaceLines(r.Context(), id, lines)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) validateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	applied, err := h.service.Validate(r.Context(), id, time.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if applied && h.metrics != nil {
		h.metrics.DocumentValidated(string(doc.DocType))
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) cancelDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// documentAvailability recomputes the workflow status against current stock
// and persists the result before responding, so a stale Waiting flips to
// Ready on read once stock arrives.
func (h *Handler) documentAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be an integer")
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status, infos, err := h.service.RecomputeStatus(r.Context(), doc)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if doc.Status.IsOpen() && status != doc.Status {
		if err := h.service.PersistStatus(r.Context(), id, status); err != nil {
			h.respondError(w, err)
			return
		}
	}
	resp := availabilityResponse{DocumentID: id, Status: status}
	for _, info := range infos {
		resp.Lines = append(resp.Lines, lineAvailabilityResponse{
			ProductID: info.Line.ProductID,
			Requested: info.Line.Quantity,
			Available: info.Available,
			Short:     info.Short,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listQuants(w http.ResponseWriter, r *http.Request) {
	filter := QuantFilter{}
	if v := r.URL.Query().Get("product_id"); v != "" {
		filter.ProductID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("location_id"); v != "" {
		filter.LocationID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("warehouse_id"); v != "" {
		filter.WarehouseID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	quants, err := h.service.ListQuants(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items := make([]quantResponse, 0, len(quants))
	for _, q := range quants {
		items = append(items, quantResponse{ProductID: q.ProductID, LocationID: q.LocationID, Quantity: q.Quantity, UpdatedAt: q.UpdatedAt})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ledgerHistory(w http.ResponseWriter, r *http.Request) {
	filter := LedgerFilter{
		DocType:   DocType(r.URL.Query().Get("doc_type")),
		Reference: r.URL.Query().Get("reference"),
		Contact:   r.URL.Query().Get("contact"),
	}
	if v := r.URL.Query().Get("product_id"); v != "" {
		filter.ProductID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("location_id"); v != "" {
		filter.LocationID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.From = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	views, err := h.service.LedgerHistory(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items := make([]ledgerEntryResponse, 0, len(views))
	for _, view := range views {
		items = append(items, toLedgerEntryResponse(view))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}
