package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/heomed/docgen/internal/httpx"
	"github.com/heomed/docgen/internal/lifecycle"
	"github.com/heomed/docgen/internal/models"
	"github.com/heomed/docgen/internal/money"
	"github.com/heomed/docgen/internal/services"
)

// DocumentHandler exposes the document API: creation, listing,
// rendering, and status transitions.
type DocumentHandler struct {
	Svc *services.DocumentService
}

func NewDocumentHandler(svc *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{Svc: svc}
}

func (h *DocumentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/documents", h.collection)
	mux.HandleFunc("/documents/", h.item)
}

func (h *DocumentHandler) collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

// item routes /documents/{id} and its sub-actions.
func (h *DocumentHandler) item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id64, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || id64 == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_document_id", nil)
		return
	}
	id := uint(id64)

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case action == "pdf" && r.Method == http.MethodGet:
		h.pdf(w, r, id)
	case action == "pay" && r.Method == http.MethodPost:
		h.transition(w, r, id, h.Svc.MarkPaid)
	case action == "cancel" && r.Method == http.MethodPost:
		h.transition(w, r, id, h.Svc.Cancel)
	default:
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	}
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" {
		switch models.Status(status) {
		case models.StatusPending, models.StatusPaid, models.StatusCancelled:
		default:
			httpx.JSONError(w, http.StatusBadRequest, "invalid_status_filter", nil)
			return
		}
	}
	docs, err := h.Svc.List(r.Context(), status)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_documents", nil)
		return
	}
	items := make([]map[string]any, 0, len(docs))
	for i := range docs {
		items = append(items, docSummary(&docs[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (h *DocumentHandler) create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Svc.Create(r.Context(), in, time.Now().UTC())
	if err != nil {
		var verr *services.ErrValidation
		if errors.As(err, &verr) {
			httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Violations)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_document", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, docDetail(doc))
}

func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request, id uint) {
	doc, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "document_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_document", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, docDetail(doc))
}

func (h *DocumentHandler) pdf(w http.ResponseWriter, r *http.Request, id uint) {
	data, doc, err := h.Svc.Render(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "document_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_render_document", nil)
		return
	}
	httpx.PDF(w, fmt.Sprintf("%s-%06d.pdf", doc.Kind, doc.ID), data)
}

func (h *DocumentHandler) transition(w http.ResponseWriter, r *http.Request, id uint,
	fn func(ctx context.Context, id uint, now time.Time) error) {
	err := fn(r.Context(), id, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			httpx.JSONError(w, http.StatusNotFound, "document_not_found", nil)
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			httpx.JSONError(w, http.StatusConflict, "invalid_status_transition", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_document", nil)
		}
		return
	}
	doc, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_document", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, docDetail(doc))
}

func docSummary(d *models.Document) map[string]any {
	return map[string]any{
		"id":          d.ID,
		"number":      fmt.Sprintf("%06d", d.ID),
		"kind":        d.Kind,
		"status":      d.Status,
		"language":    d.Language,
		"currency":    d.Currency,
		"client_name": d.ClientName,
		"subtotal":    money.Display(d.Subtotal),
		"grand_total": money.Display(d.GrandTotal),
		"created_at":  d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func docDetail(d *models.Document) map[string]any {
	out := docSummary(d)
	out["client_address"] = d.ClientAddress
	out["notes"] = d.Notes
	out["exchange_rate"] = d.ExchangeRate.String()
	out["tax_percent"] = d.TaxPercent.String()
	out["discount_percent"] = d.DiscountPercent.String()
	out["status_changed_at"] = d.StatusChangedAt.UTC().Format(time.RFC3339)
	out["pdf_path"] = d.PDFPath

	items := make([]map[string]any, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, map[string]any{
			"position":    it.Position,
			"description": it.Description,
			"quantity":    it.Quantity,
			"unit_price":  money.Display(it.UnitPrice),
			"line_total":  money.Display(money.LineTotal(money.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice})),
		})
	}
	out["items"] = items
	return out
}
