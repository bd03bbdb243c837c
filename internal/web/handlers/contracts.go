package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/contracte/internal/contract"
	"github.com/foxzi/contracte/internal/export"
	"github.com/foxzi/contracte/internal/web/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func validStatus(s string) bool {
	switch s {
	case models.ContractReserved, models.ContractDraft, models.ContractSent,
		models.ContractSigned, models.ContractArchived:
		return true
	}
	return false
}

func contractFilter(r *http.Request) (models.ContractListFilter, bool) {
	q := r.URL.Query()
	filter := models.ContractListFilter{
		Status:    q.Get("status"),
		PartnerID: q.Get("partner_id"),
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return filter, false
	}
	return filter, true
}

// ListContracts handles GET /contracts
func (h *Handlers) ListContracts(w http.ResponseWriter, r *http.Request) {
	filter, ok := contractFilter(r)
	if !ok {
		h.apiError(w, http.StatusBadRequest, "Unknown status", "INVALID_STATUS")
		return
	}
	filter.Limit, filter.Offset = pagination(r)

	contracts, total, err := h.contracts.List(filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.apiJSON(w, http.StatusOK, map[string]any{
		"contracts": contracts,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// CreateContract handles POST /contracts
func (h *Handlers) CreateContract(w http.ResponseWriter, r *http.Request) {
	var in contract.Input
	if !h.decode(w, r, &in) {
		return
	}

	c, err := h.contracts.Create(in)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusCreated, c)
}

// ReserveContract handles POST /contracts/reserve
func (h *Handlers) ReserveContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Reserve()
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusCreated, c)
}

// GetContract handles GET /contracts/{id}
func (h *Handlers) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, c)
}

// UpdateContract handles PUT /contracts/{id}
func (h *Handlers) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var in contract.Input
	if !h.decode(w, r, &in) {
		return
	}

	c, err := h.contracts.Update(chi.URLParam(r, "id"), in)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, c)
}

// PreviewContract handles GET /contracts/{id}/preview
func (h *Handlers) PreviewContract(w http.ResponseWriter, r *http.Request) {
	content, err := h.contracts.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, map[string]string{"content": content})
}

// ContractPDF handles GET /contracts/{id}/pdf
func (h *Handlers) ContractPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.contracts.PDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sendPDF(w, doc.Filename, doc.PDF)
}

// SendContract handles POST /contracts/{id}/send
func (h *Handlers) SendContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Send(r.Context(), chi.URLParam(r, "id"), clientIP(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, c)
}

// SignContract handles POST /contracts/{id}/sign
func (h *Handlers) SignContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Sign(r.Context(), chi.URLParam(r, "id"), clientIP(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, c)
}

// ArchiveContract handles POST /contracts/{id}/archive
func (h *Handlers) ArchiveContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.Archive(r.Context(), chi.URLParam(r, "id"), clientIP(r))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, c)
}

// SignedPDF handles GET /contracts/{id}/signed.pdf
func (h *Handlers) SignedPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.contracts.SignedPDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sendPDF(w, doc.Filename, doc.PDF)
}

// ContractHistory handles GET /contracts/{id}/history
func (h *Handlers) ContractHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.contracts.Get(id); err != nil {
		h.handleError(w, r, err)
		return
	}

	entries, err := h.contracts.History(id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ExportContracts handles GET /contracts/export.xlsx
func (h *Handlers) ExportContracts(w http.ResponseWriter, r *http.Request) {
	filter, ok := contractFilter(r)
	if !ok {
		h.apiError(w, http.StatusBadRequest, "Unknown status", "INVALID_STATUS")
		return
	}

	contracts, _, err := h.contracts.List(filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	rows, err := export.Rows(contracts, h.partners.GetByID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	// build in memory so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := export.WriteRegister(&buf, rows, h.cfg.DateFormat); err != nil {
		h.handleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("contracts-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
