package handlers

import (
	"net/http"

	"github.com/foxzi/contracte/internal/archive"
	"github.com/foxzi/contracte/internal/web/models"
)

// GetCompany handles GET /settings/company
func (h *Handlers) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.settings.GetCompany()
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if c == nil {
		c = &models.CompanySettings{}
	}
	h.apiJSON(w, http.StatusOK, c)
}

// UpdateCompany handles PUT /settings/company
func (h *Handlers) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var c models.CompanySettings
	if !h.decode(w, r, &c) {
		return
	}

	if err := h.settings.SetCompany(&c); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.settings.AddAuditLog(&models.AuditLogEntry{
		Action:     "settings.company",
		EntityType: "settings",
		EntityID:   "company",
		IPAddress:  clientIP(r),
	}); err != nil {
		h.logger.Warn("failed to write audit log", "error", err)
	}

	h.apiJSON(w, http.StatusOK, c)
}

// ListArchive handles GET /archive
func (h *Handlers) ListArchive(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	docs, err := h.archive.List(r.Context(), archive.ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*archive.Document{}
	}
	stats, err := h.archive.Stats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.apiJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     stats.Documents,
		"bytes":     stats.Bytes,
	})
}
