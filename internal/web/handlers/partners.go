package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/contracte/internal/web/models"
)

// PartnerRequest is the body of partner create and update
type PartnerRequest struct {
	Name                       string `json:"name"`
	Email                      string `json:"email"`
	Phone                      string `json:"phone"`
	Address                    string `json:"address"`
	CNP                        string `json:"cnp"`
	IsCompany                  bool   `json:"is_company"`
	CompanyName                string `json:"company_name"`
	CompanyAddress             string `json:"company_address"`
	CompanyCUI                 string `json:"company_cui"`
	CompanyRegistrationNumber  string `json:"company_registration_number"`
	CompanyLegalRepresentative string `json:"company_legal_representative"`
}

func (req *PartnerRequest) apply(p *models.Partner) {
	p.Name = strings.TrimSpace(req.Name)
	p.Email = strings.TrimSpace(req.Email)
	p.Phone = req.Phone
	p.Address = req.Address
	p.CNP = req.CNP
	p.IsCompany = req.IsCompany
	p.CompanyName = req.CompanyName
	p.CompanyAddress = req.CompanyAddress
	p.CompanyCUI = req.CompanyCUI
	p.CompanyRegistrationNumber = req.CompanyRegistrationNumber
	p.CompanyLegalRepresentative = req.CompanyLegalRepresentative
}

func (h *Handlers) validatePartner(w http.ResponseWriter, p *models.Partner) bool {
	if p.Name == "" {
		h.apiError(w, http.StatusBadRequest, "Name is required", "MISSING_NAME")
		return false
	}
	if p.IsCompany && strings.TrimSpace(p.CompanyName) == "" {
		h.apiError(w, http.StatusBadRequest, "Company name is required for companies", "MISSING_COMPANY_NAME")
		return false
	}
	return true
}

// ListPartners handles GET /partners
func (h *Handlers) ListPartners(w http.ResponseWriter, r *http.Request) {
	filter := models.PartnerListFilter{Search: r.URL.Query().Get("search")}
	filter.Limit, filter.Offset = pagination(r)

	partners, total, err := h.partners.List(filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.apiJSON(w, http.StatusOK, map[string]any{
		"partners": partners,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// CreatePartner handles POST /partners
func (h *Handlers) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req PartnerRequest
	if !h.decode(w, r, &req) {
		return
	}

	p := &models.Partner{}
	req.apply(p)
	if !h.validatePartner(w, p) {
		return
	}
	if err := h.partners.Create(p); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusCreated, p)
}

// GetPartner handles GET /partners/{id}
func (h *Handlers) GetPartner(w http.ResponseWriter, r *http.Request) {
	p, err := h.partners.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if p == nil {
		h.apiError(w, http.StatusNotFound, "Partner not found", "NOT_FOUND")
		return
	}
	h.apiJSON(w, http.StatusOK, p)
}

// UpdatePartner handles PUT /partners/{id}
func (h *Handlers) UpdatePartner(w http.ResponseWriter, r *http.Request) {
	p, err := h.partners.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if p == nil {
		h.apiError(w, http.StatusNotFound, "Partner not found", "NOT_FOUND")
		return
	}

	var req PartnerRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.apply(p)
	if !h.validatePartner(w, p) {
		return
	}
	if err := h.partners.Update(p); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, p)
}
