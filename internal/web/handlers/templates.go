package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/contracte/internal/template"
	"github.com/foxzi/contracte/internal/web/models"
)

// TemplateRequest is the body of template create and update
type TemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Fields      string `json:"fields"`
	ChangeNote  string `json:"change_note"`
}

// TokenResponse is one entry of GET /templates/{id}/tokens
type TokenResponse struct {
	Token      string `json:"token"`
	Pos        int    `json:"pos"`
	Recognized bool   `json:"recognized"`
}

// validateTemplate checks the request and answers 4xx itself on failure
func (h *Handlers) validateTemplate(w http.ResponseWriter, r *http.Request, req *TemplateRequest) bool {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.apiError(w, http.StatusBadRequest, "Name is required", "MISSING_NAME")
		return false
	}
	if err := h.contracts.ValidateTemplate(req.Content, req.Fields); err != nil {
		h.handleError(w, r, err)
		return false
	}
	return true
}

// loadTemplate answers 404 itself when the template does not exist
func (h *Handlers) loadTemplate(w http.ResponseWriter, r *http.Request) *models.Template {
	t, err := h.templates.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return nil
	}
	if t == nil {
		h.apiError(w, http.StatusNotFound, "Template not found", "NOT_FOUND")
		return nil
	}
	return t
}

// ListTemplates handles GET /templates
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	filter := models.TemplateListFilter{Search: r.URL.Query().Get("search")}
	filter.Limit, filter.Offset = pagination(r)

	templates, total, err := h.templates.List(filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.apiJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// CreateTemplate handles POST /templates
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !h.decode(w, r, &req) || !h.validateTemplate(w, r, &req) {
		return
	}

	t := &models.Template{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		Fields:      req.Fields,
	}
	if err := h.templates.Create(t); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("template created", "template_id", t.ID, "name", t.Name)
	h.apiJSON(w, http.StatusCreated, t)
}

// ValidateTemplate handles POST /templates/validate
func (h *Handlers) ValidateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.contracts.ValidateTemplate(req.Content, req.Fields); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// GetTemplate handles GET /templates/{id}
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t := h.loadTemplate(w, r)
	if t == nil {
		return
	}
	h.apiJSON(w, http.StatusOK, t)
}

// UpdateTemplate handles PUT /templates/{id}
func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	t := h.loadTemplate(w, r)
	if t == nil {
		return
	}

	var req TemplateRequest
	if !h.decode(w, r, &req) || !h.validateTemplate(w, r, &req) {
		return
	}

	t.Name = req.Name
	t.Description = req.Description
	t.Content = req.Content
	t.Fields = req.Fields
	if err := h.templates.Update(t, req.ChangeNote); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("template updated", "template_id", t.ID, "version", t.CurrentVersion)
	h.apiJSON(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /templates/{id}
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	t := h.loadTemplate(w, r)
	if t == nil {
		return
	}

	if err := h.templates.Delete(t.ID); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("template deleted", "template_id", t.ID)
	w.WriteHeader(http.StatusNoContent)
}

// TemplateVersions handles GET /templates/{id}/versions
func (h *Handlers) TemplateVersions(w http.ResponseWriter, r *http.Request) {
	t := h.loadTemplate(w, r)
	if t == nil {
		return
	}

	versions, err := h.templates.GetVersions(t.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// TemplateTokens handles GET /templates/{id}/tokens
func (h *Handlers) TemplateTokens(w http.ResponseWriter, r *http.Request) {
	t := h.loadTemplate(w, r)
	if t == nil {
		return
	}

	tokens := []TokenResponse{}
	for _, info := range template.NewEngine().Inspect(t.Content) {
		tokens = append(tokens, TokenResponse{Token: info.Token, Pos: info.Pos, Recognized: info.Recognized})
	}
	h.apiJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// PreviewTemplate handles POST /templates/{id}/preview. The body is a
// population data bag using the token vocabulary names.
func (h *Handlers) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	t := h.loadTemplate(w, r)
	if t == nil {
		return
	}

	var data template.PopulationData
	if !h.decode(w, r, &data) {
		return
	}

	content, err := h.contracts.PreviewTemplate(t.Content, &data)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.apiJSON(w, http.StatusOK, map[string]string{"content": content})
}
