// Package handlers implements the JSON API over contracts, templates,
// partners and settings.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/contracte/internal/archive"
	"github.com/foxzi/contracte/internal/contract"
	"github.com/foxzi/contracte/internal/fields"
	"github.com/foxzi/contracte/internal/ipfilter"
	"github.com/foxzi/contracte/internal/render"
	"github.com/foxzi/contracte/internal/template"
	"github.com/foxzi/contracte/internal/web/repository"
	"github.com/foxzi/contracte/internal/worker"
)

const maxPageSize = 500

// APIErrorResponse represents an API error
type APIErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Config contains handler settings
type Config struct {
	DateFormat string

	// RenderLimit wraps the endpoints that produce PDFs, nil disables it
	RenderLimit func(http.Handler) http.Handler
}

type Handlers struct {
	contracts *contract.Service
	templates *repository.TemplateRepository
	partners  *repository.PartnerRepository
	settings  *repository.SettingsRepository
	archive   *archive.Storage

	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, db *sql.DB, svc *contract.Service, store *archive.Storage, logger *slog.Logger) *Handlers {
	if cfg.DateFormat == "" {
		cfg.DateFormat = contract.DefaultDateFormat
	}
	return &Handlers{
		contracts: svc,
		templates: repository.NewTemplateRepository(db),
		partners:  repository.NewPartnerRepository(db),
		settings:  repository.NewSettingsRepository(db),
		archive:   store,
		cfg:       cfg,
		logger:    logger.With("component", "api"),
	}
}

// Routes registers the API on r
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", h.ListContracts)
		r.Post("/", h.CreateContract)
		r.Post("/reserve", h.ReserveContract)
		r.Get("/export.xlsx", h.ExportContracts)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetContract)
			r.Put("/", h.UpdateContract)
			r.Get("/preview", h.PreviewContract)
			r.With(h.renderLimit).Get("/pdf", h.ContractPDF)
			r.Post("/send", h.SendContract)
			r.With(h.renderLimit).Post("/sign", h.SignContract)
			r.Post("/archive", h.ArchiveContract)
			r.Get("/signed.pdf", h.SignedPDF)
			r.Get("/history", h.ContractHistory)
		})
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", h.ListTemplates)
		r.Post("/", h.CreateTemplate)
		r.Post("/validate", h.ValidateTemplate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTemplate)
			r.Put("/", h.UpdateTemplate)
			r.Delete("/", h.DeleteTemplate)
			r.Get("/versions", h.TemplateVersions)
			r.Get("/tokens", h.TemplateTokens)
			r.Post("/preview", h.PreviewTemplate)
		})
	})

	r.Route("/partners", func(r chi.Router) {
		r.Get("/", h.ListPartners)
		r.Post("/", h.CreatePartner)
		r.Get("/{id}", h.GetPartner)
		r.Put("/{id}", h.UpdatePartner)
	})

	r.Get("/settings/company", h.GetCompany)
	r.Put("/settings/company", h.UpdateCompany)

	r.Get("/archive", h.ListArchive)
}

func (h *Handlers) renderLimit(next http.Handler) http.Handler {
	if h.cfg.RenderLimit == nil {
		return next
	}
	return h.cfg.RenderLimit(next)
}

// Health check
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.apiJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// apiJSON sends a JSON response
func (h *Handlers) apiJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

// apiError sends an error response
func (h *Handlers) apiError(w http.ResponseWriter, status int, message, code string) {
	h.apiJSON(w, status, APIErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps service errors to API responses
func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tmplErr    *template.TemplateError
		missingErr *fields.MissingFieldsError
		layoutErr  *render.LayoutError
	)

	switch {
	case errors.Is(err, contract.ErrNotFound):
		h.apiError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, contract.ErrMissingTemplateContent):
		h.apiError(w, http.StatusUnprocessableEntity, contract.ErrMissingTemplateContent.Error(), "MISSING_TEMPLATE_CONTENT")
	case errors.As(err, &missingErr):
		h.apiJSON(w, http.StatusUnprocessableEntity, APIErrorResponse{
			Error:  missingErr.Error(),
			Code:   "MISSING_FIELDS",
			Fields: missingErr.Fields,
		})
	case errors.As(err, &tmplErr):
		h.apiError(w, http.StatusUnprocessableEntity, tmplErr.Error(), "TEMPLATE_ERROR")
	case errors.Is(err, contract.ErrInvalidTransition):
		h.apiError(w, http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, repository.ErrTemplateInUse):
		h.apiError(w, http.StatusConflict, err.Error(), "TEMPLATE_IN_USE")
	case errors.Is(err, repository.ErrDuplicateName):
		h.apiError(w, http.StatusConflict, err.Error(), "DUPLICATE_NAME")
	case errors.Is(err, contract.ErrInvalidInput):
		h.apiError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("render timed out", "path", r.URL.Path, "contract_id", chi.URLParam(r, "id"))
		h.apiError(w, http.StatusGatewayTimeout, "Render timed out", "RENDER_TIMEOUT")
	case errors.Is(err, context.Canceled), errors.Is(err, worker.ErrStopped):
		h.apiError(w, http.StatusServiceUnavailable, "Service unavailable", "UNAVAILABLE")
	case errors.As(err, &layoutErr):
		h.logger.Error("render failed", "contract_id", layoutErr.ContractID, "op", layoutErr.Op, "error", layoutErr.Err)
		h.apiError(w, http.StatusInternalServerError, "Failed to render document", "RENDER_FAILED")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		h.apiError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}

// decode reads a JSON body, answering 400 itself on failure
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.apiError(w, http.StatusBadRequest, "Invalid request body", "INVALID_JSON")
		return false
	}
	return true
}

// pagination parses limit and offset query parameters
func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > maxPageSize {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func clientIP(r *http.Request) string {
	if addr, ok := ipfilter.ClientAddr(r); ok {
		return addr.String()
	}
	return ""
}

func sendPDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
