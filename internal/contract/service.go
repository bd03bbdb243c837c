// Package contract assembles contract data, merges it into templates and
// drives the contract lifecycle: draft, sent, signed, archived.
package contract

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxzi/contracte/internal/archive"
	"github.com/foxzi/contracte/internal/fields"
	"github.com/foxzi/contracte/internal/render"
	"github.com/foxzi/contracte/internal/template"
	"github.com/foxzi/contracte/internal/web/models"
	"github.com/foxzi/contracte/internal/web/repository"
	"github.com/foxzi/contracte/internal/worker"
)

const signingKeySetting = "signing.key"

// TransitionObserver is notified when a contract reaches a status.
// metrics.Collector satisfies it.
type TransitionObserver interface {
	TrackTransition(status string)
}

// Config contains service settings
type Config struct {
	RenderTimeout time.Duration
	DateFormat    string
	Observer      TransitionObserver
}

// Input holds the editable contract fields
type Input struct {
	TemplateID string     `json:"template_id"`
	PartnerID  string     `json:"partner_id"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Value      float64    `json:"value"`
	Currency   string     `json:"currency"`
	Notes      string     `json:"notes"`
}

// Document is a rendered contract ready for download
type Document struct {
	Filename string
	PDF      []byte
	Pages    int
}

// Service implements contract operations on top of the repositories
type Service struct {
	contracts *repository.ContractRepository
	templates *repository.TemplateRepository
	partners  *repository.PartnerRepository
	settings  *repository.SettingsRepository

	engine   *template.Engine
	renderer *render.Renderer
	pool     *worker.Pool
	archive  *archive.Storage

	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	keyMu sync.Mutex
}

// NewService creates a contract service. The pool must be started by the caller.
func NewService(db *sql.DB, renderer *render.Renderer, pool *worker.Pool, store *archive.Storage, cfg Config, logger *slog.Logger) *Service {
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultDateFormat
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		contracts: repository.NewContractRepository(db),
		templates: repository.NewTemplateRepository(db),
		partners:  repository.NewPartnerRepository(db),
		settings:  repository.NewSettingsRepository(db),
		engine:    template.NewEngine(),
		renderer:  renderer,
		pool:      pool,
		archive:   store,
		cfg:       cfg,
		logger:    logger.With("component", "contract"),
		now:       time.Now,
	}
}

// Reserve allocates the next order number
func (s *Service) Reserve() (*models.Contract, error) {
	c, err := s.contracts.Reserve()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve order number: %w", err)
	}
	s.logger.Info("order number reserved", "contract_id", c.ID, "order_number", c.OrderNumber)
	return c, nil
}

// Create creates a draft contract with the next order number
func (s *Service) Create(in Input) (*models.Contract, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	c := &models.Contract{Status: models.ContractDraft}
	in.apply(c)
	if err := s.contracts.Create(c); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	s.track(c.Status)

	s.logger.Info("contract created", "contract_id", c.ID, "order_number", c.OrderNumber)
	return c, nil
}

// Update replaces the editable fields of a reserved or draft contract.
// A reserved contract becomes a draft.
func (s *Service) Update(id string, in Input) (*models.Contract, error) {
	c, err := s.contracts.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.Status != models.ContractReserved && c.Status != models.ContractDraft {
		return nil, fmt.Errorf("%w: cannot edit a %s contract", ErrInvalidTransition, c.Status)
	}
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	reserved := c.Status == models.ContractReserved
	in.apply(c)
	c.Status = models.ContractDraft
	if err := s.contracts.Update(c); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}
	if reserved {
		s.track(models.ContractDraft)
	}
	return c, nil
}

func (in Input) apply(c *models.Contract) {
	c.TemplateID = in.TemplateID
	c.PartnerID = in.PartnerID
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.Value = in.Value
	c.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if c.Currency == "" {
		c.Currency = "RON"
	}
	c.Notes = in.Notes
}

func (s *Service) checkInput(in Input) error {
	if in.Value < 0 {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}

	if in.TemplateID != "" {
		t, err := s.templates.GetByID(in.TemplateID)
		if err != nil {
			return fmt.Errorf("failed to get template: %w", err)
		}
		if t == nil {
			return fmt.Errorf("%w: template %s does not exist", ErrInvalidInput, in.TemplateID)
		}
	}
	if in.PartnerID != "" {
		p, err := s.partners.GetByID(in.PartnerID)
		if err != nil {
			return fmt.Errorf("failed to get partner: %w", err)
		}
		if p == nil {
			return fmt.Errorf("%w: partner %s does not exist", ErrInvalidInput, in.PartnerID)
		}
	}
	return nil
}

// Get returns a contract with its template and partner
func (s *Service) Get(id string) (*models.ContractWithRelations, error) {
	c, err := s.contracts.GetWithRelations(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns contracts matching filter and the total count
func (s *Service) List(filter models.ContractListFilter) ([]models.Contract, int, error) {
	return s.contracts.List(filter)
}

// PopulationData returns the data bag a contract is rendered with
func (s *Service) PopulationData(c *models.ContractWithRelations) (*template.PopulationData, error) {
	company, err := s.settings.GetCompany()
	if err != nil {
		return nil, fmt.Errorf("failed to get company settings: %w", err)
	}
	return BuildPopulationData(c, company, s.now(), s.cfg.DateFormat), nil
}

func (s *Service) populate(c *models.ContractWithRelations) (string, *template.PopulationData, error) {
	if c.Template == nil || strings.TrimSpace(c.Template.Content) == "" {
		return "", nil, ErrMissingTemplateContent
	}

	data, err := s.PopulationData(c)
	if err != nil {
		return "", nil, err
	}

	content, err := s.engine.Populate(c.Template.Content, data)
	if err != nil {
		return "", nil, err
	}
	return content, data, nil
}

// Preview returns the populated HTML of a contract
func (s *Service) Preview(ctx context.Context, id string) (string, error) {
	c, err := s.Get(id)
	if err != nil {
		return "", err
	}
	content, _, err := s.populate(c)
	if err != nil {
		return "", err
	}
	return render.RenderPreviewHTML(content), nil
}

// PDF renders a contract to PDF
func (s *Service) PDF(ctx context.Context, id string) (*Document, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	content, _, err := s.populate(c)
	if err != nil {
		return nil, err
	}

	pc := render.PrintContext{ContractID: c.ID, OrderNumber: c.OrderNumber}
	if c.Status == models.ContractSigned {
		pc.SignedToken = c.SignedToken
	}

	res, err := s.renderPDF(ctx, content, pc)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename: Filename(c.Status, c.OrderNumber, c.SignedToken),
		PDF:      res.PDF,
		Pages:    res.Pages,
	}, nil
}

// renderPDF runs the renderer on the worker pool within the render timeout
func (s *Service) renderPDF(ctx context.Context, content string, pc render.PrintContext) (*render.Result, error) {
	if s.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RenderTimeout)
		defer cancel()
	}

	var res *render.Result
	err := s.pool.Do(ctx, func() error {
		r, err := s.renderer.RenderPDF(content, pc)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Send moves a draft to sent after checking the template's required fields
func (s *Service) Send(ctx context.Context, id, ip string) (*models.Contract, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ContractDraft {
		return nil, fmt.Errorf("%w: cannot send a %s contract", ErrInvalidTransition, c.Status)
	}

	_, data, err := s.populate(c)
	if err != nil {
		return nil, err
	}
	rules, err := fields.ParseRules(c.Template.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to load template fields: %w", err)
	}
	if err := rules.Check(data); err != nil {
		return nil, err
	}

	if err := s.transition(id, models.ContractDraft, models.ContractSent); err != nil {
		return nil, err
	}
	s.audit("contract.send", id, ip, nil)
	s.logger.Info("contract sent", "contract_id", id, "order_number", c.OrderNumber)

	return s.reload(id)
}

// Sign moves a sent contract to signed. The signed PDF is rendered with the
// signature token and stored in the archive.
func (s *Service) Sign(ctx context.Context, id, ip string) (*models.Contract, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ContractSent {
		return nil, fmt.Errorf("%w: cannot sign a %s contract", ErrInvalidTransition, c.Status)
	}

	content, _, err := s.populate(c)
	if err != nil {
		return nil, err
	}

	key, err := s.signingKey()
	if err != nil {
		return nil, err
	}
	at := s.now()
	token, err := SignToken(key, c.ID, c.OrderNumber, at)
	if err != nil {
		return nil, err
	}

	res, err := s.renderPDF(ctx, content, render.PrintContext{
		ContractID:  c.ID,
		OrderNumber: c.OrderNumber,
		SignedToken: token,
	})
	if err != nil {
		return nil, err
	}

	doc := &archive.Document{
		ContractID:  c.ID,
		OrderNumber: c.OrderNumber,
		Filename:    Filename(models.ContractSigned, c.OrderNumber, token),
		SignedToken: token,
		Pages:       res.Pages,
	}
	if err := s.archive.Put(ctx, doc, res.PDF); err != nil {
		return nil, fmt.Errorf("failed to archive signed document: %w", err)
	}

	if err := s.contracts.MarkSigned(id, token, at); err != nil {
		if delErr := s.archive.Delete(ctx, id); delErr != nil {
			s.logger.Error("failed to remove archived document", "contract_id", id, "error", delErr)
		}
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: contract changed while signing", ErrInvalidTransition)
		}
		return nil, err
	}

	s.track(models.ContractSigned)
	s.audit("contract.sign", id, ip, map[string]any{"token": token, "checksum": doc.Checksum})
	s.logger.Info("contract signed", "contract_id", id, "order_number", c.OrderNumber, "pages", res.Pages)

	return s.reload(id)
}

// Archive moves a signed contract to archived
func (s *Service) Archive(ctx context.Context, id, ip string) (*models.Contract, error) {
	c, err := s.contracts.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.Status != models.ContractSigned {
		return nil, fmt.Errorf("%w: cannot archive a %s contract", ErrInvalidTransition, c.Status)
	}

	if err := s.transition(id, models.ContractSigned, models.ContractArchived); err != nil {
		return nil, err
	}
	s.audit("contract.archive", id, ip, nil)

	return s.reload(id)
}

// SignedPDF returns the archived signed document of a contract
func (s *Service) SignedPDF(ctx context.Context, id string) (*Document, error) {
	doc, pdf, err := s.archive.Get(ctx, id)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, fmt.Errorf("%w: no signed document", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return &Document{Filename: doc.Filename, PDF: pdf, Pages: doc.Pages}, nil
}

// History returns the audit trail of a contract
func (s *Service) History(id string) ([]models.AuditLogEntry, error) {
	return s.settings.ListAuditLog("contract", id)
}

// PreviewTemplate populates template content with a caller-supplied data bag
func (s *Service) PreviewTemplate(content string, data *template.PopulationData) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrMissingTemplateContent
	}
	out, err := s.engine.Populate(content, data)
	if err != nil {
		return "", err
	}
	return render.RenderPreviewHTML(out), nil
}

// ValidateTemplate checks template structure and its field descriptors
func (s *Service) ValidateTemplate(content, fieldsJSON string) error {
	if err := s.engine.Validate(content); err != nil {
		return err
	}
	if _, err := fields.ParseRules(fieldsJSON); err != nil {
		return fmt.Errorf("%w: fields: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) transition(id, from, to string) error {
	err := s.contracts.TransitionStatus(id, from, to)
	if errors.Is(err, repository.ErrStatusConflict) {
		return fmt.Errorf("%w: contract is no longer %s", ErrInvalidTransition, from)
	}
	if err != nil {
		return err
	}
	s.track(to)
	return nil
}

func (s *Service) track(status string) {
	if s.cfg.Observer != nil {
		s.cfg.Observer.TrackTransition(status)
	}
}

func (s *Service) reload(id string) (*models.Contract, error) {
	c, err := s.contracts.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// signingKey returns the token key, creating it on first use
func (s *Service) signingKey() ([]byte, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	value, err := s.settings.GetSetting(signingKeySetting)
	if err != nil {
		return nil, fmt.Errorf("failed to get signing key: %w", err)
	}
	if value != "" {
		return hex.DecodeString(value)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	if err := s.settings.SetSetting(signingKeySetting, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to save signing key: %w", err)
	}
	s.logger.Info("generated contract signing key")
	return key, nil
}

func (s *Service) audit(action, id, ip string, details map[string]any) {
	entry := &models.AuditLogEntry{
		Action:     action,
		EntityType: "contract",
		EntityID:   id,
		IPAddress:  ip,
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = string(b)
		}
	}
	if err := s.settings.AddAuditLog(entry); err != nil {
		s.logger.Error("failed to write audit log", "action", action, "contract_id", id, "error", err)
	}
}
