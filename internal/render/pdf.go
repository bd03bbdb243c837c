package render

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// PrintContext carries per-contract values that end up in PDF metadata
type PrintContext struct {
	ContractID  string
	OrderNumber int
	SignedToken string
}

// Result is a rendered document
type Result struct {
	PDF   []byte
	Pages int
}

// Observer receives render timings. metrics.Metrics satisfies it.
type Observer interface {
	ObserveRender(d time.Duration, pages int, err error)
}

// Renderer converts populated HTML into PDF documents. It keeps no state
// between calls and is safe for concurrent use.
type Renderer struct {
	fonts    FontSet
	logger   *slog.Logger
	observer Observer
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithObserver sets a render observer
func WithObserver(o Observer) Option {
	return func(r *Renderer) {
		r.observer = o
	}
}

// NewRenderer creates a renderer using the given fonts
func NewRenderer(fonts FontSet, opts ...Option) *Renderer {
	r := &Renderer{
		fonts:  fonts,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "render")
	return r
}

// Title returns the document title for an order number
func Title(orderNumber int) string {
	return "Contract nr. " + strconv.Itoa(orderNumber)
}

// Subject returns the document subject, empty for unsigned contracts
func Subject(pc PrintContext) string {
	if pc.SignedToken == "" {
		return ""
	}
	return fmt.Sprintf("CTR_%d_%s", pc.OrderNumber, pc.SignedToken)
}

// RenderPDF lays out populated HTML on A4 pages and returns the document.
// Any failure, including a panic inside the PDF library, is returned as a
// *LayoutError.
func (r *Renderer) RenderPDF(populatedHTML string, pc PrintContext) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = &LayoutError{ContractID: pc.ContractID, Op: "layout", Err: fmt.Errorf("panic: %v", rec)}
		}
		if err != nil {
			r.logger.Error("render failed", "contract_id", pc.ContractID, "error", err)
		} else {
			r.logger.Debug("rendered contract", "contract_id", pc.ContractID, "pages", res.Pages, "bytes", len(res.PDF))
		}
		if r.observer != nil {
			pages := 0
			if res != nil {
				pages = res.Pages
			}
			r.observer.ObserveRender(time.Since(start), pages, err)
		}
	}()

	surface, err := newFPDFSurface(r.fonts)
	if err != nil {
		return nil, &LayoutError{ContractID: pc.ContractID, Op: "fonts", Err: err}
	}
	surface.setMetadata(Title(pc.OrderNumber), Subject(pc))

	text := RepairEncoding(Normalize(populatedHTML))
	layoutDocument(surface, text)

	data, pages, err := surface.output()
	if err != nil {
		return nil, &LayoutError{ContractID: pc.ContractID, Op: "write", Err: err}
	}
	if len(data) == 0 {
		return nil, &LayoutError{ContractID: pc.ContractID, Op: "write", Err: errors.New("empty document")}
	}
	return &Result{PDF: data, Pages: pages}, nil
}
