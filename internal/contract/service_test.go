package contract

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/contracte/internal/archive"
	"github.com/foxzi/contracte/internal/fields"
	"github.com/foxzi/contracte/internal/render"
	"github.com/foxzi/contracte/internal/template"
	"github.com/foxzi/contracte/internal/web/db"
	"github.com/foxzi/contracte/internal/web/models"
	"github.com/foxzi/contracte/internal/web/repository"
	"github.com/foxzi/contracte/internal/worker"
)

const companyTemplate = `<p style="text-align:center"><strong>CONTRACT nr. {{orderNumber}}</strong></p>` +
	`<p>{{#if isCompany}}Company: {{beneficiary.companyName}}{{/if}}{{#if isIndividual}}Person: {{beneficiary.name}}{{/if}}</p>` +
	`<p>Furnizor: {{provider.name}}, valoare {{contract.value}} {{contract.currency}}</p>`

type testEnv struct {
	svc       *Service
	conn      *sql.DB
	templates int
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(conn))

	store, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pool := worker.New(worker.Config{Workers: 2}, nil)
	pool.Start()
	t.Cleanup(pool.Stop)

	svc := NewService(conn, render.NewRenderer(render.DefaultFontSet()), pool, store, Config{RenderTimeout: 30 * time.Second}, nil)
	svc.now = func() time.Time { return time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC) }

	return &testEnv{svc: svc, conn: conn}
}

func (e *testEnv) template(t *testing.T, content, fieldsJSON string) *models.Template {
	t.Helper()
	e.templates++
	tmpl := &models.Template{Name: fmt.Sprintf("template-%d", e.templates), Content: content, Fields: fieldsJSON}
	require.NoError(t, repository.NewTemplateRepository(e.conn).Create(tmpl))
	return tmpl
}

func (e *testEnv) partner(t *testing.T, p *models.Partner) *models.Partner {
	t.Helper()
	require.NoError(t, repository.NewPartnerRepository(e.conn).Create(p))
	return p
}

func (e *testEnv) company(t *testing.T) {
	t.Helper()
	require.NoError(t, repository.NewSettingsRepository(e.conn).SetCompany(&models.CompanySettings{Name: "Furnizor SA", CUI: "RO999"}))
}

func TestService_PreviewCompany(t *testing.T) {
	e := setupService(t)
	e.company(t)
	tmpl := e.template(t, companyTemplate, "")
	p := e.partner(t, &models.Partner{Name: "Ion", IsCompany: true, CompanyName: "Acme SRL"})

	c, err := e.svc.Create(Input{TemplateID: tmpl.ID, PartnerID: p.ID, Value: 1200})
	require.NoError(t, err)

	out, err := e.svc.Preview(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Contains(t, out, "Company: Acme SRL")
	assert.NotContains(t, out, "Person:")
	assert.Contains(t, out, "Furnizor SA")
	assert.Contains(t, out, "1200 RON")
	assert.Contains(t, out, "CONTRACT nr. 1")
}

func TestService_PreviewMissingRelations(t *testing.T) {
	e := setupService(t)
	tmpl := e.template(t, "<p>{{beneficiary.name}} / {{provider.name}}</p>", "")

	c, err := e.svc.Create(Input{TemplateID: tmpl.ID})
	require.NoError(t, err)

	out, err := e.svc.Preview(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>{{beneficiary.name}} / {{provider.name}}</p>", out)
}

func TestService_MissingTemplateContent(t *testing.T) {
	e := setupService(t)

	c, err := e.svc.Create(Input{})
	require.NoError(t, err)

	_, err = e.svc.Preview(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrMissingTemplateContent)

	_, err = e.svc.PDF(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrMissingTemplateContent)

	_, err = e.svc.PreviewTemplate("  ", nil)
	assert.ErrorIs(t, err, ErrMissingTemplateContent)
}

func TestService_NotFound(t *testing.T) {
	e := setupService(t)
	ctx := context.Background()

	_, err := e.svc.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.PDF(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.Archive(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.SignedPDF(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.Update("missing", Input{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateValidation(t *testing.T) {
	e := setupService(t)
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	tests := []struct {
		name string
		in   Input
	}{
		{"negative value", Input{Value: -1}},
		{"end before start", Input{StartDate: &start, EndDate: &end}},
		{"unknown template", Input{TemplateID: "nope"}},
		{"unknown partner", Input{PartnerID: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestService_ReserveThenUpdate(t *testing.T) {
	e := setupService(t)
	tmpl := e.template(t, "<p>{{orderNumber}}</p>", "")

	first, err := e.svc.Reserve()
	require.NoError(t, err)
	assert.Equal(t, models.ContractReserved, first.Status)

	second, err := e.svc.Create(Input{})
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber+1, second.OrderNumber)

	updated, err := e.svc.Update(first.ID, Input{TemplateID: tmpl.ID, Value: 10, Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, models.ContractDraft, updated.Status)
	assert.Equal(t, "EUR", updated.Currency)
	assert.Equal(t, first.OrderNumber, updated.OrderNumber)
}

func TestService_PDF(t *testing.T) {
	e := setupService(t)
	tmpl := e.template(t, companyTemplate, "")

	c, err := e.svc.Create(Input{TemplateID: tmpl.ID})
	require.NoError(t, err)

	doc, err := e.svc.PDF(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "contract-1.pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.PDF, []byte("%PDF-")))
	assert.Equal(t, 1, doc.Pages)
}

func TestService_SendChecksRequiredFields(t *testing.T) {
	e := setupService(t)
	tmpl := e.template(t, companyTemplate, `[
		{"name": "beneficiary.name", "required": true},
		{"name": "beneficiary.companyCui", "required_when": "isCompany"}
	]`)
	p := e.partner(t, &models.Partner{Name: "Ion", IsCompany: true, CompanyName: "Acme SRL"})

	c, err := e.svc.Create(Input{TemplateID: tmpl.ID, PartnerID: p.ID})
	require.NoError(t, err)

	_, err = e.svc.Send(context.Background(), c.ID, "")
	var missing *fields.MissingFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"beneficiary.companyCui"}, missing.Fields)

	got, err := e.svc.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractDraft, got.Status)
}

func TestService_SendRejectsNestedBlocks(t *testing.T) {
	e := setupService(t)
	tmpl := e.template(t, "{{#if isCompany}}a{{#if isCompany}}b{{/if}}{{/if}}", "")

	c, err := e.svc.Create(Input{TemplateID: tmpl.ID})
	require.NoError(t, err)

	_, err = e.svc.Send(context.Background(), c.ID, "")
	assert.ErrorIs(t, err, template.ErrNestedBlock)
}

func TestService_Lifecycle(t *testing.T) {
	e := setupService(t)
	ctx := context.Background()
	e.company(t)
	tmpl := e.template(t, companyTemplate, `[{"name": "beneficiary.name", "required": true}]`)
	p := e.partner(t, &models.Partner{Name: "Ion Popescu"})

	c, err := e.svc.Create(Input{TemplateID: tmpl.ID, PartnerID: p.ID, Value: 99})
	require.NoError(t, err)

	_, err = e.svc.Sign(ctx, c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	sent, err := e.svc.Send(ctx, c.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractSent, sent.Status)

	_, err = e.svc.Update(c.ID, Input{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	signed, err := e.svc.Sign(ctx, c.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractSigned, signed.Status)
	assert.Len(t, signed.SignedToken, 16)
	require.NotNil(t, signed.SignedAt)

	_, err = e.svc.Sign(ctx, c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	doc, err := e.svc.SignedPDF(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "CTR_1_"+signed.SignedToken+".pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.PDF, []byte("%PDF-")))

	current, err := e.svc.PDF(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Filename, current.Filename)

	archived, err := e.svc.Archive(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ContractArchived, archived.Status)

	_, err = e.svc.Archive(ctx, c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	history, err := e.svc.History(c.ID)
	require.NoError(t, err)
	var actions []string
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []string{"contract.send", "contract.sign", "contract.archive"}, actions)
	assert.Equal(t, "10.0.0.1", history[0].IPAddress)
	assert.True(t, strings.Contains(history[1].Details, signed.SignedToken))
}

func TestService_SigningKeyStable(t *testing.T) {
	e := setupService(t)

	a, err := e.svc.signingKey()
	require.NoError(t, err)
	assert.Len(t, a, 32)

	b, err := e.svc.signingKey()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestService_ValidateTemplate(t *testing.T) {
	e := setupService(t)

	assert.NoError(t, e.svc.ValidateTemplate(companyTemplate, `[{"name":"beneficiary.name","required":true}]`))
	assert.ErrorIs(t, e.svc.ValidateTemplate("{{#unless isCompany}}{{#unless isCompany}}{{/unless}}{{/unless}}", ""), template.ErrNestedBlock)
	assert.Error(t, e.svc.ValidateTemplate("<p></p>", `[{"name":"beneficiary.shoeSize"}]`))
	assert.ErrorIs(t, e.svc.ValidateTemplate("<p></p>", `not json`), ErrInvalidInput)
}

func TestService_PreviewTemplate(t *testing.T) {
	e := setupService(t)

	out, err := e.svc.PreviewTemplate(`<p onclick="x()">{{beneficiary.name}} {{orderNumber}}</p>`, &template.PopulationData{
		OrderNumber: 3,
		Beneficiary: &template.Beneficiary{Name: "Ana"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Ana 3</p>", out)
}

type recordingObserver struct {
	statuses []string
}

func (o *recordingObserver) TrackTransition(status string) {
	o.statuses = append(o.statuses, status)
}

func TestService_TransitionObserver(t *testing.T) {
	e := setupService(t)
	obs := &recordingObserver{}
	e.svc.cfg.Observer = obs
	ctx := context.Background()

	tmpl := e.template(t, "<p>{{orderNumber}}</p>", "")
	reserved, err := e.svc.Reserve()
	require.NoError(t, err)

	_, err = e.svc.Update(reserved.ID, Input{TemplateID: tmpl.ID})
	require.NoError(t, err)
	_, err = e.svc.Send(ctx, reserved.ID, "")
	require.NoError(t, err)
	_, err = e.svc.Sign(ctx, reserved.ID, "")
	require.NoError(t, err)

	assert.Equal(t, []string{models.ContractDraft, models.ContractSent, models.ContractSigned}, obs.statuses)
}
