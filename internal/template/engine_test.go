package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullData(isCompany bool) *PopulationData {
	return &PopulationData{
		OrderNumber: 42,
		CurrentDate: "01.03.2024",
		Beneficiary: &Beneficiary{
			Name:                       "Ion Popescu",
			Email:                      "ion@example.ro",
			Phone:                      "0722000000",
			Address:                    "Str. Lalelelor 1",
			CNP:                        "1800101000000",
			CompanyName:                "Acme SRL",
			CompanyAddress:             "Bd. Unirii 10",
			CompanyCUI:                 "RO123",
			CompanyRegistrationNumber:  "J40/1/2020",
			CompanyLegalRepresentative: "Maria Ionescu",
			IsCompany:                  isCompany,
		},
		Contract: &ContractTerms{
			StartDate: "01.03.2024",
			EndDate:   "28.02.2025",
			Value:     "1500",
			Currency:  "RON",
			Notes:     "plata lunară",
		},
		Provider: &Provider{
			Name:                "Furnizor SA",
			Address:             "Str. Mare 2",
			Phone:               "0211111111",
			Email:               "office@furnizor.ro",
			CUI:                 "RO999",
			RegistrationNumber:  "J12/3/2001",
			LegalRepresentative: "Andrei Stan",
		},
	}
}

func TestEngine_Populate(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name    string
		content string
		data    *PopulationData
		want    string
	}{
		{
			name:    "order number",
			content: "Nr. {{orderNumber}}",
			data:    &PopulationData{OrderNumber: 42},
			want:    "Nr. 42",
		},
		{
			name:    "all occurrences replaced",
			content: "{{provider.name}} / {{provider.name}}",
			data:    fullData(false),
			want:    "Furnizor SA / Furnizor SA",
		},
		{
			name:    "unknown token passes through",
			content: "a {{totally.unknown}} b",
			data:    fullData(false),
			want:    "a {{totally.unknown}} b",
		},
		{
			name:    "absent beneficiary keeps tokens",
			content: "Beneficiar: {{beneficiary.name}}, {{provider.name}}",
			data:    &PopulationData{OrderNumber: 1, Provider: &Provider{Name: "Furnizor SA"}},
			want:    "Beneficiar: {{beneficiary.name}}, Furnizor SA",
		},
		{
			name:    "absent contract keeps tokens",
			content: "Valoare: {{contract.value}} {{contract.currency}}, beneficiar {{beneficiary.name}}",
			data: func() *PopulationData {
				d := fullData(false)
				d.Contract = nil
				return d
			}(),
			want: "Valoare: {{contract.value}} {{contract.currency}}, beneficiar Ion Popescu",
		},
		{
			name:    "absent provider keeps tokens",
			content: "Furnizor: {{provider.name}}, CUI {{provider.cui}}, nr. {{orderNumber}}",
			data: func() *PopulationData {
				d := fullData(true)
				d.Provider = nil
				return d
			}(),
			want: "Furnizor: {{provider.name}}, CUI {{provider.cui}}, nr. 42",
		},
		{
			name:    "absent beneficiary counts as individual",
			content: "{{#if isCompany}}C{{/if}}{{#if isIndividual}}I{{/if}}",
			data:    &PopulationData{},
			want:    "I",
		},
		{
			name:    "unsupported condition is literal",
			content: "{{#if other}}x{{/if}}",
			data:    fullData(true),
			want:    "{{#if other}}x{{/if}}",
		},
		{
			name:    "orphan closer is literal",
			content: "text {{/unless}} more",
			data:    fullData(true),
			want:    "text {{/unless}} more",
		},
		{
			name:    "unterminated opener is literal",
			content: "{{#if isCompany}} {{beneficiary.companyName}}",
			data:    fullData(true),
			want:    "{{#if isCompany}} Acme SRL",
		},
		{
			name:    "whitespace inside token is not recognized",
			content: "{{ beneficiary.name }}",
			data:    fullData(false),
			want:    "{{ beneficiary.name }}",
		},
		{
			name:    "block spans lines",
			content: "<p>A</p>\n{{#unless isCompany}}\n<p>CNP {{beneficiary.cnp}}</p>\n{{/unless}}\n<p>B</p>",
			data:    fullData(false),
			want:    "<p>A</p>\n\n<p>CNP 1800101000000</p>\n\n<p>B</p>",
		},
		{
			name:    "other family nested",
			content: "{{#if isCompany}}[{{#unless isIndividual}}co{{/unless}}]{{/if}}",
			data:    fullData(true),
			want:    "[co]",
		},
		{
			name:    "nil data keeps everything literal",
			content: "{{orderNumber}} {{beneficiary.name}}",
			data:    nil,
			want:    "{{orderNumber}} {{beneficiary.name}}",
		},
		{
			name:    "diacritics untouched",
			content: "Școala {{beneficiary.name}} în țară",
			data:    &PopulationData{Beneficiary: &Beneficiary{Name: "Ștefan Țăran"}},
			want:    "Școala Ștefan Țăran în țară",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Populate(tt.content, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_Populate_SinglePass(t *testing.T) {
	data := fullData(false)
	data.Beneficiary.Name = "{{beneficiary.email}}"
	data.Contract.Notes = "{{#if isCompany}}x{{/if}}"

	got, err := Populate("{{beneficiary.name}} | {{contract.notes}}", data)
	require.NoError(t, err)
	assert.Equal(t, "{{beneficiary.email}} | {{#if isCompany}}x{{/if}}", got)
}

func TestEngine_Populate_Exclusivity(t *testing.T) {
	const content = "{{#if isCompany}}A{{/if}}{{#if isIndividual}}B{{/if}}" +
		"{{#unless isCompany}}C{{/unless}}{{#unless isIndividual}}D{{/unless}}"

	for _, isCompany := range []bool{true, false} {
		got, err := Populate(content, fullData(isCompany))
		require.NoError(t, err)

		if isCompany {
			assert.Equal(t, "AD", got)
		} else {
			assert.Equal(t, "BC", got)
		}
		assert.NotContains(t, got, "{{")
	}
}

func TestEngine_Populate_Coverage(t *testing.T) {
	data := fullData(true)

	for _, name := range Vocabulary {
		t.Run(name, func(t *testing.T) {
			token := "{{" + name + "}}"
			got, err := Populate("x"+token+"y", data)
			require.NoError(t, err)

			want, ok := data.Lookup(name)
			require.True(t, ok)
			assert.Equal(t, "x"+want+"y", got)
			assert.NotContains(t, got, token)
		})
	}
}

func TestEngine_Populate_EmptyFieldsNeverLeakNil(t *testing.T) {
	data := &PopulationData{
		Beneficiary: &Beneficiary{},
		Contract:    &ContractTerms{},
		Provider:    &Provider{},
	}

	var b strings.Builder
	for _, name := range Vocabulary {
		b.WriteString("{{" + name + "}}|")
	}

	got, err := Populate(b.String(), data)
	require.NoError(t, err)
	assert.NotContains(t, got, "nil")
	assert.NotContains(t, got, "null")
	assert.NotContains(t, got, "{{")
}

func TestEngine_Populate_CompanyScenario(t *testing.T) {
	content := `<p><strong>CONTRACT nr. {{orderNumber}}</strong></p>
{{#if isCompany}}<p>{{beneficiary.companyName}}, CUI {{beneficiary.companyCui}}, reprezentată de {{beneficiary.companyLegalRepresentative}}</p>{{/if}}
{{#if isIndividual}}<p>{{beneficiary.name}}, CNP {{beneficiary.cnp}}</p>{{/if}}`

	got, err := Populate(content, fullData(true))
	require.NoError(t, err)

	assert.Contains(t, got, "CONTRACT nr. 42")
	assert.Contains(t, got, "Acme SRL, CUI RO123, reprezentată de Maria Ionescu")
	assert.NotContains(t, got, "CNP")
	assert.NotContains(t, got, "{{")
}

func TestEngine_Populate_NestedBlock(t *testing.T) {
	content := "{{#if isCompany}}a{{#if isIndividual}}b{{/if}}c{{/if}}"

	_, err := Populate(content, fullData(true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNestedBlock))

	var tErr *TemplateError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, strings.Index(content, "{{#if isIndividual}}"), tErr.Pos)
	assert.Equal(t, "{{#if isIndividual}}", tErr.Token)
}

func TestEngine_Validate(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty", content: "", wantErr: false},
		{name: "plain html", content: "<p>Hello</p>", wantErr: false},
		{name: "blocks", content: "{{#if isCompany}}a{{/if}}{{#unless isCompany}}b{{/unless}}", wantErr: false},
		{name: "cross family nesting", content: "{{#unless isCompany}}{{#if isIndividual}}x{{/if}}{{/unless}}", wantErr: false},
		{name: "nested unless", content: "{{#unless isCompany}}{{#unless isIndividual}}{{/unless}}{{/unless}}", wantErr: true},
		{name: "broken braces", content: "{{beneficiary.name", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Validate(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngine_Inspect(t *testing.T) {
	engine := NewEngine()
	content := "{{orderNumber}} {{foo.bar}} {{#if isCompany}}x{{/if}} {{#if other}}"

	infos := engine.Inspect(content)
	require.Len(t, infos, 5)

	assert.Equal(t, TokenInfo{Token: "{{orderNumber}}", Pos: 0, Recognized: true}, infos[0])
	assert.False(t, infos[1].Recognized)
	assert.True(t, infos[2].Recognized)
	assert.True(t, infos[3].Recognized)
	assert.Equal(t, "{{#if other}}", infos[4].Token)
	assert.False(t, infos[4].Recognized)

	assert.Equal(t, []string{"{{orderNumber}}", "{{foo.bar}}", "{{#if isCompany}}", "{{/if}}", "{{#if other}}"}, engine.Tokens(content))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("a {{x.y}} {{#unless isIndividual}}b{{/unless}}")

	types := make([]TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenText, TokenPlaceholder, TokenText, TokenOpen, TokenText, TokenClose,
	}, types)

	assert.Equal(t, "x.y", tokens[1].Name)
	assert.Equal(t, 2, tokens[1].Pos)
	assert.Equal(t, "isIndividual", tokens[3].Name)
}
