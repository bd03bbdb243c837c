// Package fields describes the data a template needs before a contract can
// be sent for signature.
package fields

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/foxzi/contracte/internal/template"
)

// Descriptor is a single field requirement stored with a template
type Descriptor struct {
	Name         string `json:"name"`
	Label        string `json:"label,omitempty"`
	Required     bool   `json:"required,omitempty"`
	RequiredWhen string `json:"required_when,omitempty"`
}

// MissingFieldsError lists required fields that have no value
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Rules is a compiled descriptor list
type Rules struct {
	descriptors []Descriptor
	programs    map[string]*vm.Program
}

// Parse decodes a JSON descriptor list. Empty input yields no descriptors.
func Parse(raw string) ([]Descriptor, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ds []Descriptor
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		return nil, fmt.Errorf("failed to parse field descriptors: %w", err)
	}
	return ds, nil
}

// Compile validates descriptors and compiles their required_when expressions
func Compile(ds []Descriptor) (*Rules, error) {
	r := &Rules{
		descriptors: ds,
		programs:    make(map[string]*vm.Program),
	}
	probe := Env(&template.PopulationData{
		Beneficiary: &template.Beneficiary{},
		Contract:    &template.ContractTerms{},
		Provider:    &template.Provider{},
	})

	seen := make(map[string]bool)
	for _, d := range ds {
		if !slices.Contains(template.Vocabulary, d.Name) {
			return nil, fmt.Errorf("unknown field %q", d.Name)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate field %q", d.Name)
		}
		seen[d.Name] = true

		if d.RequiredWhen == "" {
			continue
		}
		program, err := expr.Compile(d.RequiredWhen, expr.Env(probe), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("invalid required_when for %s: %w", d.Name, err)
		}
		r.programs[d.Name] = program
	}
	return r, nil
}

// ParseRules parses and compiles a JSON descriptor list
func ParseRules(raw string) (*Rules, error) {
	ds, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return Compile(ds)
}

// Descriptors returns the compiled descriptors
func (r *Rules) Descriptors() []Descriptor {
	return r.descriptors
}

// Check returns a *MissingFieldsError naming every required field without a value
func (r *Rules) Check(data *template.PopulationData) error {
	env := Env(data)

	var missing []string
	for _, d := range r.descriptors {
		required := d.Required
		if program, ok := r.programs[d.Name]; ok {
			out, err := expr.Run(program, env)
			if err != nil {
				return fmt.Errorf("failed to evaluate required_when for %s: %w", d.Name, err)
			}
			required, _ = out.(bool)
		}
		if !required {
			continue
		}

		if v, ok := data.Lookup(d.Name); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, d.Name)
		}
	}

	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// Env builds the expression environment: isCompany, isIndividual and one
// nested map per namespace keyed like the placeholders.
func Env(data *template.PopulationData) map[string]any {
	env := map[string]any{
		"isCompany":    data.IsCompany(),
		"isIndividual": !data.IsCompany(),
	}
	namespaces := map[string]map[string]any{
		"beneficiary": {},
		"contract":    {},
		"provider":    {},
	}

	for _, name := range template.Vocabulary {
		v, ok := data.Lookup(name)
		ns, field, dotted := strings.Cut(name, ".")
		if !dotted {
			if ok {
				env[name] = v
			} else {
				env[name] = ""
			}
			continue
		}
		if ok {
			namespaces[ns][field] = v
		}
	}
	for ns, m := range namespaces {
		env[ns] = m
	}
	return env
}
