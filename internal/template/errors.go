package template

import (
	"errors"
	"fmt"
)

// ErrNestedBlock is returned for a conditional block opened inside another
// block of the same family ({{#if}} in {{#if}}, {{#unless}} in {{#unless}}).
var ErrNestedBlock = errors.New("nested conditional block of the same kind is not supported")

// TemplateError describes a structural problem in template content
type TemplateError struct {
	Pos   int
	Token string
	Err   error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error at offset %d near %q: %v", e.Pos, e.Token, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}
