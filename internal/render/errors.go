package render

import (
	"fmt"
)

// LayoutError is returned when a document cannot be laid out or written.
// No partial output accompanies it.
type LayoutError struct {
	ContractID string
	Op         string
	Err        error
}

func (e *LayoutError) Error() string {
	if e.ContractID != "" {
		return fmt.Sprintf("render %s (contract %s): %v", e.Op, e.ContractID, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.Op, e.Err)
}

func (e *LayoutError) Unwrap() error {
	return e.Err
}
