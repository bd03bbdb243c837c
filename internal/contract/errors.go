package contract

import "errors"

var (
	// ErrNotFound is returned when a contract, or a record it must reference, does not exist
	ErrNotFound = errors.New("contract not found")
	// ErrMissingTemplateContent is returned when the contract has no template or the template is empty
	ErrMissingTemplateContent = errors.New("template has no content")
	// ErrInvalidTransition is returned when a lifecycle action does not apply to the current status
	ErrInvalidTransition = errors.New("invalid contract status transition")
	// ErrInvalidInput is returned for malformed create/update requests
	ErrInvalidInput = errors.New("invalid input")
)
