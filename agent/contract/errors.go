package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrMalformedAction = errors.New("cart action payload is malformed")
	ErrBlankInput      = errors.New("input is blank")
	ErrValidation      = errors.New("validation failed")
)
