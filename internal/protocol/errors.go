package protocol

import "errors"

var (
	ErrFormat            = errors.New("protocol: malformed hex input")
	ErrPersistence       = errors.New("protocol: catalog store failure")
	ErrResolution        = errors.New("protocol: collaborator unavailable")
	ErrLengthMismatch    = errors.New("protocol: declared length does not match payload")
	ErrInvalidDefinition = errors.New("protocol: invalid command definition")
)
