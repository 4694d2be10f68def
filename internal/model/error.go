package model

import "fmt"

type ErrorWithCode interface {
	Error() string
	Code() string
}

type Error struct {
	ErrCode string `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return e.Message
}

func (e Error) Code() string {
	return e.ErrCode
}

// Fmt creates a new error from the base error template with provided arguments
func (e Error) Fmt(args ...any) Error {
	return Error{
		ErrCode: e.ErrCode,
		Message: fmt.Sprintf(e.Message, args...),
	}
}

func NewError(code, message string) Error {
	return Error{
		ErrCode: code,
		Message: message,
	}
}

var (
	ErrValidation = NewError("validation", "Validation error: %s")

	// Upload protocol errors.
	ErrPayloadTooLarge = NewError("upload.too_large", "Declared upload length %d exceeds the maximum of %d bytes")
	ErrSessionNotFound = NewError("upload.session_not_found", "Upload session %s not found")
	ErrOffsetConflict  = NewError("upload.offset_conflict", "Claimed offset %d does not match current offset %d")

	// Asset errors.
	ErrAssetNotFound = NewError("asset.not_found", "Asset %s not found")

	// Catalog and backend disagree: the record exists but the blob is gone.
	ErrConsistency = NewError("catalog.consistency", "Asset %s has no backing blob")

	ErrInternal = NewError("internal", "Internal error: %s")
)
