package api

import "errors"

// Sentinel errors for document service operations.
var (
	ErrOwnerRequired      = errors.New("owner id required")
	ErrBadRequest         = errors.New("bad request")
	ErrAttachmentTooLarge = errors.New("attachment too large")
)
