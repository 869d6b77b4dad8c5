package service

import "errors"

var (
	ErrValidation              = errors.New("validation error")
	ErrDuplicateFingerprint    = errors.New("Document already exists")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrDocumentNotReady        = errors.New("document is not processed yet")
	ErrInvalidStatusTransition = errors.New("invalid document status transition")
)
