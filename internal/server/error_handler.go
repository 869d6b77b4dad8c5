package server

import (
	"errors"

	"pdf-qa-be/internal/service"
	"pdf-qa-be/pkg/pdfextract"

	"github.com/gofiber/fiber/v2"
)

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) (int, bool) {
	var extractionErr *pdfextract.ExtractionError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrDuplicateFingerprint):
		return fiber.StatusBadRequest, true
	case errors.Is(err, service.ErrDocumentNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrDocumentNotReady):
		return fiber.StatusConflict, true
	case errors.As(err, &extractionErr):
		return fiber.StatusUnprocessableEntity, true
	}
	return 0, false
}
