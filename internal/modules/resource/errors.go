package resource

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "resource"

var (
	ErrResourceNotFound = apperror.NotFound(module, "ErrResourceNotFound", "resource not found")
	ErrTrainingNotFound = apperror.NotFound(module, "ErrTrainingNotFound", "linked training not found")
	ErrNoDocument       = apperror.NotFound(module, "ErrNoDocument", "no PDF is attached to this resource")

	ErrTitleRequired   = apperror.Validation(module, "ErrTitleRequired", "title and linked training are required")
	ErrPDFRequired     = apperror.Validation(module, "ErrPDFRequired", "a PDF file is required")
	ErrInvalidPDF      = apperror.Validation(module, "ErrInvalidPDF", "only PDF files are accepted")
	ErrPDFTooLarge     = apperror.Validation(module, "ErrPDFTooLarge", "the PDF must not exceed 10MB")
	ErrInvalidAudience = apperror.Validation(module, "ErrInvalidAudience", "target roles must be apprenant or professionnel")

	ErrAdminOnly    = apperror.Forbidden(module, "ErrAdminOnly", "only administrators can manage resources")
	ErrAccessDenied = apperror.Forbidden(module, "ErrAccessDenied", "access to this resource is not allowed")
)
