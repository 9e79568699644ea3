package contract

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "contract"

var (
	ErrContractNotFound  = apperror.NotFound(module, "ErrContractNotFound", "contract not found")
	ErrRecipientNotFound = apperror.NotFound(module, "ErrRecipientNotFound", "recipient user not found")
	ErrTrainingNotFound  = apperror.NotFound(module, "ErrTrainingNotFound", "linked training not found")
	ErrNoDocument        = apperror.NotFound(module, "ErrNoDocument", "no PDF is attached to this contract")

	ErrTitleRequired     = apperror.Validation(module, "ErrTitleRequired", "title is required")
	ErrRecipientRequired = apperror.Validation(module, "ErrRecipientRequired", "recipient is required")
	ErrInvalidDates      = apperror.Validation(module, "ErrInvalidDates", "end date must not be before start date")
	ErrInvalidAmount     = apperror.Validation(module, "ErrInvalidAmount", "amount must be a non-negative number")
	ErrInvalidDate       = apperror.Validation(module, "ErrInvalidDate", "dates must use the YYYY-MM-DD or RFC 3339 format")
	ErrInvalidPDF        = apperror.Validation(module, "ErrInvalidPDF", "only PDF files are accepted")
	ErrPDFTooLarge       = apperror.Validation(module, "ErrPDFTooLarge", "the PDF must not exceed 10MB")

	ErrAdminOnly       = apperror.Forbidden(module, "ErrAdminOnly", "only administrators can manage contracts")
	ErrAdminCannotSign = apperror.Forbidden(module, "ErrAdminCannotSign", "administrators cannot sign or reject contracts")
	ErrAccessDenied    = apperror.Forbidden(module, "ErrAccessDenied", "access to this contract is not allowed")

	ErrNotDraft          = apperror.InvalidState(module, "ErrNotDraft", "only draft contracts can be modified or deleted")
	ErrAlreadyCancelled  = apperror.InvalidState(module, "ErrAlreadyCancelled", "this contract is already cancelled")
	ErrInvalidTransition = apperror.InvalidState(module, "ErrInvalidTransition", "this contract cannot change to the requested state")
)
