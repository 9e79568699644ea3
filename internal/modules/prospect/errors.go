package prospect

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "prospect"

var (
	ErrProspectNotFound       = apperror.NotFound(module, "ErrProspectNotFound", "prospect not found")
	ErrContactMessageNotFound = apperror.NotFound(module, "ErrContactMessageNotFound", "contact message not found")
	ErrInvalidStatus          = apperror.Validation(module, "ErrInvalidStatus", "status must be nouveau, contacte, converti or archive")
	ErrHasAccount             = apperror.InvalidState(module, "ErrHasAccount", "this prospect already has a user account")
)
