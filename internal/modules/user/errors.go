package user

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "user"

var (
	ErrNotFound     = apperror.NotFound(module, "ErrNotFound", "user not found")
	ErrUnauthorized = apperror.Unauthorized(module, "ErrUnauthorized", "user is not authorized to perform this action")

	ErrInvalidCredentials = apperror.Unauthorized(module, "ErrInvalidCredentials", "invalid email or password")
	ErrAccountInactive    = apperror.Forbidden(module, "ErrAccountInactive", "this account has been deactivated")
	ErrWrongPassword      = apperror.Validation(module, "ErrWrongPassword", "current password is incorrect")
	ErrInvalidResetToken  = apperror.Validation(module, "ErrInvalidResetToken", "the provided token is invalid or has expired")

	ErrEmailExists = apperror.Conflict(module, "ErrEmailExists", "a user with this email already exists")

	ErrInvalidActivationCode   = apperror.Validation(module, "ErrInvalidActivationCode", "invalid, expired or already used activation code")
	ErrActivationEmailMismatch = apperror.Validation(module, "ErrActivationEmailMismatch",
		"this activation code was issued for another email address")
	ErrActivationCodeNotFound  = apperror.NotFound(module, "ErrActivationCodeNotFound", "activation code not found")
	ErrActivationCodeUsed      = apperror.InvalidState(module, "ErrActivationCodeUsed", "activation code has already been used")
	ErrActivationCodeCancelled = apperror.InvalidState(module, "ErrActivationCodeCancelled",
		"activation code is already cancelled")
	ErrInvalidRole = apperror.Validation(module, "ErrInvalidRole", "role must be apprenant or professionnel")

	ErrCannotDeleteSelf = apperror.Forbidden(module, "ErrCannotDeleteSelf", "you cannot delete your own account")
	ErrUserReferenced   = apperror.Conflict(module, "ErrUserReferenced",
		"this user is referenced by contracts or messages and cannot be deleted")
)
