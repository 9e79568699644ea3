package checklist

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "checklist"

var (
	ErrChecklistNotFound = apperror.NotFound(module, "ErrChecklistNotFound", "checklist not found")
	ErrItemNotFound      = apperror.NotFound(module, "ErrItemNotFound", "checklist item not found")
	ErrLinkNotFound      = apperror.NotFound(module, "ErrLinkNotFound", "linked user or prospect not found")

	ErrTitleRequired    = apperror.Validation(module, "ErrTitleRequired", "title is required")
	ErrItemTextRequired = apperror.Validation(module, "ErrItemTextRequired", "every item needs a text")
)
