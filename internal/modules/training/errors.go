package training

import "github.com/Jyok1m/ipseis-backend/internal/apperror"

const module = "training"

var (
	ErrTrainingNotFound = apperror.NotFound(module, "ErrTrainingNotFound", "training not found")
	ErrThemeNotFound    = apperror.NotFound(module, "ErrThemeNotFound", "theme not found")
	ErrThemeNotEmpty    = apperror.InvalidState(module, "ErrThemeNotEmpty", "theme still contains trainings")
	ErrTrainingInUse    = apperror.InvalidState(module, "ErrTrainingInUse", "training still has resources attached")
)
