// Package validation checks request DTOs against their `validate` tags and
// reports failures keyed by the JSON field name, in French.
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps JSON field names to their messages.
type FieldErrors map[string][]string

// ValidationError satisfies httpx.DomainProblem structurally so that
// httpx.ToProblem renders it as a 400.
type ValidationError struct {
	summary string
	fields  FieldErrors
}

func (e *ValidationError) Error() string        { return e.summary }
func (e *ValidationError) Fields() FieldErrors  { return e.fields }
func (e *ValidationError) ProblemCode() string  { return "ErrValidation" }
func (e *ValidationError) ProblemStatus() int   { return http.StatusBadRequest }
func (e *ValidationError) ProblemTitle() string { return "Validation error" }
func (e *ValidationError) ProblemDetail() string {
	return e.summary
}
func (e *ValidationError) ProblemTypeURI() string { return "urn:problem:validation-error" }
func (e *ValidationError) ProblemContext() any    { return map[string]any{"fields": e.fields} }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
}

// fieldName prefers the json tag, then the query tag, then the Go name with
// a lowered first letter.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return lowerFirst(f.Name)
}

// ValidateStruct returns nil or a *ValidationError. The summary names the
// first failing field in declaration order and counts the rest.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{summary: "Données invalides.", fields: FieldErrors{}}
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}

	first := verrs[0]
	summary := first.Field() + " : " + message(first)
	if rest := len(verrs) - 1; rest > 0 {
		summary += fmt.Sprintf(" (et %d autre%s erreur%s)", rest, plural(rest), plural(rest))
	}
	return &ValidationError{summary: summary, fields: fields}
}

var fixed = map[string]string{
	"required": "champ requis",
	"email":    "adresse email invalide",
	"uuid":     "identifiant invalide",
	"uuid4":    "identifiant invalide",
	"uuid7":    "identifiant invalide",
	"url":      "URL invalide",
	"datetime": "date invalide",
}

func message(fe validator.FieldError) string {
	if m, ok := fixed[fe.Tag()]; ok {
		return m
	}

	p := fe.Param()
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "min":
		if text {
			return fmt.Sprintf("au moins %s caractères", p)
		}
		return "au moins " + p
	case "max":
		if text {
			return fmt.Sprintf("au plus %s caractères", p)
		}
		return "au plus " + p
	case "len":
		if text {
			return fmt.Sprintf("exactement %s caractères", p)
		}
		return fmt.Sprintf("exactement %s éléments", p)
	case "eqfield":
		return "doit correspondre à " + lowerFirst(p)
	case "oneof":
		return "valeurs possibles : " + strings.Join(strings.Fields(p), ", ")
	case "gte":
		return "doit être supérieur ou égal à " + p
	case "gtfield":
		return "doit être postérieur à " + lowerFirst(p)
	}
	return "valeur invalide"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
