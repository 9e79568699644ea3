package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Jyok1m/ipseis-backend/internal/apperror"
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
)

// Problem is an RFC 9457 problem document. Code, Context and RequestID are
// extensions: a stable error code, an optional payload such as validation
// fields, and the chi request id.
type Problem struct {
	Type     string              `json:"type,omitempty"`
	Title    string              `json:"title,omitempty"`
	Status   int                 `json:"status,omitempty"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   []*huma.ErrorDetail `json:"errors,omitempty"`

	Code      string `json:"code,omitempty"`
	Context   any    `json:"context,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func newProblem(ctx context.Context, status int, code, detail string) *Problem {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Problem{
		Type:      "urn:problem:" + apperror.Kebab(code),
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Code:      code,
		RequestID: middleware.GetReqID(ctx),
	}
}

// Write renders p outside a huma operation, e.g. from chi middleware or the
// websocket upgrade.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.GetStatus())
	_ = json.NewEncoder(w).Encode(p)
}

func (p *Problem) Error() string {
	switch {
	case p.Detail != "":
		return p.Detail
	case p.Title != "":
		return p.Title
	}
	return http.StatusText(p.GetStatus())
}

// GetStatus implements huma.StatusError.
func (p *Problem) GetStatus() int {
	if p.Status == 0 {
		return http.StatusInternalServerError
	}
	return p.Status
}

// ContentType implements huma.ContentTypeFilter.
func (p *Problem) ContentType(ct string) string {
	switch ct {
	case "application/json":
		return "application/problem+json"
	case "application/cbor":
		return "application/problem+cbor"
	}
	return ct
}

// DomainProblem is satisfied by apperror.DomainError and
// validation.ValidationError without this package importing either.
type DomainProblem interface {
	ProblemCode() string
	ProblemStatus() int
	ProblemTitle() string
	ProblemDetail() string
	ProblemTypeURI() string
	ProblemContext() any
}

// ToProblem maps err to the error a huma handler returns. Status errors pass
// through untouched, domain problems keep their public detail, and anything
// else becomes a 500 that never leaks the cause.
func ToProblem(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(huma.StatusError); ok {
		return se
	}

	var dp DomainProblem
	if !errors.As(err, &dp) {
		return InternalProblem(ctx, "")
	}

	p := newProblem(ctx, dp.ProblemStatus(), dp.ProblemCode(), dp.ProblemDetail())
	if t := dp.ProblemTitle(); t != "" {
		p.Title = t
	}
	if uri := dp.ProblemTypeURI(); uri != "" {
		p.Type = uri
	}
	p.Context = dp.ProblemContext()
	return p
}

// InternalProblem is the 500 returned for unexpected failures.
func InternalProblem(ctx context.Context, detail string) *Problem {
	if detail == "" {
		detail = "Une erreur interne est survenue. Veuillez réessayer plus tard."
	}
	p := newProblem(ctx, http.StatusInternalServerError, "ErrInternal", detail)
	p.Type = "urn:problem:internal"
	return p
}

func UnauthorizedProblem(ctx context.Context, detail string) *Problem {
	p := newProblem(ctx, http.StatusUnauthorized, "ErrUnauthorized", detail)
	p.Type = "urn:problem:auth/err-unauthorized"
	return p
}

func ForbiddenProblem(ctx context.Context, detail string) *Problem {
	p := newProblem(ctx, http.StatusForbidden, "ErrForbidden", detail)
	p.Type = "urn:problem:auth/err-forbidden"
	return p
}

// NewHumaError replaces huma.NewError so that request parsing and schema
// failures raised by huma share the problem shape of domain errors.
func NewHumaError(status int, msg string, errs ...error) huma.StatusError {
	p := &Problem{
		Type:   "urn:problem:" + apperror.Kebab(http.StatusText(status)),
		Title:  http.StatusText(status),
		Status: status,
		Detail: msg,
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var d huma.ErrorDetailer
		if errors.As(err, &d) {
			p.Errors = append(p.Errors, d.ErrorDetail())
		} else {
			p.Errors = append(p.Errors, &huma.ErrorDetail{Message: err.Error()})
		}
	}
	return p
}
