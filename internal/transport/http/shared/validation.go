package shared

import (
	"net/http"
	"strings"
	"time"

	"epas/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field-level issues so a payload is reported in one
// response instead of failing on the first bad field. Issues keep the
// order fields were checked in.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	if v == nil || reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: field, Reason: reason})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Period validates an appraisal period: both bounds must be YYYY-MM-DD
// dates and the range must not run backwards. Zero times come back for
// fields that failed, with the issues recorded against each bound.
func (v *Validator) Period(fromField, fromRaw, toField, toRaw string) (time.Time, time.Time) {
	from := v.date(fromField, fromRaw)
	to := v.date(toField, toRaw)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		v.Add(fromField, "must be on or before "+toField)
		v.Add(toField, "must be on or after "+fromField)
	}
	return from, to
}

func (v *Validator) date(field, raw string) time.Time {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}
	}
	return parsed
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	return append([]ValidationIssue(nil), v.issues...)
}

// Reject writes a validation_error response and reports whether it did,
// so handlers can bail with a single if.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
