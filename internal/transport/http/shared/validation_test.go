package shared

import "testing"

func TestPeriodAcceptsOrderedDates(t *testing.T) {
	v := NewValidator()
	from, to := v.Period("periodFrom", "2026-01-01", "periodTo", "2026-06-30")
	if v.HasIssues() {
		t.Fatalf("unexpected issues: %+v", v.Issues())
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		t.Fatalf("unexpected bounds: %v %v", from, to)
	}
}

func TestPeriodFlagsEachBadBound(t *testing.T) {
	v := NewValidator()
	v.Period("periodFrom", "01/01/2026", "periodTo", "")
	issues := v.Issues()
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", issues)
	}
	if issues[0].Field != "periodFrom" || issues[1].Field != "periodTo" {
		t.Fatalf("issues misattributed: %+v", issues)
	}
}

func TestPeriodRejectsBackwardsRange(t *testing.T) {
	v := NewValidator()
	v.Period("periodFrom", "2026-06-30", "periodTo", "2026-01-01")
	if len(v.Issues()) != 2 {
		t.Fatalf("expected issues on both bounds, got %+v", v.Issues())
	}
}

func TestRequiredTrimsWhitespace(t *testing.T) {
	v := NewValidator()
	v.Required("formId", "   ", "form id is required")
	if !v.HasIssues() {
		t.Fatal("expected an issue for blank value")
	}
}
