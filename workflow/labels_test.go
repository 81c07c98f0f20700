package workflow

import "testing"

func TestLabelForUnknownKeyIsIdentity(t *testing.T) {
	if got := LabelFor("totally_unknown_status"); got != "totally_unknown_status" {
		t.Fatalf("LabelFor returned %q", got)
	}
	if got := LabelFor(""); got != "" {
		t.Fatalf("LabelFor(\"\") returned %q", got)
	}
}

func TestLabelForKnownKeys(t *testing.T) {
	if got := LabelFor(string(StatusCompleted)); got != "تکمیل شده" {
		t.Fatalf("status label = %q", got)
	}
	if got := LabelFor(string(ActionAdminCorrection)); got != ActionLabel(ActionAdminCorrection) {
		t.Fatalf("action label = %q", got)
	}
	for _, status := range AllStatuses() {
		if StatusLabel(status) == string(status) {
			t.Fatalf("status %s has no label", status)
		}
		if def := Step(status); def.Title == "" || def.Status != status {
			t.Fatalf("status %s has no step definition", status)
		}
	}
}

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]RequestStatus{
		"source_review":      StatusSourceReview,
		"  SOURCE-REVIEW ":   StatusSourceReview,
		"district_rejection": StatusSourceRejection,
		"submitted":          StatusUserApproval,
		"تایید نهایی":        StatusApproved,
	}
	for raw, want := range cases {
		got, ok := ParseStatus(raw)
		if !ok || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParseStatus("nonsense"); ok {
		t.Fatal("ParseStatus accepted an unknown value")
	}
}

func TestDefaultAction(t *testing.T) {
	if got := DefaultAction(StatusUserApproval); got != ActionSubmitFinalAppeal {
		t.Fatalf("DefaultAction(user_approval) = %q", got)
	}
	if got := DefaultAction(StatusUserNoAction); got != "" {
		t.Fatalf("DefaultAction(user_no_action) = %q", got)
	}
}
