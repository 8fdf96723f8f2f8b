package validator

import (
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 14, 22, 30, 0, 0, time.UTC)

func validEvent() map[string]any {
	return map[string]any{
		"SearchTerm": "futuristic egg",
		"FromDate":   "2025-01-01",
		"queue":      "guardian_content",
	}
}

func TestValidateDefaultsToDate(t *testing.T) {
	req, err := Validate(validEvent(), fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SearchTerm != "futuristic egg" || req.Queue != "guardian_content" {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.FromDate != "2025-01-01" {
		t.Errorf("FromDate = %q", req.FromDate)
	}
	if req.ToDate != "2025-03-14" {
		t.Errorf("ToDate = %q, want today's date", req.ToDate)
	}
}

func TestValidateDefaultUsesUTCDate(t *testing.T) {
	east := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2025, 3, 15, 5, 0, 0, 0, east) // 2025-03-14 19:00 UTC
	req, err := Validate(validEvent(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ToDate != "2025-03-14" {
		t.Errorf("ToDate = %q, want 2025-03-14", req.ToDate)
	}
}

func TestValidateExplicitToDate(t *testing.T) {
	event := validEvent()
	event["ToDate"] = "2025-02-01"
	req, err := Validate(event, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ToDate != "2025-02-01" {
		t.Errorf("ToDate = %q", req.ToDate)
	}
}

func TestValidateNullToDateDefaults(t *testing.T) {
	event := validEvent()
	event["ToDate"] = nil
	req, err := Validate(event, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ToDate != "2025-03-14" {
		t.Errorf("ToDate = %q", req.ToDate)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   map[string]string
	}{
		{"missing search term", func(e map[string]any) { delete(e, "SearchTerm") }, map[string]string{"SearchTerm": msgRequired}},
		{"blank search term", func(e map[string]any) { e["SearchTerm"] = "   " }, map[string]string{"SearchTerm": msgEmpty}},
		{"numeric search term", func(e map[string]any) { e["SearchTerm"] = 42.0 }, map[string]string{"SearchTerm": msgString}},
		{"missing from date", func(e map[string]any) { delete(e, "FromDate") }, map[string]string{"FromDate": msgRequired}},
		{"malformed from date", func(e map[string]any) { e["FromDate"] = "01/01/2025" }, map[string]string{"FromDate": msgDate}},
		{"impossible from date", func(e map[string]any) { e["FromDate"] = "2025-02-30" }, map[string]string{"FromDate": msgDate}},
		{"malformed to date", func(e map[string]any) { e["ToDate"] = "tomorrow" }, map[string]string{"ToDate": msgDate}},
		{"non-string to date", func(e map[string]any) { e["ToDate"] = true }, map[string]string{"ToDate": msgString}},
		{"to before from", func(e map[string]any) { e["ToDate"] = "2024-12-31" }, map[string]string{"ToDate": "must not be before FromDate"}},
		{"missing queue", func(e map[string]any) { delete(e, "queue") }, map[string]string{"queue": msgRequired}},
		{"empty queue", func(e map[string]any) { e["queue"] = "" }, map[string]string{"queue": msgEmpty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(event)
			_, err := Validate(event, fixedNow)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.want) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.want)
			}
			for field, msg := range tt.want {
				if verr.Fields[field] != msg {
					t.Errorf("Fields[%q] = %q, want %q", field, verr.Fields[field], msg)
				}
			}
		})
	}
}

func TestValidateEmptyEventListsEveryRequiredField(t *testing.T) {
	_, err := Validate(map[string]any{}, fixedNow)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "invalid event: FromDate: field required; SearchTerm: field required; queue: field required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidateNilEvent(t *testing.T) {
	if _, err := Validate(nil, fixedNow); err == nil {
		t.Fatal("expected error for nil event")
	}
}
