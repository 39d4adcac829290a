package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUserToSummary(t *testing.T) {
	u := &User{ID: "u1", Name: "Ivy", Email: "ivy@example.com", PasswordHash: "hash", Summary: "Backend engineer"}

	got := u.ToSummary()
	if got != (UserSummary{ID: "u1", Name: "Ivy", Email: "ivy@example.com"}) {
		t.Fatalf("unexpected summary: %+v", got)
	}

	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"summary":"Backend engineer"`) || strings.Contains(string(b), "hash") {
		t.Fatalf("unexpected user json: %s", b)
	}
}

func TestApplicationStatusValid(t *testing.T) {
	for _, s := range []ApplicationStatus{StatusDraft, StatusApplied, StatusInterviewing, StatusOffer, StatusRejected} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if ApplicationStatus("hired").Valid() {
		t.Fatalf("hired should not be valid")
	}
}
