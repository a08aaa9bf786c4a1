package domain

import "testing"

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"todo", "in_progress", "completed"} {
		s, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if string(s) != raw {
			t.Fatalf("expected %q, got %q", raw, s)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "done", "TODO", "in progress"} {
		if _, err := ParseStatus(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("owner"); err != nil {
		t.Fatalf("parse owner: %v", err)
	}
	if _, err := ParseRole("member"); err != nil {
		t.Fatalf("parse member: %v", err)
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
