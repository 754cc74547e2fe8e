package domain

import (
	"testing"
	"time"
)

func TestCanTransition_HappyPath(t *testing.T) {
	steps := []struct {
		from Status
		to   Status
	}{
		{StatusNew, StatusAssigned},
		{StatusAssigned, StatusAccepted},
		{StatusAccepted, StatusQuoted},
		{StatusQuoted, StatusApproved},
		{StatusApproved, StatusCompleted},
	}

	for _, step := range steps {
		if !CanTransition(step.from, step.to) {
			t.Fatalf("expected %s -> %s to be legal", step.from, step.to)
		}
	}
}

func TestCanTransition_IllegalSteps(t *testing.T) {
	steps := []struct {
		from Status
		to   Status
	}{
		{StatusNew, StatusAccepted},
		{StatusNew, StatusQuoted},
		{StatusAccepted, StatusApproved},
		{StatusRejected, StatusAssigned},
		{StatusExpired, StatusAccepted},
		{StatusCompleted, StatusNew},
		{StatusQuoted, StatusCompleted},
	}

	for _, step := range steps {
		if CanTransition(step.from, step.to) {
			t.Fatalf("expected %s -> %s to be illegal", step.from, step.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusExpired, StatusCompleted} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusNew, StatusAssigned, StatusAccepted, StatusQuoted, StatusApproved, StatusDeclined} {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestParseStatus_RejectsUnknownValues(t *testing.T) {
	if _, err := ParseStatus("contacted"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	parsed, err := ParseStatus("assigned")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != StatusAssigned {
		t.Fatalf("expected assigned, got %s", parsed)
	}
}

func TestEffective_ExpiryBoundary(t *testing.T) {
	expires := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// At the boundary instant the lead is still assigned.
	if got := Effective(StatusAssigned, &expires, expires); got != StatusAssigned {
		t.Fatalf("at boundary instant: expected assigned, got %s", got)
	}

	// Strictly past expiry it reads as expired.
	after := expires.Add(time.Nanosecond)
	if got := Effective(StatusAssigned, &expires, after); got != StatusExpired {
		t.Fatalf("past expiry: expected expired, got %s", got)
	}

	// Expiry only applies to assigned leads.
	if got := Effective(StatusAccepted, &expires, after.Add(time.Hour)); got != StatusAccepted {
		t.Fatalf("accepted lead must not expire, got %s", got)
	}

	// No expiry set.
	if got := Effective(StatusAssigned, nil, after); got != StatusAssigned {
		t.Fatalf("nil expiry: expected assigned, got %s", got)
	}
}
