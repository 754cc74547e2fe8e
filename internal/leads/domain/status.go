// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a lead. Values are closed: anything not
// listed here is rejected at the boundary instead of stored.
type Status string

const (
	StatusNew       Status = "new"
	StatusAssigned  Status = "assigned"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusQuoted    Status = "quoted"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// transitions is the full legal transition table.
// assigned → new is the administrative recall path; declined → accepted
// re-opens a lead for another quote attempt.
var transitions = map[Status][]Status{
	StatusNew:       {StatusAssigned},
	StatusAssigned:  {StatusAccepted, StatusRejected, StatusExpired, StatusNew},
	StatusAccepted:  {StatusQuoted},
	StatusQuoted:    {StatusApproved, StatusDeclined},
	StatusApproved:  {StatusCompleted},
	StatusDeclined:  {StatusAccepted},
	StatusRejected:  {},
	StatusExpired:   {},
	StatusCompleted: {},
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("unknown lead status %q", raw)
	}
	return s, nil
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Effective returns the status a reader should observe: an assigned lead
// whose expiry has strictly passed reads as expired even before the sweep
// has materialized the transition. At the boundary instant the lead is
// still actionable.
func Effective(status Status, expiresAt *time.Time, now time.Time) Status {
	if status == StatusAssigned && expiresAt != nil && now.After(*expiresAt) {
		return StatusExpired
	}
	return status
}
