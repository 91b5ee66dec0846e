package domain

import (
	"fmt"
	"strings"
)

// Status is an application's processing status.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusUnallocated Status = "UN_ALLOCATED"
	StatusListed      Status = "LISTED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusFinalised   Status = "FINALISED"
	StatusEjected     Status = "EJECTED"
)

var knownStatuses = map[Status]struct{}{
	StatusDraft:       {},
	StatusUnallocated: {},
	StatusListed:      {},
	StatusInProgress:  {},
	StatusFinalised:   {},
	StatusEjected:     {},
}

// ParseStatus normalizes value into a known Status.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("application status is required")
	}
	status := Status(strings.ToUpper(strings.ReplaceAll(trimmed, "-", "_")))
	if _, ok := knownStatuses[status]; !ok {
		return "", fmt.Errorf("unknown application status: %s", trimmed)
	}
	return status, nil
}

// ParseRequestedStatus parses the target of a status-changed event. EJECTED is
// rejected: only ejection moves an application there.
func ParseRequestedStatus(value string) (Status, error) {
	status, err := ParseStatus(value)
	if err != nil {
		return "", err
	}
	if status == StatusEjected {
		return "", fmt.Errorf("status %s is set by ejection only", status)
	}
	return status, nil
}

// Terminal reports whether ordinary status changes can no longer move an
// application out of s.
func (s Status) Terminal() bool {
	return s == StatusFinalised || s == StatusEjected
}

// NextStatus returns the status an application holds after a status-changed
// event requests requested. Terminal statuses stick.
func NextStatus(current, requested Status) Status {
	if current.Terminal() {
		return current
	}
	return requested
}
