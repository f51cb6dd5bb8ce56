package enums

import "fmt"

// SessionStatus maps to the drawer_session_status_enum enum in Postgres.
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
	SessionStatusReview SessionStatus = "review"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusOpen,
	SessionStatusClosed,
	SessionStatusReview,
}

// IsValid reports whether the value matches the canonical session status enum.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusClosed || s == SessionStatusReview
}

// ParseSessionStatus converts raw input into SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
