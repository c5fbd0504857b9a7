package article

import (
	"fmt"
	"strings"
)

// ScreeningStatus is the workflow state of manual review.
type ScreeningStatus string

const (
	StatusPending  ScreeningStatus = "pending"
	StatusIncluded ScreeningStatus = "included"
	StatusExcluded ScreeningStatus = "excluded"
	StatusMaybe    ScreeningStatus = "maybe"
)

// ValidStatuses lists the accepted screening status values.
var ValidStatuses = []ScreeningStatus{StatusPending, StatusIncluded, StatusExcluded, StatusMaybe}

// NormalizeStatus lower-cases and trims a raw status. Empty means pending.
func NormalizeStatus(raw string) ScreeningStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusPending
	}
	return ScreeningStatus(s)
}

// ParseStatus validates user input against ValidStatuses.
func ParseStatus(raw string) (ScreeningStatus, error) {
	s := NormalizeStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid screening status %q (valid: pending, included, excluded, maybe)", raw)
	}
	return s, nil
}

// Valid reports whether s is one of ValidStatuses.
func (s ScreeningStatus) Valid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}
