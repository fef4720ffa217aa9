package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// casePattern matches case numbers such as "CASE-2024-0001" or "BLT-17".
var casePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(-[A-Za-z0-9]+)*$`)

// NewID returns a fresh identifier for cases, hearings, resolutions and artifacts.
func NewID() string {
	return uuid.New().String()
}

// ValidateID checks that value is a UUID as produced by NewID.
func ValidateID(kind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("invalid %s ID format: %s", kind, value)
	}
	return nil
}

// CaseNumber is the human-facing case reference printed on reports.
type CaseNumber struct {
	value string
}

// NewCaseNumber creates a CaseNumber from a string value.
// Returns an error if the value is invalid.
func NewCaseNumber(value string) (CaseNumber, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return CaseNumber{}, fmt.Errorf("case number cannot be empty")
	}
	if !casePattern.MatchString(value) {
		return CaseNumber{}, fmt.Errorf("invalid case number format: %s", value)
	}
	return CaseNumber{value: strings.ToUpper(value)}, nil
}

// MustCaseNumber creates a CaseNumber or panics if invalid. Use only in tests.
func MustCaseNumber(value string) CaseNumber {
	n, err := NewCaseNumber(value)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the string representation of the CaseNumber.
func (n CaseNumber) String() string {
	return n.value
}

// IsZero returns true if the CaseNumber is empty.
func (n CaseNumber) IsZero() bool {
	return n.value == ""
}
