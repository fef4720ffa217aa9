package domain

import (
	"errors"
	"fmt"
)

// Domain errors shared by the case lifecycle packages.
var (
	// ErrDataConsistency indicates structurally invalid derived data.
	ErrDataConsistency = errors.New("data consistency violation")

	// ErrParse indicates a hearing date or time could not be parsed.
	ErrParse = errors.New("unparsable hearing date/time")

	// ErrTransientDelivery indicates the notifier failed in a way that may succeed on retry.
	ErrTransientDelivery = errors.New("transient delivery failure")

	// ErrInvalidEnum indicates a value outside a closed enumeration.
	ErrInvalidEnum = errors.New("invalid enum value")

	// ErrCaseNotFound indicates the case does not exist.
	ErrCaseNotFound = errors.New("case not found")

	// ErrHearingNotFound indicates the hearing does not exist.
	ErrHearingNotFound = errors.New("hearing not found")

	// ErrInvalidTransition indicates a status change that the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DataConsistencyError describes which derived structure was malformed.
type DataConsistencyError struct {
	Subject string
	Detail  string
	Err     error
}

func (e *DataConsistencyError) Error() string {
	msg := "inconsistent " + e.Subject + ": " + e.Detail
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is allows errors.Is to work with DataConsistencyError.
func (e *DataConsistencyError) Is(target error) bool {
	return target == ErrDataConsistency
}

func (e *DataConsistencyError) Unwrap() error {
	return e.Err
}

// MissingReport reports that the case a timeline is derived from does not exist.
func MissingReport(ref string, err error) error {
	return &DataConsistencyError{Subject: "case report", Detail: "no report for " + ref, Err: err}
}

// ParseError carries the raw date and time strings that failed to parse.
type ParseError struct {
	HearingID string
	Date      string
	Time      string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hearing %s: cannot parse %q %q", e.HearingID, e.Date, e.Time)
}

// Is allows errors.Is to work with ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DeliveryError wraps a notifier failure for a single reminder.
type DeliveryError struct {
	HearingID string
	Offset    string
	Err       error
}

func (e *DeliveryError) Error() string {
	return "deliver reminder " + e.Offset + " for hearing " + e.HearingID + ": " + e.Err.Error()
}

// Is allows errors.Is to work with DeliveryError.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrTransientDelivery
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// InvalidEnumError names the enumeration and the rejected value.
type InvalidEnumError struct {
	Enum  string
	Value string
}

func (e *InvalidEnumError) Error() string {
	return "invalid " + e.Enum + ": " + e.Value
}

// Is allows errors.Is to work with InvalidEnumError.
func (e *InvalidEnumError) Is(target error) bool {
	return target == ErrInvalidEnum
}

// TransitionError provides details about a rejected status change.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	Event  string
}

func (e *TransitionError) Error() string {
	return "cannot " + e.Event + " " + e.Entity + " " + e.ID + " while " + e.From
}

// Is allows errors.Is to work with TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
