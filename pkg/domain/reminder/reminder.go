// Package reminder plans the time-offset notifications sent before a hearing.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// OffsetType is one of the four fixed reminder offsets.
type OffsetType string

const (
	OffsetOneDay     OffsetType = "1_day"
	OffsetOneHour    OffsetType = "1_hour"
	OffsetFifteenMin OffsetType = "15_min"
	OffsetAtTime     OffsetType = "at_time"
)

// AllOffsets returns the offsets in firing order.
func AllOffsets() []OffsetType {
	return []OffsetType{OffsetOneDay, OffsetOneHour, OffsetFifteenMin, OffsetAtTime}
}

// Duration returns how long before the hearing the offset fires.
func (o OffsetType) Duration() (time.Duration, error) {
	switch o {
	case OffsetOneDay:
		return 24 * time.Hour, nil
	case OffsetOneHour:
		return time.Hour, nil
	case OffsetFifteenMin:
		return 15 * time.Minute, nil
	case OffsetAtTime:
		return 0, nil
	default:
		return 0, &domain.InvalidEnumError{Enum: "reminder offset", Value: string(o)}
	}
}

// Label returns the phrase used in notification text.
func (o OffsetType) Label() string {
	switch o {
	case OffsetOneDay:
		return "tomorrow"
	case OffsetOneHour:
		return "in 1 hour"
	case OffsetFifteenMin:
		return "in 15 minutes"
	case OffsetAtTime:
		return "now"
	default:
		return string(o)
	}
}

func (o OffsetType) String() string {
	return string(o)
}

// ParseOffset parses an offset name.
func ParseOffset(str string) (OffsetType, error) {
	o := OffsetType(str)
	if _, err := o.Duration(); err != nil {
		return "", err
	}
	return o, nil
}

// Preferences are the user's reminder switches. They are read fresh on every schedule.
type Preferences struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OneDay     bool `yaml:"one_day" json:"one_day"`
	OneHour    bool `yaml:"one_hour" json:"one_hour"`
	FifteenMin bool `yaml:"fifteen_min" json:"fifteen_min"`
	AtTime     bool `yaml:"at_time" json:"at_time"`
	Sound      bool `yaml:"sound" json:"sound"`
	Vibration  bool `yaml:"vibration" json:"vibration"`
}

// DefaultPreferences enables everything.
func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:    true,
		OneDay:     true,
		OneHour:    true,
		FifteenMin: true,
		AtTime:     true,
		Sound:      true,
		Vibration:  true,
	}
}

// Allows reports whether reminders for offset o should be scheduled.
func (p Preferences) Allows(o OffsetType) bool {
	if !p.Enabled {
		return false
	}
	switch o {
	case OffsetOneDay:
		return p.OneDay
	case OffsetOneHour:
		return p.OneHour
	case OffsetFifteenMin:
		return p.FifteenMin
	case OffsetAtTime:
		return p.AtTime
	default:
		return false
	}
}

// Set toggles a single offset.
func (p *Preferences) Set(o OffsetType, on bool) error {
	switch o {
	case OffsetOneDay:
		p.OneDay = on
	case OffsetOneHour:
		p.OneHour = on
	case OffsetFifteenMin:
		p.FifteenMin = on
	case OffsetAtTime:
		p.AtTime = on
	default:
		return &domain.InvalidEnumError{Enum: "reminder offset", Value: string(o)}
	}
	return nil
}

// Key identifies one unit of delayed work.
type Key struct {
	HearingID string
	Offset    OffsetType
}

// String returns the unique work name.
func (k Key) String() string {
	return Tag(k.HearingID) + "_" + string(k.Offset)
}

// Tag groups all reminders of a hearing for bulk cancellation.
func Tag(hearingID string) string {
	return "hearing_reminder_" + hearingID
}

// Task is a planned reminder.
type Task struct {
	HearingID string     `json:"hearing_id"`
	Offset    OffsetType `json:"offset"`
	FireAt    time.Time  `json:"fire_at"`
}

// Key returns the task's work key.
func (t Task) Key() Key {
	return Key{HearingID: t.HearingID, Offset: t.Offset}
}

// Skip reasons.
const (
	SkipDisabled = "disabled in preferences"
	SkipPast     = "fire time already passed"
)

// Skipped records an offset that was not scheduled.
type Skipped struct {
	Offset OffsetType `json:"offset"`
	FireAt time.Time  `json:"fire_at"`
	Reason string     `json:"reason"`
}

// Plan is the outcome of planning one hearing's reminders.
type Plan struct {
	Tasks   []Task    `json:"tasks"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

// PlanReminders computes fire times at each enabled offset before at. Offsets
// whose fire time is not strictly after now are skipped.
func PlanReminders(hearingID string, at, now time.Time, prefs Preferences) Plan {
	var plan Plan
	for _, o := range AllOffsets() {
		// Duration cannot fail for members of AllOffsets.
		d, _ := o.Duration()
		fireAt := at.Add(-d)
		switch {
		case !prefs.Allows(o):
			plan.Skipped = append(plan.Skipped, Skipped{Offset: o, FireAt: fireAt, Reason: SkipDisabled})
		case !fireAt.After(now):
			plan.Skipped = append(plan.Skipped, Skipped{Offset: o, FireAt: fireAt, Reason: SkipPast})
		default:
			plan.Tasks = append(plan.Tasks, Task{HearingID: hearingID, Offset: o, FireAt: fireAt})
		}
	}
	return plan
}

// WorkQueue is the delayed-work facility reminders are registered with.
type WorkQueue interface {
	// Register schedules task after delay, replacing any existing work with the same key.
	Register(ctx context.Context, key Key, delay time.Duration, task Task) error
	// CancelByTag removes all pending work for a hearing and returns how many were removed.
	CancelByTag(ctx context.Context, hearingID string) (int, error)
	// Pending lists the not-yet-fired work for a hearing.
	Pending(hearingID string) []Task
}

// Validate checks a task before registration.
func (t Task) Validate() error {
	if t.HearingID == "" {
		return fmt.Errorf("reminder task without hearing ID")
	}
	if _, err := ParseOffset(string(t.Offset)); err != nil {
		return err
	}
	return nil
}

// PreferencesStore persists the user's reminder toggles. Implementations return
// DefaultPreferences when nothing has been saved.
type PreferencesStore interface {
	LoadPreferences() (Preferences, error)
	SavePreferences(p Preferences) error
}

// Notification is what a fired reminder hands to the Notifier.
type Notification struct {
	HearingID  string     `json:"hearing_id"`
	CaseID     string     `json:"case_id"`
	CaseNumber string     `json:"case_number,omitempty"`
	Offset     OffsetType `json:"offset"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Location   string     `json:"location"`
	At         time.Time  `json:"at"`
	Sound      bool       `json:"sound"`
	Vibration  bool       `json:"vibration"`
}

// Notifier delivers a reminder to the user. A returned error is treated as
// transient and retried.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Forgetter is implemented by notifiers that remember partial deliveries
// between retries. Forget is called once the caller gives up on n.
type Forgetter interface {
	Forget(n Notification)
}

// Compose builds the user-facing text for a reminder at offset o.
func Compose(o OffsetType, hearingID, caseID, caseNumber, location string, at time.Time, prefs Preferences) Notification {
	title := "Hearing reminder"
	if o == OffsetAtTime {
		title = "Hearing starting now"
	}
	ref := caseNumber
	if ref == "" {
		ref = caseID
	}
	body := fmt.Sprintf("Case %s: hearing %s at %s, %s", ref, o.Label(), location, at.Format("Jan 02, 2006 03:04 PM"))
	return Notification{
		HearingID:  hearingID,
		CaseID:     caseID,
		CaseNumber: caseNumber,
		Offset:     o,
		Title:      title,
		Body:       body,
		Location:   location,
		At:         at,
		Sound:      prefs.Sound,
		Vibration:  prefs.Vibration,
	}
}
