package sdk

import (
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// CaseSummary is one row of ListCases.
type CaseSummary struct {
	Number  string          `json:"number"`
	Title   string          `json:"title"`
	Status  casefile.Status `json:"status"`
	Officer string          `json:"officer,omitempty"`
}

// Timeline is a case with its seven stages.
type Timeline struct {
	Case   *casefile.Case   `json:"case"`
	Stages []timeline.Stage `json:"stages"`
}

// ScheduleRequest describes a hearing. When At is set it wins over Date and Time.
type ScheduleRequest struct {
	Case             string
	At               *time.Time
	Date             string
	Time             string
	Location         string
	Purpose          string
	PresidingOfficer string
	Actor            string
}

func (r ScheduleRequest) args() map[string]any {
	args := map[string]any{"case": r.Case, "location": r.Location}
	setTime(args, r.At, r.Date, r.Time)
	setIf(args, "purpose", r.Purpose)
	setIf(args, "presiding_officer", r.PresidingOfficer)
	setIf(args, "actor", r.Actor)
	return args
}

// RescheduleRequest moves a hearing. Empty fields keep their current value.
type RescheduleRequest struct {
	Hearing  string
	At       *time.Time
	Date     string
	Time     string
	Location string
	Actor    string
}

func (r RescheduleRequest) args() map[string]any {
	args := map[string]any{"hearing": r.Hearing}
	setTime(args, r.At, r.Date, r.Time)
	setIf(args, "location", r.Location)
	setIf(args, "actor", r.Actor)
	return args
}

func setTime(args map[string]any, at *time.Time, date, clock string) {
	if at != nil {
		args["at"] = at.Format(time.RFC3339)
		return
	}
	setIf(args, "date", date)
	setIf(args, "time", clock)
}

func setIf(args map[string]any, key, v string) {
	if v != "" {
		args[key] = v
	}
}
