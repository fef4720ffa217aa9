package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

type dispatchFixture struct {
	repo        *MockRepo
	prefs       *MockPrefs
	notifier    *MockNotifier
	audit       *MockAudit
	deadLetters *MockDeadLetters
	publisher   *MockPublisher
	dispatcher  *application.ReminderDispatcher
	hearing     *hearing.Hearing
	at          time.Time
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		repo:        NewMockRepo(),
		prefs:       NewMockPrefs(),
		notifier:    &MockNotifier{},
		audit:       &MockAudit{},
		deadLetters: &MockDeadLetters{},
		publisher:   &MockPublisher{},
		at:          t0.Add(24 * time.Hour),
	}
	ctx := context.Background()

	c, err := casefile.New(domain.MustCaseNumber("CR-7"), "Burglary on 5th", "", t0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.repo.CreateCase(ctx, c); err != nil {
		t.Fatal(err)
	}
	f.hearing, err = hearing.New(c.ID, hearing.Details{ScheduledAt: &f.at, Location: "Court 2"}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.repo.CreateHearing(ctx, f.hearing); err != nil {
		t.Fatal(err)
	}

	f.dispatcher = application.NewReminderDispatcher(f.repo, f.prefs, f.notifier, f.audit, f.deadLetters,
		application.WithClock(func() time.Time { return t0 }),
		application.WithLocation(time.UTC),
		application.WithPublisher(f.publisher),
	)
	f.dispatcher.SetRetryConfig(retry.Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	})
	return f
}

func (f *dispatchFixture) task(o reminder.OffsetType) reminder.Task {
	d, _ := o.Duration()
	return reminder.Task{HearingID: f.hearing.ID, Offset: o, FireAt: f.at.Add(-d)}
}

func TestReminderDispatcher_Fire(t *testing.T) {
	f := newDispatchFixture(t)

	if err := f.dispatcher.Fire(context.Background(), f.task(reminder.OffsetOneHour)); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.Sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(f.notifier.Sent))
	}
	n := f.notifier.Sent[0]
	if n.CaseNumber != "CR-7" || !strings.Contains(n.Body, "in 1 hour") || !strings.Contains(n.Body, "Court 2") {
		t.Errorf("notification = %+v", n)
	}
	if f.audit.Count(domain.ActionReminderSent) != 1 {
		t.Errorf("history = %v", f.audit.Actions)
	}
	if got := f.publisher.Types(); len(got) != 1 || got[0] != events.TypeReminderFired {
		t.Errorf("published %v", got)
	}
}

func TestReminderDispatcher_StoredPrecisionLossStillFires(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	// A row written before times were truncated, read back at microsecond precision.
	h := *f.hearing
	precise := f.at.Add(123456789 * time.Nanosecond)
	h.ScheduledAt = &precise
	if err := f.repo.UpdateHearing(ctx, &h); err != nil {
		t.Fatal(err)
	}
	d, _ := reminder.OffsetOneHour.Duration()
	task := reminder.Task{HearingID: h.ID, Offset: reminder.OffsetOneHour, FireAt: precise.Truncate(time.Microsecond).Add(-d)}

	if err := f.dispatcher.Fire(ctx, task); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.Sent) != 1 {
		t.Errorf("sent %d notifications, want 1", len(f.notifier.Sent))
	}
}

func TestReminderDispatcher_StaleSuppressed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *dispatchFixture)
	}{
		{
			name: "hearing deleted",
			mutate: func(t *testing.T, f *dispatchFixture) {
				f.repo.mu.Lock()
				delete(f.repo.hearings, f.hearing.ID)
				f.repo.mu.Unlock()
			},
		},
		{
			name: "hearing cancelled",
			mutate: func(t *testing.T, f *dispatchFixture) {
				h, _ := f.repo.GetHearing(context.Background(), f.hearing.ID)
				_ = h.Apply(hearing.EventCancel, t0)
				_ = f.repo.UpdateHearing(context.Background(), h)
			},
		},
		{
			name: "hearing completed",
			mutate: func(t *testing.T, f *dispatchFixture) {
				h, _ := f.repo.GetHearing(context.Background(), f.hearing.ID)
				_ = h.Apply(hearing.EventComplete, t0)
				_ = f.repo.UpdateHearing(context.Background(), h)
			},
		},
		{
			name: "hearing moved",
			mutate: func(t *testing.T, f *dispatchFixture) {
				h, _ := f.repo.GetHearing(context.Background(), f.hearing.ID)
				moved := f.at.Add(2 * time.Hour)
				if err := h.Reschedule(hearing.Details{ScheduledAt: &moved, Location: h.Location}, t0); err != nil {
					t.Fatal(err)
				}
				_ = f.repo.UpdateHearing(context.Background(), h)
			},
		},
		{
			name: "offset disabled",
			mutate: func(t *testing.T, f *dispatchFixture) {
				f.prefs.Prefs.OneHour = false
			},
		},
		{
			name: "reminders disabled",
			mutate: func(t *testing.T, f *dispatchFixture) {
				f.prefs.Prefs.Enabled = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture(t)
			tt.mutate(t, f)

			if err := f.dispatcher.Fire(context.Background(), f.task(reminder.OffsetOneHour)); err != nil {
				t.Fatalf("stale fire should succeed silently, got %v", err)
			}
			if f.notifier.Calls != 0 {
				t.Errorf("notifier called %d times", f.notifier.Calls)
			}
			if f.audit.Count(domain.ActionReminderSkipped) != 1 {
				t.Errorf("history = %v", f.audit.Actions)
			}
		})
	}
}

func TestReminderDispatcher_ApprovalDoesNotSuppress(t *testing.T) {
	f := newDispatchFixture(t)
	h, _ := f.repo.GetHearing(context.Background(), f.hearing.ID)
	_ = h.Decide(hearing.EventDecline, "conflict", t0)
	_ = f.repo.UpdateHearing(context.Background(), h)

	if err := f.dispatcher.Fire(context.Background(), f.task(reminder.OffsetAtTime)); err != nil {
		t.Fatal(err)
	}
	if len(f.notifier.Sent) != 1 {
		t.Error("declined hearing should still be reminded while Scheduled")
	}
}

func TestReminderDispatcher_RetriesThenSucceeds(t *testing.T) {
	f := newDispatchFixture(t)
	f.notifier.FailTimes = 2

	if err := f.dispatcher.Fire(context.Background(), f.task(reminder.OffsetFifteenMin)); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if f.notifier.Calls != 3 {
		t.Errorf("notifier called %d times, want 3", f.notifier.Calls)
	}
	if len(f.deadLetters.Letters) != 0 {
		t.Error("no dead letter expected after eventual success")
	}
}

func TestReminderDispatcher_RetriesExhausted(t *testing.T) {
	f := newDispatchFixture(t)
	f.notifier.FailTimes = 10

	err := f.dispatcher.Fire(context.Background(), f.task(reminder.OffsetOneDay))
	if !errors.Is(err, domain.ErrTransientDelivery) {
		t.Fatalf("expected ErrTransientDelivery, got %v", err)
	}
	var de *domain.DeliveryError
	if !errors.As(err, &de) || de.Offset != string(reminder.OffsetOneDay) {
		t.Errorf("DeliveryError = %+v", de)
	}
	if f.notifier.Calls != 3 {
		t.Errorf("notifier called %d times, want 3", f.notifier.Calls)
	}
	if f.audit.Count(domain.ActionReminderFailed) != 1 {
		t.Errorf("history = %v", f.audit.Actions)
	}
	if len(f.deadLetters.Letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(f.deadLetters.Letters))
	}
	dl := f.deadLetters.Letters[0]
	if dl.HearingID != f.hearing.ID || dl.Attempts != 3 || !strings.Contains(dl.Payload, "CR-7") {
		t.Errorf("dead letter = %+v", dl)
	}
	if len(f.publisher.Events) != 0 {
		t.Error("failed delivery must not publish ReminderFired")
	}
	if len(f.notifier.Forgotten) != 1 || f.notifier.Forgotten[0] != f.hearing.ID {
		t.Errorf("notifier not told to forget: %v", f.notifier.Forgotten)
	}
}

func TestReminderDispatcher_UnparsableTimeNotRetried(t *testing.T) {
	f := newDispatchFixture(t)
	h, _ := f.repo.GetHearing(context.Background(), f.hearing.ID)
	if err := h.Reschedule(hearing.Details{Date: "soon", Time: "later", Location: "Court 2"}, t0); err != nil {
		t.Fatal(err)
	}
	_ = f.repo.UpdateHearing(context.Background(), h)

	if err := f.dispatcher.Fire(context.Background(), f.task(reminder.OffsetOneHour)); err != nil {
		t.Fatalf("parse failure should not be returned for retry, got %v", err)
	}
	if f.notifier.Calls != 0 || f.audit.Count(domain.ActionReminderFailed) != 1 {
		t.Errorf("calls=%d history=%v", f.notifier.Calls, f.audit.Actions)
	}
}
