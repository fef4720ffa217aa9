package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

func TestHearingService_Schedule(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-20")
	ctx := context.Background()

	at := t0.Add(72 * time.Hour)
	res, err := hs.hearings.Schedule(ctx, c.Number, hearing.Details{ScheduledAt: &at, Location: "Court 1", Purpose: "arraignment"}, "Sgt. Miller")
	if err != nil {
		t.Fatal(err)
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning %q", res.Warning)
	}
	if len(res.Plan.Tasks) != 4 || hs.queue.Len() != 4 {
		t.Errorf("planned %d, queued %d; want 4", len(res.Plan.Tasks), hs.queue.Len())
	}

	stored, err := hs.hearings.Get(ctx, res.Hearing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.ReminderScheduled || stored.Approval != hearing.ApprovalPending {
		t.Errorf("stored hearing = %+v", stored)
	}
	got, _ := hs.cases.Resolve(ctx, c.ID)
	if got.Status != casefile.StatusScheduled {
		t.Errorf("case status = %s, want Scheduled", got.Status)
	}

	// A second hearing on an already scheduled case is allowed.
	if _, err := hs.hearings.Schedule(ctx, c.Number, hearing.Details{ScheduledAt: &at, Location: "Court 3"}, "Sgt. Miller"); err != nil {
		t.Errorf("second hearing: %v", err)
	}
}

func TestHearingService_ScheduleRequiresInvestigation(t *testing.T) {
	hs := newHarness(t)
	ctx := context.Background()
	if _, err := hs.cases.Create(ctx, "CR-21", "Theft", "", "desk"); err != nil {
		t.Fatal(err)
	}
	at := t0.Add(time.Hour)
	_, err := hs.hearings.Schedule(ctx, "CR-21", hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "desk")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if hs.queue.Len() != 0 {
		t.Error("no reminders expected")
	}
}

func TestHearingService_ScheduleUnparsableWarns(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-22")

	res, err := hs.hearings.Schedule(context.Background(), c.ID, hearing.Details{Date: "next tuesday", Time: "after lunch", Location: "Court 1"}, "Sgt. Miller")
	if err != nil {
		t.Fatalf("unparsable time must still save the hearing, got %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a warning")
	}
	if hs.queue.Len() != 0 || res.Hearing.ReminderScheduled {
		t.Error("no reminders expected for an unparsable time")
	}
	if _, err := hs.hearings.Get(context.Background(), res.Hearing.ID); err != nil {
		t.Errorf("hearing not saved: %v", err)
	}
}

func TestHearingService_Reschedule(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-23")
	ctx := context.Background()

	res, err := hs.hearings.Schedule(ctx, c.ID, hearing.Details{Date: "2026-03-12", Time: "10:00", Location: "Court 1"}, "x")
	if err != nil {
		t.Fatal(err)
	}

	moved, err := hs.hearings.Reschedule(ctx, res.Hearing.ID, hearing.Details{Time: "14:30"}, "x")
	if err != nil {
		t.Fatal(err)
	}
	if moved.Hearing.Date != "2026-03-12" || moved.Hearing.Location != "Court 1" {
		t.Errorf("unchanged fields lost: %+v", moved.Hearing)
	}
	want := time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC)
	for _, task := range hs.reminders.Pending(res.Hearing.ID) {
		d, _ := task.Offset.Duration()
		if !task.FireAt.Equal(want.Add(-d)) {
			t.Errorf("%s fires at %v, want %v", task.Offset, task.FireAt, want.Add(-d))
		}
	}
	if hs.queue.Len() != 4 {
		t.Errorf("queue holds %d", hs.queue.Len())
	}
}

func TestHearingService_CancelAndComplete(t *testing.T) {
	tests := []struct {
		name   string
		finish func(hs *harness, id string) (*hearing.Hearing, error)
		want   hearing.Status
	}{
		{
			name: "cancel",
			finish: func(hs *harness, id string) (*hearing.Hearing, error) {
				return hs.hearings.Cancel(context.Background(), id, "judge unavailable", "x")
			},
			want: hearing.StatusCancelled,
		},
		{
			name: "complete",
			finish: func(hs *harness, id string) (*hearing.Hearing, error) {
				return hs.hearings.Complete(context.Background(), id, "x")
			},
			want: hearing.StatusCompleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := newHarness(t)
			c := openCase(t, hs, "CR-24")
			at := t0.Add(48 * time.Hour)
			res, err := hs.hearings.Schedule(context.Background(), c.ID, hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "x")
			if err != nil {
				t.Fatal(err)
			}

			h, err := tt.finish(hs, res.Hearing.ID)
			if err != nil {
				t.Fatal(err)
			}
			if h.Status != tt.want || h.ReminderScheduled {
				t.Errorf("hearing = %+v", h)
			}
			if hs.queue.Len() != 0 {
				t.Errorf("%d reminders left", hs.queue.Len())
			}

			if _, err := tt.finish(hs, res.Hearing.ID); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("second %s: expected ErrInvalidTransition, got %v", tt.name, err)
			}
		})
	}
}

func TestHearingService_Approval(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-25")
	ctx := context.Background()
	at := t0.Add(48 * time.Hour)

	first, _ := hs.hearings.Schedule(ctx, c.ID, hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "x")
	second, _ := hs.hearings.Schedule(ctx, c.ID, hearing.Details{ScheduledAt: &at, Location: "Court 2"}, "x")

	pending, err := hs.hearings.PendingApprovals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if _, err := hs.hearings.Approve(ctx, first.Hearing.ID, "clerk"); err != nil {
		t.Fatal(err)
	}
	declined, err := hs.hearings.Decline(ctx, second.Hearing.ID, "room booked", "clerk")
	if err != nil {
		t.Fatal(err)
	}
	if declined.Approval != hearing.ApprovalDeclined || declined.DeclineReason != "room booked" {
		t.Errorf("declined = %+v", declined)
	}
	if _, err := hs.hearings.Approve(ctx, second.Hearing.ID, "clerk"); err == nil {
		t.Error("a decided hearing cannot be approved")
	}

	pending, _ = hs.hearings.PendingApprovals(ctx)
	if len(pending) != 0 {
		t.Errorf("pending after decisions = %d", len(pending))
	}
	if n := len(hs.reminders.Pending(second.Hearing.ID)); n != len(reminder.AllOffsets()) {
		t.Errorf("decline removed reminders: %d left", n)
	}
}

func TestHearingService_List(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-26")
	at := t0.Add(48 * time.Hour)
	_, _ = hs.hearings.Schedule(context.Background(), c.ID, hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "x")

	list, err := hs.hearings.List(context.Background(), "CR-26")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d", len(list))
	}
	if _, err := hs.hearings.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrHearingNotFound) {
		t.Errorf("expected ErrHearingNotFound, got %v", err)
	}
}

func TestHearingService_CancelWaitsForReschedule(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-40")
	ctx := context.Background()

	gated := NewGatedRepo(hs.repo)
	opts := []application.Option{application.WithClock(hs.clock.Now), application.WithLocation(time.UTC)}
	svc := application.NewHearingService(gated, hs.cases, hs.reminders, opts...)

	at := t0.Add(72 * time.Hour)
	res, err := svc.Schedule(ctx, c.Number, hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "Sgt. Miller")
	if err != nil {
		t.Fatal(err)
	}
	id := res.Hearing.ID

	entered := gated.Hold()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		later := t0.Add(96 * time.Hour)
		_, _ = svc.Reschedule(ctx, id, hearing.Details{ScheduledAt: &later}, "Sgt. Miller")
	}()
	<-entered

	cancelled := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := svc.Cancel(ctx, id, "witness unavailable", "Sgt. Miller")
		cancelled <- err
	}()
	select {
	case err := <-cancelled:
		t.Fatalf("cancel finished while reschedule held the hearing: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	gated.Release()
	wg.Wait()
	if err := <-cancelled; err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stored, err := hs.repo.GetHearing(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != hearing.StatusCancelled {
		t.Errorf("status = %s, want Cancelled", stored.Status)
	}
	if n := len(hs.reminders.Pending(id)); n != 0 {
		t.Errorf("%d reminders pending after cancel, want 0", n)
	}
}

func TestHearingService_DecisionKeepsCancellation(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-41")
	ctx := context.Background()

	gated := NewGatedRepo(hs.repo)
	svc := application.NewHearingService(gated, hs.cases, hs.reminders, application.WithClock(hs.clock.Now))

	at := t0.Add(72 * time.Hour)
	res, err := svc.Schedule(ctx, c.Number, hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "Sgt. Miller")
	if err != nil {
		t.Fatal(err)
	}
	id := res.Hearing.ID

	entered := gated.Hold()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Cancel(ctx, id, "", "Sgt. Miller")
	}()
	<-entered

	approved := make(chan error, 1)
	go func() {
		_, err := svc.Approve(ctx, id, "Judge Reyes")
		approved <- err
	}()
	gated.Release()
	<-done
	if err := <-approved; err != nil {
		t.Fatalf("approve: %v", err)
	}

	stored, _ := hs.repo.GetHearing(ctx, id)
	if stored.Status != hearing.StatusCancelled || stored.Approval != hearing.ApprovalApproved {
		t.Errorf("stored = %s/%s, want Cancelled/Approved", stored.Status, stored.Approval)
	}
}

func TestHearingService_SaveErrorSurfaces(t *testing.T) {
	hs := newHarness(t)
	c := openCase(t, hs, "CR-42")
	ctx := context.Background()

	at := t0.Add(72 * time.Hour)
	res, err := hs.hearings.Schedule(ctx, c.Number, hearing.Details{ScheduledAt: &at, Location: "Court 1"}, "Sgt. Miller")
	if err != nil {
		t.Fatal(err)
	}

	hs.queue.RegisterErr = errors.New("queue closed")
	hs.queue.FailAfter = hs.queue.Registers
	saveErr := errors.New("disk full")
	hs.repo.SaveError = saveErr
	later := t0.Add(96 * time.Hour)
	_, err = hs.hearings.Reschedule(ctx, res.Hearing.ID, hearing.Details{ScheduledAt: &later}, "Sgt. Miller")
	if !errors.Is(err, saveErr) {
		t.Errorf("expected the save error to surface, got %v", err)
	}
}
