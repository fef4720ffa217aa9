// Package storetest is a shared behavioural suite for store.Repository implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// Run exercises repo. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	t.Run("CaseRoundTrip", func(t *testing.T) { testCaseRoundTrip(t, newRepo(t)) })
	t.Run("MissingRows", func(t *testing.T) { testMissingRows(t, newRepo(t)) })
	t.Run("Counts", func(t *testing.T) { testCounts(t, newRepo(t)) })
	t.Run("Hearings", func(t *testing.T) { testHearings(t, newRepo(t)) })
	t.Run("Resolutions", func(t *testing.T) { testResolutions(t, newRepo(t)) })
}

var base = time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)

func seedCase(t *testing.T, repo store.Repository, number string) *casefile.Case {
	t.Helper()
	c, err := casefile.New(domain.MustCaseNumber(number), "Burglary at "+number, "rear window forced", base)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateCase(context.Background(), c); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	return c
}

func testCaseRoundTrip(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	c := seedCase(t, repo, "RT-1")

	got, err := repo.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("case mismatch (-want +got):\n%s", diff)
	}

	if err := c.Assign("Det. Okafor", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := c.StartInvestigation(base.Add(2 * time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateCase(ctx, c); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	byNumber, err := repo.FindCaseByNumber(ctx, "RT-1")
	if err != nil {
		t.Fatalf("FindCaseByNumber: %v", err)
	}
	if byNumber.Status != casefile.StatusOngoing || !byNumber.InvestigationStarted || byNumber.AssignedOfficer != "Det. Okafor" {
		t.Errorf("update not persisted: %+v", byNumber)
	}

	if err := repo.SetCaseStatus(ctx, c.ID, casefile.StatusScheduled); err != nil {
		t.Fatalf("SetCaseStatus: %v", err)
	}
	got, _ = repo.GetCase(ctx, c.ID)
	if got.Status != casefile.StatusScheduled {
		t.Errorf("status = %s, want Scheduled", got.Status)
	}

	seedCase(t, repo, "RT-2")
	all, err := repo.ListCases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("ListCases returned %d cases", len(all))
	}
}

func testMissingRows(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	missing := domain.NewID()
	if _, err := repo.GetCase(ctx, missing); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("GetCase: expected ErrCaseNotFound, got %v", err)
	}
	if _, err := repo.Counts(ctx, missing); !errors.Is(err, domain.ErrCaseNotFound) || !errors.Is(err, domain.ErrDataConsistency) {
		t.Errorf("Counts: expected a missing report (ErrDataConsistency wrapping ErrCaseNotFound), got %v", err)
	}
	if err := repo.SetCaseStatus(ctx, missing, casefile.StatusResolved); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("SetCaseStatus: expected ErrCaseNotFound, got %v", err)
	}
	if _, err := repo.GetHearing(ctx, missing); !errors.Is(err, domain.ErrHearingNotFound) {
		t.Errorf("GetHearing: expected ErrHearingNotFound, got %v", err)
	}
}

func testCounts(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	c := seedCase(t, repo, "CNT-1")
	other := seedCase(t, repo, "CNT-2")

	got, err := repo.Counts(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(timeline.Counts{}, got); diff != "" {
		t.Errorf("fresh case counts (-want +got):\n%s", diff)
	}

	add := func(caseID string, kind casefile.ArtifactKind, name string) {
		a := &casefile.Artifact{ID: domain.NewID(), CaseID: caseID, Kind: kind, Name: name, CreatedAt: base}
		if err := repo.AddArtifact(ctx, a); err != nil {
			t.Fatalf("AddArtifact: %v", err)
		}
	}
	add(c.ID, casefile.KindWitness, "J. Doe")
	add(c.ID, casefile.KindWitness, "M. Roe")
	add(c.ID, casefile.KindSuspect, "Unknown male")
	add(other.ID, casefile.KindEvidence, "Crowbar")

	h, err := hearing.New(c.ID, hearing.Details{Date: "Apr 20, 2026", Time: "10:00 AM", Location: "Court 1"}, base)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateHearing(ctx, h); err != nil {
		t.Fatal(err)
	}

	c.AssignedOfficer = "Det. Okafor"
	c.Status = casefile.StatusAssigned
	if err := repo.UpdateCase(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err = repo.Counts(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := timeline.Counts{OfficerAssigned: true, Witnesses: 2, Suspects: 1, Hearings: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	witnesses, err := repo.ListArtifacts(ctx, c.ID, casefile.KindWitness)
	if err != nil {
		t.Fatal(err)
	}
	if len(witnesses) != 2 {
		t.Errorf("ListArtifacts returned %d witnesses", len(witnesses))
	}
}

func testHearings(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	c := seedCase(t, repo, "HR-1")

	at := time.Date(2026, time.May, 2, 13, 0, 0, 0, time.UTC)
	h, err := hearing.New(c.ID, hearing.Details{ScheduledAt: &at, Location: "Court 3", Purpose: "Arraignment"}, base)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateHearing(ctx, h); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetHearing(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("hearing mismatch (-want +got):\n%s", diff)
	}

	if err := h.Decide(hearing.EventDecline, "conflict", base); err != nil {
		t.Fatal(err)
	}
	h.ReminderScheduled = true
	if err := h.Apply(hearing.EventCancel, base); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateHearing(ctx, h); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetHearing(ctx, h.ID)
	if got.Status != hearing.StatusCancelled || got.Approval != hearing.ApprovalDeclined || got.DeclineReason != "conflict" || !got.ReminderScheduled {
		t.Errorf("update not persisted: %+v", got)
	}

	second, _ := hearing.New(c.ID, hearing.Details{Date: "May 09, 2026", Time: "09:00 AM", Location: "Court 3"}, base.Add(time.Minute))
	if err := repo.CreateHearing(ctx, second); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListHearings(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("ListHearings returned %d", len(list))
	}
	scheduled, err := repo.ListHearingsByStatus(ctx, hearing.StatusScheduled)
	if err != nil {
		t.Fatal(err)
	}
	if len(scheduled) != 1 || scheduled[0].ID != second.ID {
		t.Errorf("ListHearingsByStatus returned %v", scheduled)
	}

	missing := *second
	missing.ID = domain.NewID()
	if err := repo.UpdateHearing(ctx, &missing); !errors.Is(err, domain.ErrHearingNotFound) {
		t.Errorf("UpdateHearing missing: expected ErrHearingNotFound, got %v", err)
	}
}

func testResolutions(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	c := seedCase(t, repo, "RS-1")
	r, err := resolution.New(c.ID, resolution.TypeWithdrawn, "complainant withdrew", base)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateResolution(ctx, r); err != nil {
		t.Fatal(err)
	}
	list, err := repo.ListResolutions(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("ListResolutions returned %d", len(list))
	}
	if diff := cmp.Diff(r, list[0]); diff != "" {
		t.Errorf("resolution mismatch (-want +got):\n%s", diff)
	}
	counts, _ := repo.Counts(ctx, c.ID)
	if counts.Resolutions != 1 {
		t.Errorf("counts.Resolutions = %d", counts.Resolutions)
	}
	if counts.LatestResolutionType == nil || *counts.LatestResolutionType != resolution.TypeWithdrawn {
		t.Errorf("counts.LatestResolutionType = %v, want Withdrawn", counts.LatestResolutionType)
	}

	later, err := resolution.New(c.ID, resolution.TypeSettled, "", base.Add(90*time.Minute+500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateResolution(ctx, later); err != nil {
		t.Fatal(err)
	}
	counts, err = repo.Counts(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Resolutions != 2 || counts.LatestResolutionType == nil || *counts.LatestResolutionType != resolution.TypeSettled {
		t.Errorf("after second resolution: %d, %v; want 2, Settled", counts.Resolutions, counts.LatestResolutionType)
	}
	if err := counts.Validate(); err != nil {
		t.Errorf("stored counts invalid: %v", err)
	}

	fresh := seedCase(t, repo, "RS-2")
	if counts, _ := repo.Counts(ctx, fresh.ID); counts.LatestResolutionType != nil {
		t.Errorf("case without resolutions has type %v", *counts.LatestResolutionType)
	}
}
