package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// CaseService handles intake, assignment and the investigation of a case.
type CaseService struct {
	serviceOptions
	repo store.Repository
}

func NewCaseService(repo store.Repository, opts ...Option) *CaseService {
	return &CaseService{serviceOptions: newServiceOptions(opts), repo: repo}
}

// Resolve finds a case by ID or case number.
func (s *CaseService) Resolve(ctx context.Context, ref string) (*casefile.Case, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", domain.ErrCaseNotFound)
	}
	c, err := s.repo.GetCase(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrCaseNotFound) {
		return nil, err
	}
	number, nerr := domain.NewCaseNumber(ref)
	if nerr != nil {
		return nil, err
	}
	return s.repo.FindCaseByNumber(ctx, number.String())
}

// List returns every case.
func (s *CaseService) List(ctx context.Context) ([]*casefile.Case, error) {
	return s.repo.ListCases(ctx)
}

// Create opens a new Pending case.
func (s *CaseService) Create(ctx context.Context, number, title, description, actor string) (*casefile.Case, error) {
	n, err := domain.NewCaseNumber(number)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindCaseByNumber(ctx, n.String()); err == nil {
		return nil, fmt.Errorf("case %s already exists", n)
	} else if !errors.Is(err, domain.ErrCaseNotFound) {
		return nil, err
	}

	c, err := casefile.New(n, title, description, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("create case %s: %w", n, err)
	}
	s.logger.Info("case created", "case_id", c.ID, "number", c.Number)
	s.publish(ctx, &events.CaseCreated{
		BaseEvent: events.NewBase(events.TypeCaseCreated, events.AggregateCase, c.ID, actor, c.CreatedAt),
		Number:    c.Number,
		Title:     c.Title,
	})
	return c, nil
}

// Assign sets the officer on a case. Reassignment keeps the current status.
func (s *CaseService) Assign(ctx context.Context, ref, officer, actor string) (*casefile.Case, error) {
	c, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if err := c.Assign(officer, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("assign officer: %w", err)
	}
	s.publish(ctx, &events.OfficerAssigned{
		BaseEvent: events.NewBase(events.TypeOfficerAssigned, events.AggregateCase, c.ID, actor, c.UpdatedAt),
		Officer:   c.AssignedOfficer,
	})
	s.statusChanged(ctx, c, from, actor)
	return c, nil
}

// StartInvestigation moves an Assigned case to Ongoing.
func (s *CaseService) StartInvestigation(ctx context.Context, ref, actor string) (*casefile.Case, error) {
	c, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if err := c.StartInvestigation(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("start investigation: %w", err)
	}
	s.publish(ctx, &events.InvestigationStarted{
		BaseEvent: events.NewBase(events.TypeInvestigationStarted, events.AggregateCase, c.ID, actor, c.UpdatedAt),
	})
	s.statusChanged(ctx, c, from, actor)
	return c, nil
}

// AddArtifact attaches a witness, suspect or evidence record. The case must
// be under investigation.
func (s *CaseService) AddArtifact(ctx context.Context, ref string, kind casefile.ArtifactKind, name, details, actor string) (*casefile.Artifact, error) {
	c, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !c.InvestigationStarted {
		return nil, fmt.Errorf("case %s: %s: %w", c.Number, gate.ReasonNotStarted, domain.ErrInvalidTransition)
	}
	if c.Status.IsFinal() {
		return nil, &domain.TransitionError{Entity: "case", ID: c.Number, From: string(c.Status), Event: "add " + string(kind)}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s name is required", kind)
	}

	a := &casefile.Artifact{
		ID:        domain.NewID(),
		CaseID:    c.ID,
		Kind:      kind,
		Name:      name,
		Details:   details,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddArtifact(ctx, a); err != nil {
		return nil, fmt.Errorf("add %s: %w", kind, err)
	}
	s.publish(ctx, &events.ArtifactAdded{
		BaseEvent:  events.NewBase(events.TypeArtifactAdded, events.AggregateCase, c.ID, actor, a.CreatedAt),
		ArtifactID: a.ID,
		Kind:       string(kind),
		Name:       a.Name,
	})
	return a, nil
}

// Artifacts lists the records of one kind.
func (s *CaseService) Artifacts(ctx context.Context, ref string, kind casefile.ArtifactKind) ([]*casefile.Artifact, error) {
	c, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.ListArtifacts(ctx, c.ID, kind)
}

// Timeline computes the seven stages from the stored counts.
// A case that cannot be found is a missing report: the error matches both
// domain.ErrDataConsistency and domain.ErrCaseNotFound.
func (s *CaseService) Timeline(ctx context.Context, ref string) (*casefile.Case, []timeline.Stage, error) {
	c, err := s.Resolve(ctx, ref)
	if errors.Is(err, domain.ErrCaseNotFound) {
		return nil, nil, domain.MissingReport(ref, err)
	}
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.repo.Counts(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := counts.Validate(); err != nil {
		return nil, nil, err
	}
	return c, timeline.ComputeStages(counts), nil
}

// Decision evaluates every stage action for role on the case.
func (s *CaseService) Decision(ctx context.Context, ref string, role gate.Role) (*casefile.Case, gate.Decision, error) {
	c, stages, err := s.Timeline(ctx, ref)
	if err != nil {
		return nil, gate.Decision{}, err
	}
	d, err := gate.Evaluate(stages, c.InvestigationStarted, role)
	if err != nil {
		return nil, gate.Decision{}, err
	}
	return c, d, nil
}

// NextAction returns the single action role should take next, or nil.
func (s *CaseService) NextAction(ctx context.Context, ref string, role gate.Role) (*gate.Descriptor, error) {
	_, d, err := s.Decision(ctx, ref, role)
	if err != nil {
		return nil, err
	}
	return d.Next, nil
}

func (s *CaseService) statusChanged(ctx context.Context, c *casefile.Case, from casefile.Status, actor string) {
	if from == c.Status {
		return
	}
	s.publish(ctx, &events.CaseStatusChanged{
		BaseEvent: events.NewBase(events.TypeCaseStatusChanged, events.AggregateCase, c.ID, actor, c.UpdatedAt),
		From:      string(from),
		To:        string(c.Status),
	})
}
