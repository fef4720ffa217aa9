package application_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/events"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/messaging"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// MockRepo is an in-memory store.Repository.
type MockRepo struct {
	mu          sync.Mutex
	cases       map[string]*casefile.Case
	artifacts   []*casefile.Artifact
	hearings    map[string]*hearing.Hearing
	resolutions []*resolution.Resolution
	SaveError   error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{cases: map[string]*casefile.Case{}, hearings: map[string]*hearing.Hearing{}}
}

func (m *MockRepo) CreateCase(_ context.Context, c *casefile.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *MockRepo) GetCase(_ context.Context, id string) (*casefile.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockRepo) FindCaseByNumber(_ context.Context, number string) (*casefile.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cases {
		if c.Number == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, number)
}

func (m *MockRepo) ListCases(_ context.Context) ([]*casefile.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*casefile.Case
	for _, c := range m.cases {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *MockRepo) UpdateCase(_ context.Context, c *casefile.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	if _, ok := m.cases[c.ID]; !ok {
		return domain.ErrCaseNotFound
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *MockRepo) SetCaseStatus(_ context.Context, caseID string, status casefile.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	c, ok := m.cases[caseID]
	if !ok {
		return domain.ErrCaseNotFound
	}
	c.Status = status
	return nil
}

func (m *MockRepo) AddArtifact(_ context.Context, a *casefile.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.artifacts = append(m.artifacts, a)
	return nil
}

func (m *MockRepo) ListArtifacts(_ context.Context, caseID string, kind casefile.ArtifactKind) ([]*casefile.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*casefile.Artifact
	for _, a := range m.artifacts {
		if a.CaseID == caseID && a.Kind == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockRepo) Counts(_ context.Context, caseID string) (timeline.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return timeline.Counts{}, domain.MissingReport(caseID, domain.ErrCaseNotFound)
	}
	counts := timeline.Counts{OfficerAssigned: c.HasOfficer()}
	for _, a := range m.artifacts {
		if a.CaseID != caseID {
			continue
		}
		switch a.Kind {
		case casefile.KindWitness:
			counts.Witnesses++
		case casefile.KindSuspect:
			counts.Suspects++
		case casefile.KindEvidence:
			counts.Evidence++
		}
	}
	for _, h := range m.hearings {
		if h.CaseID == caseID {
			counts.Hearings++
		}
	}
	for _, r := range m.resolutions {
		if r.CaseID == caseID {
			counts.Resolutions++
			typ := r.Type
			counts.LatestResolutionType = &typ
		}
	}
	return counts, nil
}

func (m *MockRepo) CreateHearing(_ context.Context, h *hearing.Hearing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	cp := *h
	m.hearings[h.ID] = &cp
	return nil
}

func (m *MockRepo) GetHearing(_ context.Context, id string) (*hearing.Hearing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hearings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHearingNotFound, id)
	}
	cp := *h
	return &cp, nil
}

func (m *MockRepo) UpdateHearing(_ context.Context, h *hearing.Hearing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	if _, ok := m.hearings[h.ID]; !ok {
		return domain.ErrHearingNotFound
	}
	cp := *h
	m.hearings[h.ID] = &cp
	return nil
}

func (m *MockRepo) ListHearings(_ context.Context, caseID string) ([]*hearing.Hearing, error) {
	return m.filterHearings(func(h *hearing.Hearing) bool { return h.CaseID == caseID }), nil
}

func (m *MockRepo) ListHearingsByStatus(_ context.Context, status hearing.Status) ([]*hearing.Hearing, error) {
	return m.filterHearings(func(h *hearing.Hearing) bool { return h.Status == status }), nil
}

func (m *MockRepo) filterHearings(keep func(*hearing.Hearing) bool) []*hearing.Hearing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*hearing.Hearing
	for _, h := range m.hearings {
		if keep(h) {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MockRepo) CreateResolution(_ context.Context, r *resolution.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.resolutions = append(m.resolutions, r)
	return nil
}

func (m *MockRepo) ListResolutions(_ context.Context, caseID string) ([]*resolution.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*resolution.Resolution
	for _, r := range m.resolutions {
		if r.CaseID == caseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRepo) Close() error { return nil }

// GatedRepo pauses the next GetHearing once Hold has been called, until Release.
type GatedRepo struct {
	*MockRepo
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func NewGatedRepo(repo *MockRepo) *GatedRepo {
	return &GatedRepo{MockRepo: repo}
}

// Hold makes the next GetHearing block. The returned channel closes once it has.
func (g *GatedRepo) Hold() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
	return g.entered
}

func (g *GatedRepo) Release() { close(g.release) }

func (g *GatedRepo) GetHearing(ctx context.Context, id string) (*hearing.Hearing, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if armed {
		close(entered)
		<-release
	}
	return g.MockRepo.GetHearing(ctx, id)
}

// MockQueue is a reminder.WorkQueue that only records registrations.
type MockQueue struct {
	mu          sync.Mutex
	tasks       map[string]reminder.Task
	delays      map[string]time.Duration
	Registers   int
	RegisterErr error
	// FailAfter lets that many registrations succeed before RegisterErr applies.
	FailAfter int
}

func NewMockQueue() *MockQueue {
	return &MockQueue{tasks: map[string]reminder.Task{}, delays: map[string]time.Duration{}}
}

func (q *MockQueue) Register(_ context.Context, key reminder.Key, delay time.Duration, task reminder.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.RegisterErr != nil && q.Registers >= q.FailAfter {
		return q.RegisterErr
	}
	q.Registers++
	q.tasks[key.String()] = task
	q.delays[key.String()] = delay
	return nil
}

func (q *MockQueue) CancelByTag(_ context.Context, hearingID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for k, t := range q.tasks {
		if t.HearingID == hearingID {
			delete(q.tasks, k)
			delete(q.delays, k)
			n++
		}
	}
	return n, nil
}

func (q *MockQueue) Pending(hearingID string) []reminder.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []reminder.Task
	for _, o := range reminder.AllOffsets() {
		if t, ok := q.tasks[reminder.Key{HearingID: hearingID, Offset: o}.String()]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (q *MockQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *MockQueue) Delay(hearingID string, o reminder.OffsetType) (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.delays[reminder.Key{HearingID: hearingID, Offset: o}.String()]
	return d, ok
}

// MockPrefs is an in-memory PreferencesRepository.
type MockPrefs struct {
	mu      sync.Mutex
	Prefs   reminder.Preferences
	LoadErr error
	Loads   int
}

func NewMockPrefs() *MockPrefs { return &MockPrefs{Prefs: reminder.DefaultPreferences()} }

func (p *MockPrefs) LoadPreferences() (reminder.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Loads++
	return p.Prefs, p.LoadErr
}

func (p *MockPrefs) SavePreferences(prefs reminder.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Prefs = prefs
	return nil
}

func (p *MockPrefs) ResetPreferences() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Prefs = reminder.DefaultPreferences()
	return nil
}

// MockNotifier fails the first FailTimes calls.
type MockNotifier struct {
	mu        sync.Mutex
	FailTimes int
	Calls     int
	Sent      []reminder.Notification
	Forgotten []string
}

var errNotifierDown = errors.New("notifier unavailable")

func (n *MockNotifier) Forget(msg reminder.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Forgotten = append(n.Forgotten, msg.HearingID)
}

func (n *MockNotifier) Notify(_ context.Context, msg reminder.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls++
	if n.Calls <= n.FailTimes {
		return errNotifierDown
	}
	n.Sent = append(n.Sent, msg)
	return nil
}

// MockAudit records history actions in memory.
type MockAudit struct {
	mu      sync.Mutex
	Actions []string
	Meta    []map[string]interface{}
}

func (a *MockAudit) Log(action, _ string, metadata map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Actions = append(a.Actions, action)
	a.Meta = append(a.Meta, metadata)
	return nil
}

func (a *MockAudit) Count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, x := range a.Actions {
		if x == action {
			n++
		}
	}
	return n
}

// MockDeadLetters collects dead letters.
type MockDeadLetters struct {
	Letters []messaging.DeadLetter
}

func (d *MockDeadLetters) Append(dl messaging.DeadLetter) error {
	d.Letters = append(d.Letters, dl)
	return nil
}

// MockPublisher collects published domain events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.DomainEvent
}

func (p *MockPublisher) Publish(_ context.Context, e events.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
}

// Types returns the published event types in order.
func (p *MockPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.EventType())
	}
	return out
}

// MockAuditRepo is an in-memory domain.AuditRepository.
type MockAuditRepo struct {
	Events    []domain.Event
	SaveError error
	LoadError error
}

func (r *MockAuditRepo) RecordEvent(e domain.Event) error {
	if r.SaveError != nil {
		return r.SaveError
	}
	r.Events = append(r.Events, e)
	return nil
}

func (r *MockAuditRepo) LoadEvents() ([]domain.Event, error) {
	return r.Events, r.LoadError
}

// fixedClock returns a controllable now func.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
