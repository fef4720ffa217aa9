package application

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/blotter/pkg/domain"
)

// AuditService maintains the hash-chained case and reminder history.
type AuditService struct {
	serviceOptions
	repo domain.AuditRepository
	mu   sync.Mutex
}

var _ domain.AuditLogger = (*AuditService)(nil)

func NewAuditService(repo domain.AuditRepository, opts ...Option) *AuditService {
	return &AuditService{serviceOptions: newServiceOptions(opts), repo: repo}
}

// Log appends an entry chained to the previous one. Calls are serialized so
// concurrent reminder fires cannot fork the chain.
func (s *AuditService) Log(action string, actor string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, _ := s.repo.LoadEvents()
	prevHash := ""
	if len(events) > 0 {
		prevHash = events[len(events)-1].Hash
	}

	event := domain.Event{
		ID:        domain.NewID(),
		Timestamp: s.now(),
		Action:    action,
		Actor:     actor,
		Metadata:  metadata,
		PrevHash:  prevHash,
	}
	event.Hash = event.CalculateHash()

	return s.repo.RecordEvent(event)
}

func (s *AuditService) GetTimeline() ([]domain.Event, error) {
	return s.repo.LoadEvents()
}

// ReminderHistory returns reminder entries, optionally limited to one hearing.
func (s *AuditService) ReminderHistory(hearingID string) ([]domain.Event, error) {
	all, err := s.repo.LoadEvents()
	if err != nil {
		return nil, err
	}
	var out []domain.Event
	for _, e := range all {
		if !isReminderAction(e.Action) {
			continue
		}
		if hearingID != "" && e.Metadata["hearing_id"] != hearingID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func isReminderAction(action string) bool {
	switch action {
	case domain.ActionReminderScheduled, domain.ActionReminderCancelled, domain.ActionReminderRescheduled,
		domain.ActionReminderSent, domain.ActionReminderSkipped, domain.ActionReminderFailed:
		return true
	}
	return false
}

// VerifyIntegrity walks the chain and reports every broken link or altered entry.
func (s *AuditService) VerifyIntegrity() ([]string, error) {
	events, err := s.repo.LoadEvents()
	if err != nil {
		return nil, err
	}

	var violations []string
	lastHash := ""
	for i, e := range events {
		if e.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("entry %d (%s): previous hash mismatch, chain broken", i, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("entry %d (%s): content hash mismatch, entry altered", i, e.ID))
		}
		lastHash = e.Hash
	}
	return violations, nil
}
