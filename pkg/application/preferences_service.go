package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

// PreferencesRepository persists reminder preferences and can drop them.
type PreferencesRepository interface {
	reminder.PreferencesStore
	ResetPreferences() error
}

// PreferencesService reads and edits the reminder toggles.
type PreferencesService struct {
	repo  PreferencesRepository
	audit domain.AuditLogger
}

func NewPreferencesService(repo PreferencesRepository, audit domain.AuditLogger) *PreferencesService {
	return &PreferencesService{repo: repo, audit: audit}
}

func (s *PreferencesService) Get() (reminder.Preferences, error) {
	return s.repo.LoadPreferences()
}

// Set flips one toggle. key is "enabled", "sound", "vibration" or an offset name.
func (s *PreferencesService) Set(key string, on bool, actor string) (reminder.Preferences, error) {
	p, err := s.repo.LoadPreferences()
	if err != nil {
		return p, err
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "enabled":
		p.Enabled = on
	case "sound":
		p.Sound = on
	case "vibration":
		p.Vibration = on
	default:
		o, err := reminder.ParseOffset(key)
		if err != nil {
			return p, err
		}
		if err := p.Set(o, on); err != nil {
			return p, err
		}
	}
	if err := s.repo.SavePreferences(p); err != nil {
		return p, fmt.Errorf("save reminder preferences: %w", err)
	}
	s.log(actor, map[string]interface{}{"key": key, "value": on})
	return p, nil
}

// Reset restores the defaults.
func (s *PreferencesService) Reset(actor string) (reminder.Preferences, error) {
	if err := s.repo.ResetPreferences(); err != nil {
		return reminder.Preferences{}, err
	}
	s.log(actor, map[string]interface{}{"reset": true})
	return reminder.DefaultPreferences(), nil
}

func (s *PreferencesService) log(actor string, meta map[string]interface{}) {
	if s.audit != nil {
		_ = s.audit.Log("reminder.preferences_changed", actor, meta)
	}
}
