package domain

// AuditRepository handles persistence of history events.
type AuditRepository interface {
	RecordEvent(event Event) error
	LoadEvents() ([]Event, error)
}
