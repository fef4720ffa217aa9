package domain

// WorkspaceRepository manages the .blotter/ directory of a workspace.
type WorkspaceRepository interface {
	AuditRepository
	Initialize() error
	IsInitialized() bool
	ResolvePath(filename string) (string, error)
}
