// Package storage keeps workspace files (preferences, history, channel config)
// under the .blotter directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/reminder"
)

const (
	BlotterDir     = ".blotter"
	ConfigFile     = "config.yaml"
	RemindersFile  = "reminders.yaml"
	EventsFile     = "events.jsonl"
	DeadLetterFile = "deadletters.jsonl"
	MessagingFile  = "messaging.yaml"
	DatabaseFile   = "blotter.db"
)

// FilesystemRepository stores workspace files under <root>/.blotter.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

var (
	_ domain.WorkspaceRepository = (*FilesystemRepository)(nil)
	_ reminder.PreferencesStore  = (*FilesystemRepository)(nil)
)

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// ResolvePath maps filename to a direct child of .blotter, rejecting traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, BlotterDir)
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}
	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	if err := os.MkdirAll(filepath.Join(r.root, BlotterDir), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", BlotterDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(r.root, BlotterDir))
	return err == nil
}

// SavePreferences writes reminders.yaml.
func (r *FilesystemRepository) SavePreferences(p reminder.Preferences) error {
	path, err := r.ResolvePath(RemindersFile)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder preferences: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// LoadPreferences reads reminders.yaml. A missing file yields the defaults;
// keys absent from the file keep their default value.
func (r *FilesystemRepository) LoadPreferences() (reminder.Preferences, error) {
	retryer := retry.New[reminder.Preferences](r.retryConfig)

	return retryer.Do(context.Background(), func(ctx context.Context) (reminder.Preferences, error) {
		prefs := reminder.DefaultPreferences()

		path, err := r.ResolvePath(RemindersFile)
		if err != nil {
			return prefs, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return prefs, nil
		}
		if err != nil {
			return prefs, fmt.Errorf("failed to read reminder preferences: %w", err)
		}

		if err := yaml.Unmarshal(data, &prefs); err != nil {
			return reminder.DefaultPreferences(), fmt.Errorf("failed to unmarshal reminder preferences: %w", err)
		}
		return prefs, nil
	})
}

// ResetPreferences removes reminders.yaml so the defaults apply again.
func (r *FilesystemRepository) ResetPreferences() error {
	path, err := r.ResolvePath(RemindersFile)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove reminder preferences: %w", err)
	}
	return nil
}
