package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/storage"
)

var (
	// ErrNotInitialized is returned when no .blotter directory exists.
	ErrNotInitialized = errors.New("no .blotter directory")
	// ErrAborted is returned when the user declines a confirmation prompt.
	ErrAborted = errors.New("aborted by user")
)

// Confirmer asks the user to approve a destructive step.
type Confirmer func(in io.Reader, out io.Writer, prompt string) (bool, error)

type confirmerKey struct{}

// WithConfirmer returns a context whose commands ask c instead of prompting on stdin.
func WithConfirmer(ctx context.Context, c Confirmer) context.Context {
	return context.WithValue(ctx, confirmerKey{}, c)
}

func confirmerFrom(ctx context.Context) Confirmer {
	if ctx != nil {
		if c, ok := ctx.Value(confirmerKey{}).(Confirmer); ok && c != nil {
			return c
		}
	}
	return promptYesNo
}

func promptYesNo(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// confirmed returns ErrAborted unless --yes was given or the user agrees.
func confirmed(cmd *cobra.Command, prompt string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	if yes {
		return nil
	}
	ok, err := confirmerFrom(cmd.Context())(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

// loadServices wires the application for the current workspace. Callers must
// Close the result.
func loadServices(ctx context.Context, opts ...wiring.BuildOption) (*wiring.AppServices, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	if !storage.NewFilesystemRepository(root).IsInitialized() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotInitialized)
	}
	services, err := wiring.BuildAppServices(ctx, root, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}
	return services, nil
}

// withServices runs fn against freshly loaded services and maps its error.
// Reminders planned here are delivered by serve, never by this process.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *wiring.AppServices) error) error {
	return runWithServices(cmd, []wiring.BuildOption{wiring.WithPlanOnly()}, fn)
}

func runWithServices(cmd *cobra.Command, opts []wiring.BuildOption, fn func(ctx context.Context, s *wiring.AppServices) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	services, err := loadServices(ctx, opts...)
	if err != nil {
		return MapError(err)
	}
	runErr := fn(ctx, services)
	if err := services.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close workspace: %w", err)
	}
	return MapError(runErr)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// actor is recorded in history for mutating commands.
func actor() string {
	if a := os.Getenv("BLOTTER_ACTOR"); a != "" {
		return a
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}
