package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/config"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/storage"
)

var (
	initTimezone string
	initDriver   string
	initDSN      string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a blotter workspace in the project directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return fmt.Errorf("resolve project path: %w", err)
		}
		repo := storage.NewFilesystemRepository(root)
		if err := repo.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}

		path, err := repo.ResolvePath(storage.ConfigFile)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg := config.Default()
			cfg.Timezone = initTimezone
			if initDriver != "" {
				cfg.Store.Driver = initDriver
			}
			if initDSN != "" {
				cfg.Store.DSN = initDSN
			}
			if err := config.Save(root, cfg); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
		}

		ws, err := wiring.NewWorkspace(root)
		if err != nil {
			return err
		}
		st, err := ws.OpenStore(cmd.Context())
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		if err := st.Close(); err != nil {
			return err
		}
		_ = ws.Audit.Log("workspace.initialized", actor(), map[string]interface{}{"driver": ws.Config.Store.Driver})

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized blotter workspace in %s (%s store)\n", root, ws.Config.Store.Driver)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initTimezone, "timezone", "", "IANA timezone for hearing times (defaults to local)")
	initCmd.Flags().StringVar(&initDriver, "driver", "", "Data store driver (sqlite, postgres)")
	initCmd.Flags().StringVar(&initDSN, "dsn", "", "Data store DSN; a file name for sqlite or a connection URL for postgres")
	RootCmd.AddCommand(initCmd)
}
