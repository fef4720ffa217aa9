package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/logging"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	logLevel    string
	logFormat   string
	jsonOutput  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "blotter",
	Version: Version,
	Short:   "Case lifecycle and hearing reminders for an investigations desk",
	Long: `Blotter tracks a case from intake to closure.
It answers, for every case:
1. Which of the seven lifecycle stages are done?
2. What is the one thing this officer may do next?
3. When is the next hearing, and who gets reminded?`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if logFormat != "text" && logFormat != "json" {
			return fmt.Errorf("unknown log format %q (want text or json)", logFormat)
		}
		logging.Init(level, logFormat, cmd.ErrOrStderr())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "", "Workspace directory (defaults to the current directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	RootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	RootCmd.SetVersionTemplate(fmt.Sprintf("blotter {{.Version}} (commit %s, built %s)\n", Commit, Date))
}
