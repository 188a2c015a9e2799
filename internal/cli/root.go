// Package cli implements the aide command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/aidekit/aide/internal/config"
	"github.com/aidekit/aide/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded in PersistentPreRunE
	cfg config.Config
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aide",
		Short: "aide — AI coding assistant for the terminal",
		Long: "aide is a command-line coding assistant. It sends your prompts to a " +
			"chat-completion endpoint and lets the model work in your repository " +
			"through file, search, shell, and git tools.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath())
			if err != nil {
				return err
			}
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log = newLogger(level, cfg.Logging.Format)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.aide/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSessionsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
