// Command oracle answers questions about the Cyberpunk universe with ranked
// supporting documents from the lore, timeline and slang corpora.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nightcity/oracle/internal/config"
	logpkg "github.com/nightcity/oracle/internal/logger"
	"github.com/nightcity/oracle/internal/version"
)

// globals are populated by the root command before any subcommand runs.
type globals struct {
	env      string
	logLevel string
	cfg      config.Config
	logger   *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "oracle",
		Short:         "Night City lore retrieval service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			// A missing .env is fine; real deployments use the environment.
			_ = godotenv.Load()

			if g.env == "" {
				g.env = config.GetEnv()
			}
			cfg, err := config.Load(g.env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level := cfg.Logging.Level
			if g.logLevel != "" {
				level = g.logLevel
			}
			logger, err := logpkg.NewLogger(g.env, level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			g.cfg = cfg
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&g.env, "env", "", "environment name, selects config/<env>.yaml (default $ENV or local)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newServeCmd(g),
		newQueryCmd(g),
		newCorporaCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "oracle %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
