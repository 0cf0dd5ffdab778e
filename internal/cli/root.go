package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medrag/config"
	"medrag/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Medical question answering over WHO and oncology knowledge bases",
	Long: `medrag answers medical questions with a reasoning agent that consults
retrieval tools, one per knowledge base (WHO essential medicines, oncology
treatment). Each tool searches a persisted embedding index and asks the
language model to answer from the retrieved passages only.

Example usage:
  medrag index                                  # Build missing indices
  medrag index --force --domain who             # Rebuild one index
  medrag search -q "amoxicillin" --domain who   # Inspect retrieval
  medrag ask -q "What is amoxicillin used for?" # One-shot question
  medrag serve                                  # Web form and JSON API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.Resolve(rootDir)
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./medrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func GetConfig() *config.Config {
	return cfg
}
