package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeJamon/goProgIndex/internal/config"
	"github.com/LeJamon/goProgIndex/internal/logging"
)

var (
	// Global flags
	configFile string
	debug      bool
	quiet      bool

	// Loaded by initConfig before any command runs
	cfg    *config.Config
	logger *zap.Logger
)

// skipConfig marks commands that work without a configuration.
const skipConfig = "skip-config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "progindexd",
	Short: "progindex - paginated, searchable view of on-ledger program accounts",
	Long: `progindexd keeps a sorted index of the accounts owned by an on-ledger
program and serves them one page at a time. Only account addresses are
cached; every page is read fresh from the ledger in a single batched call.`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (default ./"+config.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// initConfig loads the configuration file and environment, then builds the
// logger from the [log] section and the global flags.
func initConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		logger = zap.NewNop()
		return nil
	}

	loaded, err := config.LoadConfig(config.FindConfigFile(configFile))
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Colors: cfg.Log.Colors,
		File:   cfg.Log.File,
	}
	switch {
	case debug:
		logCfg.Level = "debug"
	case quiet:
		logCfg.Level = "warn"
	}

	logger, err = logging.New(logCfg)
	if err != nil {
		return err
	}
	if path := cfg.GetConfigPath(); path != "" {
		logger.Debug("configuration loaded", zap.String("file", path))
	}
	return nil
}
