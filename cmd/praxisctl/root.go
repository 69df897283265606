package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"praxis/internal/logging"
	"praxis/pkg/praxis"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	store        string
	dbPath       string
	artifactsDir string
	exportsDir   string
	logLevel     string
	logFormat    string
}

var rootCmd = &cobra.Command{
	Use:   "praxisctl",
	Short: "Fit and simulate computational models of behavior",
	Long: "Praxisctl fits cognitive action models to per-session behavioral data\n" +
		"with hierarchical population models and MCMC, simulates agents forward,\n" +
		"and manages persisted runs and their artifacts.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logLevelFromName(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.store, "store", "memory", "store backend: memory|sqlite")
	pf.StringVar(&rootFlags.dbPath, "db", "praxis.db", "sqlite database path")
	pf.StringVar(&rootFlags.artifactsDir, "artifacts", "artifacts", "run artifacts directory")
	pf.StringVar(&rootFlags.exportsDir, "exports", "exports", "export output directory")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "log format: text|json")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.Version = version
}

func newClient() (*praxis.Client, error) {
	return praxis.New(praxis.Options{
		StoreKind:    rootFlags.store,
		DBPath:       rootFlags.dbPath,
		ArtifactsDir: rootFlags.artifactsDir,
		ExportsDir:   rootFlags.exportsDir,
	})
}

func logLevelFromName(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", name)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
