package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/solveur/internal/store"
)

// errReported marks a failure whose message was already written for the
// user. Execute exits non-zero without printing it again.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:           "solveur",
	Short:         "Terminale S math solver",
	Long:          "Solveur - pick a topic, type a problem, and watch a step-by-step solution stream in.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides SOLVEUR_DB env var)")
	pf.String("config", "", "Path to config file (overrides SOLVEUR_CONFIG env var)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("provider", "", "LLM provider: gemini, anthropic, openai, openrouter, mock")
	pf.String("model", "", "Model for the selected provider")
	pf.Bool("no-log-db", false, "Do not record LLM requests in the database")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then SOLVEUR_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore opens the diagnostics database unless --no-log-db is set, in
// which case it returns nil.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	if off, _ := cmd.Flags().GetBool("no-log-db"); off {
		return nil, nil
	}
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
