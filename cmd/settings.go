package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/solveur/internal/config"
	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/store"
)

// settings is the merged configuration for one command run.
// Precedence: flags > environment > config file > defaults.
type settings struct {
	File     *config.File
	LLM      llm.Config
	LogLevel slog.Level
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	cfg := file.ApplyLLM(llm.DefaultConfig())
	cfg = llm.ConfigFromEnv(cfg)

	flagProvider, _ := cmd.Flags().GetString("provider")
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	explicit := flagProvider != "" || os.Getenv("SOLVEUR_LLM_PROVIDER") != "" || file.Provider != ""
	cfg = llm.DiscoverKeys(cfg, explicit)

	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.SetModel(m)
	}

	levelName := file.LogLevel
	if env := os.Getenv("SOLVEUR_LOG_LEVEL"); env != "" {
		levelName = env
	}
	if f, _ := cmd.Flags().GetString("log-level"); f != "" {
		levelName = f
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, err
	}

	return &settings{File: file, LLM: cfg, LogLevel: level}, nil
}

func parseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openLogFile opens the TUI log file for appending. The terminal belongs to
// the UI while it runs, so logs cannot go to stderr.
func openLogFile(s *settings) (*os.File, error) {
	path := s.File.LogFile
	if path == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// buildProvider creates the configured LLM provider. repo may be nil.
func buildProvider(ctx context.Context, s *settings, repo store.EventRepo, logger *slog.Logger) (llm.Provider, error) {
	p, err := llm.NewProvider(ctx, s.LLM, repo, logger)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	return p, nil
}

func eventRepo(st *store.Store) store.EventRepo {
	if st == nil {
		return nil
	}
	return st.EventRepo()
}
