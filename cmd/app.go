package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/solveur/internal/app"
)

// runApp loads configuration, opens the store, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logFile, err := openLogFile(s)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := newLogger(logFile, s.LogLevel)

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	provider, err := buildProvider(ctx, s, eventRepo(st), logger)
	if err != nil {
		return fmt.Errorf("%w (set GEMINI_API_KEY or use --provider)", err)
	}

	logger.Info("starting TUI", "provider", s.LLM.Provider, "model", provider.ModelID())
	return app.Run(ctx, app.Options{
		Provider:    provider,
		EventRepo:   eventRepo(st),
		Topic:       s.File.DefaultTopic(),
		MaxTokens:   s.File.MaxTokens,
		Temperature: s.File.Temperature,
		Logger:      logger,
	})
}
