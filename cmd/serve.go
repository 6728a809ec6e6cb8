package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/solveur/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the solver as a web page",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(os.Stderr, s.LogLevel)

		addr, _ := cmd.Flags().GetString("addr")
		if !cmd.Flags().Changed("addr") && s.File.Listen != "" {
			addr = s.File.Listen
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		provider, err := buildProvider(ctx, s, eventRepo(st), logger)
		if err != nil {
			return err
		}

		srv := web.New(provider,
			web.WithLogger(logger),
			web.WithTopic(s.File.DefaultTopic()),
			web.WithMaxTokens(s.File.MaxTokens),
			web.WithTemperature(s.File.Temperature),
		)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
}
