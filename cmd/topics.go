package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/solveur/internal/topic"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the available topics",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for i, t := range topic.All() {
			fmt.Fprintf(out, "%d  %-26s %s\n", i+1, t, t.Slug())
		}
	},
}
