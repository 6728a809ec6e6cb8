package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abhisek/solveur/internal/markup"
	"github.com/abhisek/solveur/internal/solver"
	"github.com/abhisek/solveur/internal/topic"
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem...]",
	Short: "Solve one problem and print the solution",
	Long: "Solve one problem and print the solution. The problem is read from the " +
		"arguments, or from stdin when there are none.",
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringP("topic", "t", "", "Topic name or slug (see 'solveur topics')")
	solveCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown, term, html")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), s.LogLevel)

	t := s.File.DefaultTopic()
	if name, _ := cmd.Flags().GetString("topic"); name != "" {
		t, err = topic.Parse(name)
		if err != nil {
			return err
		}
	}

	format, _ := cmd.Flags().GetString("format")
	renderer, ok := markup.ForFormat(format, outputWidth())
	if !ok {
		return fmt.Errorf("unknown format %q (want markdown, term or html)", format)
	}

	problem, err := readProblem(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(problem) == "" {
		return fmt.Errorf("no problem given")
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

	opts := []solver.Option{solver.WithTopic(t), solver.WithLogger(logger)}
	if s.File.MaxTokens > 0 {
		opts = append(opts, solver.WithMaxTokens(s.File.MaxTokens))
	}
	if s.File.Temperature > 0 {
		opts = append(opts, solver.WithTemperature(s.File.Temperature))
	}
	sv := solver.New(provider, opts...)
	sv.UpdateProblemText(problem)

	out := cmd.OutOrStdout()
	_, streaming := renderer.(markup.Plain)
	printed := 0
	if streaming {
		sv.Subscribe(func(state solver.State) {
			if len(state.Solution) > printed {
				fmt.Fprint(out, state.Solution[printed:])
				printed = len(state.Solution)
			}
		})
	}

	submitErr := sv.Submit(ctx)

	if streaming {
		if printed > 0 && !strings.HasSuffix(sv.State().Solution, "\n") {
			fmt.Fprintln(out)
		}
	} else if sv.State().Solution != "" {
		fmt.Fprintln(out, strings.TrimRight(sv.Render(renderer), "\n"))
	}

	if submitErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), solver.ErrorMessage)
		return errReported
	}
	return nil
}

func readProblem(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read problem from stdin: %w", err)
	}
	return string(data), nil
}

// outputWidth is the terminal width of stdout, or 0 when it is not a
// terminal.
func outputWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
