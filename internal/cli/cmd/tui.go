package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"funlight/internal/config"
	"funlight/internal/dirs"
	"funlight/internal/model"
	"funlight/internal/ui"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui [url]",
		Short:         "Open the interactive conversion form",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			return runTUI(cmd, url)
		},
	}
	return cmd
}

// runTUI shows the form. The TUI owns the terminal, so logs go to the
// log file under the state directory.
func runTUI(cmd *cobra.Command, url string) error {
	s := config.Load()

	logPath, err := dirs.LogPath()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("open log file: %w", err)}
	}
	defer f.Close()
	logger, err := newLogger(f, s)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	setDefaultLogger(logger)

	a := newApp(s, logger)
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sess := a.newSession(ctx)

	kind, err := model.ParseKind(s.Format)
	if err != nil {
		kind = model.KindMP3
	}
	runErr := ui.Run(ctx, sess, ui.Defaults{
		URL:     url,
		Kind:    kind,
		Quality: s.Quality,
		OutDir:  s.OutDir,
	})
	// Quitting mid-job stops the job's subprocesses.
	cancel()
	sess.Wait()

	if runErr != nil {
		return &ExitError{Code: exitCodeFor(runErr), Err: runErr}
	}
	return nil
}
