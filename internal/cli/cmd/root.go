package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"funlight/internal/config"
	"funlight/internal/model"
	"funlight/internal/pipeline"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitDownloadError = 3
	ExitTrimError     = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "funlight [url]",
		Short: "Download online videos as MP3, WAV, AAC or MP4",
		Long: "Funlight converts a video link into an audio or video file using yt-dlp and ffmpeg.\n" +
			"Give it a URL to convert right away, or run it without arguments for the interactive form.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: rootPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runConvert(cmd, args[0])
			}
			if !isTerminal() {
				return cmd.Help()
			}
			return runTUI(cmd, "")
		},
	}

	// Persistent flags available to all subcommands
	pf := root.PersistentFlags()
	pf.StringP("out-dir", "o", "", "Output directory (default ~/Downloads/Funlight Converter)")
	pf.BoolP("verbose", "v", false, "Show yt-dlp and ffmpeg output and debug logs")
	pf.String("dl-binary", "", "Path to yt-dlp or youtube-dl")
	pf.String("ffmpeg-location", "", "ffmpeg binary or the directory holding it")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text, json")
	pf.String("history-path", "", "Job history database")
	pf.Bool("no-history", false, "Do not record finished jobs")
	pf.Bool("keep-intermediate", false, "Keep the downloaded source file and fragments")

	// Root doubles as `convert` when given a URL.
	bindConvertFlags(root.Flags())

	root.AddCommand(newConvertCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newSetupCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// rootPreRun loads configuration and installs the default logger.
// Commands that log elsewhere replace it in their own RunE.
func rootPreRun(cmd *cobra.Command, _ []string) error {
	if err := config.Init(cmd.Root()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	s := config.Load()
	logger, err := newLogger(cmd.ErrOrStderr(), s)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	setDefaultLogger(logger)
	return nil
}

// Run executes the CLI with args, prints the failure to stderr and returns
// the process exit code.
func Run(ctx context.Context, args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if !errors.As(err, &ee) {
		fmt.Fprintln(stderr, err)
		return ExitCLIError
	}
	if ee.Err != nil {
		fmt.Fprintln(stderr, ee.Err)
	}
	return ee.Code
}

// exitCodeFor maps a failure onto the documented exit codes.
func exitCodeFor(err error) int {
	var je *pipeline.JobError
	if errors.As(err, &je) {
		return exitCodeForCategory(je.Category)
	}
	if errors.Is(err, model.ErrEmptyURL) || errors.Is(err, model.ErrEmptyOutDir) ||
		errors.Is(err, model.ErrInvalidTrim) || errors.Is(err, model.ErrInvalidQuality) ||
		errors.Is(err, model.ErrUnknownKind) {
		return ExitCLIError
	}
	return ExitDownloadError
}

func exitCodeForCategory(c pipeline.Category) int {
	switch c {
	case pipeline.CategoryMissingDownloader, pipeline.CategoryMissingTranscoder:
		return ExitMissingDep
	case pipeline.CategoryTrim:
		return ExitTrimError
	case pipeline.CategoryValidation:
		return ExitCLIError
	default:
		return ExitDownloadError
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func isStderrTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
