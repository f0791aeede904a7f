package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"funlight/internal/config"
	"funlight/internal/model"
	"funlight/internal/pipeline"
	"funlight/internal/session"
	"funlight/internal/util"
	"funlight/internal/util/format"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "convert <url>",
		Short:         "Download a video and convert it to MP3, WAV, AAC or MP4",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0])
		},
	}
	bindConvertFlags(cmd.Flags())
	return cmd
}

func bindConvertFlags(fs *pflag.FlagSet) {
	fs.StringP("format", "f", "", "Output format: mp3, wav, aac, mp4 (default from config, mp3)")
	fs.StringP("quality", "q", "", "Bitrate in kbps for mp3/aac, or max height for mp4 (e.g. 320, 720, best)")
	fs.String("start", "", "Trim start, in seconds or [hh:]mm:ss")
	fs.String("end", "", "Trim end, in seconds or [hh:]mm:ss")
	fs.Bool("exact-trim", false, "Re-encode when trimming for frame-accurate cuts")
}

// convertSettings applies command-local flags on top of the loaded config.
func convertSettings(cmd *cobra.Command) config.Settings {
	s := config.Load()
	if f := cmd.Flags().Lookup("exact-trim"); f != nil && f.Changed {
		s.ExactTrim, _ = cmd.Flags().GetBool("exact-trim")
	}
	return s
}

// requestFromFlags builds a job request from rawURL, the convert flags
// and the configured defaults.
func requestFromFlags(cmd *cobra.Command, s config.Settings, rawURL string) (model.JobRequest, error) {
	fs := cmd.Flags()
	kindFlag, _ := fs.GetString("format")
	quality, _ := fs.GetString("quality")
	startFlag, _ := fs.GetString("start")
	endFlag, _ := fs.GetString("end")

	kindName := s.Format
	if kindFlag != "" {
		kindName = kindFlag
	}
	kind, err := model.ParseKind(kindName)
	if err != nil {
		return model.JobRequest{}, err
	}
	// A configured quality only applies to the configured format.
	if quality == "" && (kindFlag == "" || kindFlag == s.Format) {
		quality = s.Quality
	}

	u, err := util.NormalizeURL(rawURL)
	if err != nil {
		return model.JobRequest{}, err
	}
	start, err := model.ParseSeconds(startFlag)
	if err != nil {
		return model.JobRequest{}, err
	}
	end, err := model.ParseSeconds(endFlag)
	if err != nil {
		return model.JobRequest{}, err
	}

	req := model.JobRequest{
		URL:     u,
		Kind:    kind,
		Quality: quality,
		Start:   start,
		End:     end,
		OutDir:  s.OutDir,
	}.Normalize()
	return req, req.Validate()
}

func runConvert(cmd *cobra.Command, rawURL string) error {
	s := convertSettings(cmd)
	logger := slog.Default()

	req, err := requestFromFlags(cmd, s, rawURL)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	a := newApp(s, logger)
	defer a.Close()
	if a.dlErr != nil {
		return &ExitError{Code: ExitMissingDep, Err: a.dlErr}
	}

	ctx := cmd.Context()
	sess := a.newSession(ctx)
	job, err := sess.Start(req)
	if err != nil {
		return &ExitError{Code: exitCodeFor(err), Err: err}
	}
	events, cancel, err := sess.Subscribe(job.ID)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer cancel()

	r := newRenderer(cmd.ErrOrStderr(), isStderrTerminal(), s.Verbose)
	r.Run(events)
	sess.Wait()

	job, err = sess.Get(job.ID)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	if job.State != session.StateSucceeded {
		if ctx.Err() != nil {
			return &ExitError{Code: ExitDownloadError, Err: errors.New("interrupted")}
		}
		return &ExitError{Code: exitCodeForCategory(pipeline.Category(job.Category)), Err: errors.New(job.Error)}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%s)\n", job.OutputPath, format.Megabytes(job.Bytes))
	return nil
}
