package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"funlight/internal/config"
	"funlight/internal/util"
	"funlight/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (yt-dlp/youtube-dl, ffmpeg)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.Load()
			out := cmd.OutOrStdout()
			var missing []error

			dl, derr := deps.FindDownloader(s.DLBinary)
			if derr != nil {
				missing = append(missing, derr)
				fmt.Fprintf(out, "Downloader: %s\n", planWarn.Render("not found"))
			} else {
				fmt.Fprintf(out, "Downloader: %s %s\n", dl, downloaderVersion(cmd, dl))
			}

			loc, checks, ferr := deps.NewLocator(s.FFmpegLocation).Locate()
			if ferr != nil {
				missing = append(missing, ferr)
				fmt.Fprintf(out, "FFmpeg:     %s\n", planWarn.Render("not found"))
			} else {
				fmt.Fprintf(out, "FFmpeg:     %s (%s)\n", loc.Binary, loc.Source)
			}
			if s.Verbose || ferr != nil {
				for _, p := range checks {
					mark := "-"
					if p.Found {
						mark = "+"
					}
					fmt.Fprintf(out, "  %s %s\n", mark, p.Dir)
				}
			}

			if len(missing) > 0 {
				return &ExitError{Code: ExitMissingDep, Err: errors.Join(missing...)}
			}
			return nil
		},
	}
}

// downloaderVersion asks the binary for its version; failures are shown inline.
func downloaderVersion(cmd *cobra.Command, path string) string {
	res, err := util.NewDefaultRunner().Run(cmd.Context(), util.CmdSpec{
		Path:          path,
		Args:          []string{"--version"},
		CaptureStdout: true,
	})
	if err != nil {
		return "(version unknown)"
	}
	return "(" + strings.TrimSpace(string(res.Stdout)) + ")"
}
