package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"funlight/internal/util"
	"funlight/internal/util/deps"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup [ffmpeg]",
		Short: "Install ffmpeg (and optionally yt-dlp) and put ffmpeg on your PATH",
		Long: "Setup makes the external tools available.\n\n" +
			"With no arguments, or with 'ffmpeg', it looks for ffmpeg on PATH and in the usual install\n" +
			"locations, installs it with the platform package manager when missing, and adds its\n" +
			"directory to the user PATH. --ytdlp downloads a yt-dlp release into the user cache;\n" +
			"given alone it skips the ffmpeg step.",
		SilenceUsage:  true,
		SilenceErrors: true,
		ValidArgs:     []string{"ffmpeg"},
		Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ytdlp, _ := cmd.Flags().GetBool("ytdlp")
			noPath, _ := cmd.Flags().GetBool("no-path")
			out := cmd.OutOrStdout()

			if ytdlp {
				path, version, err := deps.InstallDownloader(cmd.Context())
				if err != nil {
					return &ExitError{Code: ExitMissingDep, Err: err}
				}
				fmt.Fprintf(out, "yt-dlp ready: %s (%s)\n", path, version)
				if len(args) == 0 {
					return nil
				}
			}
			return setupFFmpeg(cmd, out, noPath)
		},
	}
	cmd.Flags().Bool("ytdlp", false, "Download yt-dlp into the user cache")
	cmd.Flags().Bool("no-path", false, "Do not add the ffmpeg directory to the user PATH")
	return cmd
}

func setupFFmpeg(cmd *cobra.Command, out io.Writer, noPath bool) error {
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		fmt.Fprintf(out, "FFmpeg is already installed and in PATH: %s\n", p)
		return nil
	}
	fmt.Fprintln(out, "FFmpeg not found in PATH. Setting up...")

	// Check the install locations only; PATH was checked above.
	loc, _, err := candidateLocator().Locate()
	if err != nil {
		fmt.Fprintln(out, "FFmpeg installation not found. Installing with the package manager...")
		if runtime.GOOS == "windows" && !deps.IsElevated() {
			fmt.Fprintln(out, planWarn.Render("Not running as administrator; the installer may ask for elevation."))
		}
		line := func(s string) { fmt.Fprintln(out, "  "+s) }
		if err := deps.InstallFFmpeg(cmd.Context(), util.NewDefaultRunner(), runtime.GOOS, line); err != nil {
			return &ExitError{Code: ExitMissingDep, Err: fmt.Errorf("error installing FFmpeg: %w", err)}
		}
		fmt.Fprintln(out, "FFmpeg installed successfully!")

		loc, _, err = deps.NewLocator("").Locate()
		if err != nil {
			return &ExitError{Code: ExitMissingDep, Err: fmt.Errorf("ffmpeg was installed but could not be located: %w", err)}
		}
	}
	fmt.Fprintf(out, "Using FFmpeg from: %s\n", loc.Dir)

	if noPath {
		return nil
	}
	added, err := deps.PersistUserPath(loc.Dir)
	switch {
	case errors.Is(err, deps.ErrManualPath):
		fmt.Fprintln(out, err)
	case err != nil:
		fmt.Fprintln(out, planWarn.Render("Failed to add FFmpeg to PATH. Please add it manually."))
		return &ExitError{Code: ExitMissingDep, Err: err}
	case added:
		fmt.Fprintf(out, "Added FFmpeg to PATH: %s\n", loc.Dir)
		fmt.Fprintln(out, "Please restart your terminal for the changes to take effect.")
	default:
		fmt.Fprintf(out, "%s is already on PATH\n", loc.Dir)
	}
	return nil
}

func candidateLocator() *deps.Locator {
	l := deps.NewLocator("")
	l.LookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	return l
}
