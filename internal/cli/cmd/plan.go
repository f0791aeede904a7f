package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"funlight/internal/encoder"
	"funlight/internal/model"
	"funlight/internal/pipeline"
	"funlight/internal/util"
)

var (
	planTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0078D4"))
	planKey   = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("#A3A3A3"))
	planWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan <url>",
		Short:         "Show the yt-dlp and ffmpeg commands a conversion would run",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := convertSettings(cmd)
			req, err := requestFromFlags(cmd, s, args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			s.NoHistory = true
			a := newApp(s, slog.Default())
			defer a.Close()

			pl, err := a.service.Plan(req)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			printPlan(cmd.OutOrStdout(), pl, s.ExactTrim)
			return nil
		},
	}
	bindConvertFlags(cmd.Flags())
	return cmd
}

// printPlan outputs a dry-run plan of actions without executing them.
func printPlan(w io.Writer, pl pipeline.Plan, exactTrim bool) {
	req := pl.Request
	row := func(k, v string) {
		fmt.Fprintf(w, "%s %s\n", planKey.Render("- "+k+":"), v)
	}

	fmt.Fprintln(w, planTitle.Render("Dry-run plan:"))
	row("URL", req.URL)
	row("Format", req.Kind.Label())
	if req.Quality != "" {
		row("Quality", model.QualityLabel(req.Kind, req.Quality))
	}
	row("Output dir", req.OutDir)
	row("Output file", filepath.Join(req.OutDir, "<title>."+pl.Options.Ext()))

	dl := pl.Downloader
	if dl == "" {
		dl = planWarn.Render("not found")
	}
	row("Downloader", dl)
	ff := pl.FFmpeg.Binary
	if pl.FFmpegErr != nil {
		ff = planWarn.Render(pl.FFmpegErr.Error())
	} else {
		ff = fmt.Sprintf("%s (%s)", ff, pl.FFmpeg.Source)
	}
	row("FFmpeg", ff)

	bin := pl.Downloader
	if bin == "" {
		bin = "yt-dlp"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, planTitle.Render("Metadata:"))
	fmt.Fprintln(w, "  "+util.ShellQuote(bin, pl.MetadataArgs))
	fmt.Fprintln(w, planTitle.Render("Download:"))
	fmt.Fprintln(w, "  "+util.ShellQuote(bin, pl.Args))

	if req.HasTrim() {
		ffBin := pl.FFmpeg.Binary
		if ffBin == "" {
			ffBin = "ffmpeg"
		}
		file := filepath.Join(req.OutDir, "<title>."+pl.Options.Ext())
		ts := encoder.TrimSpec{
			Input:    file,
			Output:   file,
			Start:    req.Start,
			End:      req.End,
			Reencode: exactTrim,
		}
		fmt.Fprintln(w, planTitle.Render("Trim:"))
		fmt.Fprintln(w, "  "+util.ShellQuote(ffBin, encoder.BuildTrimArgs(ts, false)))
	}
}
