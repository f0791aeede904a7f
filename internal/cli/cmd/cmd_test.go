package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"funlight/internal/config"
	"funlight/internal/model"
	"funlight/internal/pipeline"
	"funlight/internal/progress"
	"funlight/internal/session"
	"funlight/internal/translate"
	"funlight/internal/util/deps"
)

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr string
	}{
		{"completion without shell", []string{"completion"}, ExitCLIError, "accepts 1 arg"},
		{"bad completion shell", []string{"completion", "tcsh"}, ExitCLIError, "tcsh"},
		{"unknown flag", []string{"--no-such-flag"}, ExitCLIError, "no-such-flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := Run(context.Background(), tt.args, &stderr); got != tt.want {
				t.Errorf("Run(%v) = %d, want %d (stderr %q)", tt.args, got, tt.want, stderr.String())
			}
			if tt.wantErr != "" && !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want mention of %q", stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing ffmpeg", &pipeline.JobError{Category: pipeline.CategoryMissingTranscoder}, ExitMissingDep},
		{"missing yt-dlp", &pipeline.JobError{Category: pipeline.CategoryMissingDownloader}, ExitMissingDep},
		{"trim", fmt.Errorf("job: %w", &pipeline.JobError{Category: pipeline.CategoryTrim}), ExitTrimError},
		{"private", &pipeline.JobError{Category: pipeline.CategoryPrivate}, ExitDownloadError},
		{"validation category", &pipeline.JobError{Category: pipeline.CategoryValidation}, ExitCLIError},
		{"bad trim", model.ErrInvalidTrim, ExitCLIError},
		{"busy", session.ErrBusy, ExitDownloadError},
		{"other", errors.New("boom"), ExitDownloadError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func convertCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "convert"}
	bindConvertFlags(cmd.Flags())
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestRequestFromFlags(t *testing.T) {
	s := config.Settings{Format: "mp3", Quality: "320", OutDir: "/music"}

	t.Run("config defaults", func(t *testing.T) {
		req, err := requestFromFlags(convertCmd(t), s, "youtu.be/abc")
		if err != nil {
			t.Fatalf("requestFromFlags() error: %v", err)
		}
		if req.URL != "https://youtu.be/abc" || req.Kind != model.KindMP3 || req.Quality != "320" || req.OutDir != "/music" {
			t.Errorf("req = %+v", req)
		}
	})

	t.Run("format flag drops configured quality", func(t *testing.T) {
		req, err := requestFromFlags(convertCmd(t, "-f", "mp4"), s, "https://example.com/v")
		if err != nil {
			t.Fatalf("requestFromFlags() error: %v", err)
		}
		if req.Kind != model.KindMP4 || req.Quality != model.DefaultQuality(model.KindMP4) {
			t.Errorf("req = %+v", req)
		}
	})

	t.Run("trim markers", func(t *testing.T) {
		req, err := requestFromFlags(convertCmd(t, "--start", "1:30", "--end", "120"), s, "https://example.com/v")
		if err != nil {
			t.Fatalf("requestFromFlags() error: %v", err)
		}
		if req.Start == nil || *req.Start != 90*time.Second || req.End == nil || *req.End != 2*time.Minute {
			t.Errorf("trim = %v..%v", req.Start, req.End)
		}
	})

	for _, tc := range []struct {
		name string
		args []string
		url  string
	}{
		{"unknown format", []string{"-f", "ogg"}, "https://example.com/v"},
		{"bad quality", []string{"-q", "999"}, "https://example.com/v"},
		{"end before start", []string{"--start", "20", "--end", "10"}, "https://example.com/v"},
		{"bad url", nil, "ftp://example.com/v"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := requestFromFlags(convertCmd(t, tc.args...), s, tc.url); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRendererPlain(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false, false)
	events := make(chan session.Event, 16)
	for _, ev := range []session.Event{
		{Kind: session.KindUpdate, Stage: progress.StageMetadata, Percent: -1, Message: "Retrieving video information..."},
		{Kind: session.KindUpdate, Stage: progress.StageDownloading, Percent: 1, Message: "Downloading: 1.0%"},
		{Kind: session.KindUpdate, Stage: progress.StageDownloading, Percent: 5, Message: "Downloading: 5.0%"},
		{Kind: session.KindUpdate, Stage: progress.StageDownloading, Percent: 12, Message: "Downloading: 12.0%"},
		{Kind: session.KindLog, Line: "[download] noise"},
		{Kind: session.KindUpdate, Stage: progress.StageConverting, Percent: -1, Message: "Converting: FFmpegExtractAudio"},
		{Kind: session.KindUpdate, Stage: progress.StageConverting, Percent: -1, Message: "Converting: FFmpegExtractAudio"},
		{Kind: session.KindResult, Stage: progress.StageCompleted, Percent: 100},
	} {
		events <- ev
	}
	close(events)
	r.Run(events)

	want := "Retrieving video information...\nDownloading: 1.0%\nDownloading: 12.0%\nConverting: FFmpegExtractAudio\n"
	if buf.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRendererVerboseShowsLogs(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false, true)
	r.handle(session.Event{Kind: session.KindLog, Line: "[youtube] abc: Downloading webpage"})
	if !strings.Contains(buf.String(), "Downloading webpage") {
		t.Errorf("verbose output missing log line: %q", buf.String())
	}
}

func TestPrintPlan(t *testing.T) {
	start := 10 * time.Second
	req := model.JobRequest{URL: "https://example.com/v", Kind: model.KindMP3, Quality: "192", OutDir: "out", Start: &start}
	opts, err := translate.ForRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	opts.FFmpegLocation = "/opt/ffmpeg/bin"
	pl := pipeline.Plan{
		Request:      req,
		Options:      opts,
		MetadataArgs: opts.MetadataArgs(req.URL),
		Args:         opts.Args(req.URL),
		Downloader:   "/bin/yt-dlp",
		FFmpeg:       deps.FFmpegLocation{Dir: "/opt/ffmpeg/bin", Binary: "/opt/ffmpeg/bin/ffmpeg", Source: deps.SourceCandidate},
	}

	var buf bytes.Buffer
	printPlan(&buf, pl, false)
	out := buf.String()
	for _, want := range []string{
		"https://example.com/v",
		"192 kbps",
		"/opt/ffmpeg/bin/ffmpeg (candidate)",
		"/bin/yt-dlp --dump-json",
		"--audio-format mp3",
		"-ss 10.000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan missing %q:\n%s", want, out)
		}
	}
}
