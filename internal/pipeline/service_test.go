package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"funlight/internal/model"
	"funlight/internal/progress"
	"funlight/internal/util"
	"funlight/internal/util/deps"
)

const (
	dlPath = "/bin/yt-dlp"
	ffDir  = "/opt/ffmpeg/bin"
	ffPath = "/opt/ffmpeg/bin/ffmpeg"
)

type recordingReporter struct {
	updates []progress.Update
	results []progress.Result
	logs    []progress.Log
}

func (r *recordingReporter) Update(u progress.Update) {
	r.updates = append(r.updates, u)
}
func (r *recordingReporter) Log(l progress.Log) {
	r.logs = append(r.logs, l)
}
func (r *recordingReporter) Result(res progress.Result) {
	r.results = append(r.results, res)
}

func (r *recordingReporter) messages() []string {
	var out []string
	for _, u := range r.updates {
		out = append(out, u.Message)
	}
	return out
}

type fakeRunner struct {
	t        *testing.T
	metaJSON string
	ext      string // extension of the converted file
	stderr   string // when set, the download fails with this ERROR line
	existing bool   // output is already on disk; yt-dlp skips the download
	calls    []util.CmdSpec
}

// Run simulates yt-dlp and ffmpeg.
func (f *fakeRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.calls = append(f.calls, spec)
	switch spec.Path {
	case dlPath:
		if contains(spec.Args, "--dump-json") {
			return util.CmdResult{Stdout: []byte(f.metaJSON)}, nil
		}
		return f.download(spec)
	case ffPath:
		out := spec.Args[len(spec.Args)-1]
		if err := os.WriteFile(out, []byte("trimmed"), 0o644); err != nil {
			return util.CmdResult{}, err
		}
		if spec.StdoutLine != nil {
			spec.StdoutLine("out_time_us=5000000")
			spec.StdoutLine("speed=12x")
			spec.StdoutLine("progress=continue")
			spec.StdoutLine("out_time_us=10000000")
			spec.StdoutLine("progress=end")
		}
		return util.CmdResult{}, nil
	}
	return util.CmdResult{}, errors.New("unexpected tool path: " + spec.Path)
}

func (f *fakeRunner) download(spec util.CmdSpec) (util.CmdResult, error) {
	if f.stderr != "" {
		spec.StderrLine(f.stderr)
		return util.CmdResult{Code: 1}, errors.New("exit status 1")
	}
	tmpl := argAfter(spec.Args, "-o")
	dir := filepath.Dir(tmpl)
	src := filepath.Join(dir, "Title.webm")
	dst := filepath.Join(dir, "Title."+f.ext)
	if f.existing {
		spec.StdoutLine("[download] " + dst + " has already been downloaded")
		return util.CmdResult{}, nil
	}
	if err := os.WriteFile(dst, []byte("converted"), 0o644); err != nil {
		f.t.Fatalf("write output: %v", err)
	}
	if err := os.WriteFile(src+".part", []byte("x"), 0o644); err != nil {
		f.t.Fatalf("write residual: %v", err)
	}
	spec.StdoutLine("[youtube] abc: Downloading webpage")
	spec.StdoutLine("[download] Destination: " + src)
	spec.StdoutLine("[download]  50.0% of 10.00MiB at  1.00MiB/s ETA 00:05")
	spec.StdoutLine("[download] 100.0% of 10.00MiB at  1.00MiB/s ETA 00:00")
	if f.ext == "mp4" {
		spec.StdoutLine(`[VideoConvertor] Not converting media file "` + dst + `"; already is in target format mp4`)
	} else {
		spec.StdoutLine("[ExtractAudio] Destination: " + dst)
	}
	return util.CmdResult{}, nil
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func contains(ss []string, q string) bool {
	for _, s := range ss {
		if s == q {
			return true
		}
	}
	return false
}

func fakeLocate(string) (deps.FFmpegLocation, error) {
	return deps.FFmpegLocation{Dir: ffDir, Binary: ffPath, Source: deps.SourceCandidate}, nil
}

func newTestService(r util.CmdRunner, opts ...Option) *Service {
	base := []Option{WithDownloaderPath(dlPath), WithRunner(r), WithLocator(fakeLocate)}
	return NewService(append(base, opts...)...)
}

const metaJSON = `{"id":"abc","title":"Title","duration":60,"filesize":5242880}`

func TestRunJob_AudioSuccess(t *testing.T) {
	tmp := t.TempDir()
	fr := &fakeRunner{t: t, metaJSON: metaJSON, ext: "mp3"}
	rep := &recordingReporter{}
	s := newTestService(fr)

	res, err := s.RunJob(context.Background(), "job-1", model.JobRequest{
		URL: "https://youtu.be/abc", Kind: model.KindMP3, Quality: "320kbps", OutDir: tmp,
	}, rep)
	if err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}

	want := filepath.Join(tmp, "Title.mp3")
	if res.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", res.OutputPath, want)
	}
	if res.Bytes != int64(len("converted")) {
		t.Errorf("Bytes = %d", res.Bytes)
	}
	if res.Request.Quality != "320" {
		t.Errorf("Quality = %q, want normalized 320", res.Request.Quality)
	}

	wantMsgs := []string{
		"Using FFmpeg from: " + ffDir,
		MsgRetrievingInfo,
		"Estimated file size: 5.0 MB",
		MsgStarting,
		"Downloading: 50.0%",
		"Downloading: 100.0%",
		"Download finished, starting conversion...",
		"Converting: FFmpegExtractAudio",
		"Conversion step completed",
		"Deleted temporary file: " + filepath.Join(tmp, "Title.webm.part"),
		MsgCompleted,
	}
	got := rep.messages()
	if strings.Join(got, "\n") != strings.Join(wantMsgs, "\n") {
		t.Errorf("messages:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(wantMsgs, "\n"))
	}

	if len(rep.results) != 1 || rep.results[0].Err != nil || rep.results[0].OutputPath != want {
		t.Errorf("results = %+v, want one success", rep.results)
	}
	if _, err := os.Stat(filepath.Join(tmp, "Title.webm.part")); !os.IsNotExist(err) {
		t.Errorf("residual file not removed: %v", err)
	}

	if got := argAfter(fr.calls[0].Args, "--ffmpeg-location"); got != ffDir {
		t.Errorf("metadata args missing ffmpeg location: %v", fr.calls[0].Args)
	}
	args := fr.calls[1].Args
	if argAfter(args, "--ffmpeg-location") != ffDir {
		t.Errorf("download args missing ffmpeg location: %v", args)
	}
	if argAfter(args, "--audio-quality") != "320K" {
		t.Errorf("download args quality: %v", args)
	}
}

func TestRunJob_ExistingOutputIsTouched(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "Title.mp3")
	if err := os.WriteFile(out, []byte("cached"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(out, past, past); err != nil {
		t.Fatal(err)
	}

	fr := &fakeRunner{t: t, metaJSON: metaJSON, ext: "mp3", existing: true}
	start := time.Now().Add(-time.Second)
	res, err := newTestService(fr).RunJob(context.Background(), "job-1", model.JobRequest{
		URL: "https://youtu.be/abc", Kind: model.KindMP3, OutDir: tmp,
	}, &recordingReporter{})
	if err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}
	if res.OutputPath != out {
		t.Errorf("OutputPath = %q, want %q", res.OutputPath, out)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if fi.ModTime().Before(start) {
		t.Errorf("mtime = %v, want after %v", fi.ModTime(), start)
	}
}

func TestRunJob_KeepIntermediateSkipsCleanup(t *testing.T) {
	tmp := t.TempDir()
	fr := &fakeRunner{t: t, metaJSON: metaJSON, ext: "wav"}
	s := newTestService(fr, WithKeepIntermediate(true))

	if _, err := s.RunJob(context.Background(), "job-k", model.JobRequest{
		URL: "https://youtu.be/abc", Kind: model.KindWAV, OutDir: tmp,
	}, nil); err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "Title.webm.part")); err != nil {
		t.Errorf("residual should be kept: %v", err)
	}
	if !contains(fr.calls[1].Args, "-k") {
		t.Errorf("expected -k in %v", fr.calls[1].Args)
	}
}

func TestRunJob_Trim(t *testing.T) {
	tmp := t.TempDir()
	fr := &fakeRunner{t: t, metaJSON: metaJSON, ext: "mp4"}
	rep := &recordingReporter{}
	s := newTestService(fr)

	start, end := 10*time.Second, 20*time.Second
	res, err := s.RunJob(context.Background(), "job-2", model.JobRequest{
		URL: "https://youtu.be/abc", Kind: model.KindMP4, OutDir: tmp, Start: &start, End: &end,
	}, rep)
	if err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}
	if len(fr.calls) != 3 || fr.calls[2].Path != ffPath {
		t.Fatalf("expected ffmpeg trim as third call, got %d calls", len(fr.calls))
	}
	ffArgs := fr.calls[2].Args
	if argAfter(ffArgs, "-ss") != "10.000" || argAfter(ffArgs, "-to") != "20.000" {
		t.Errorf("trim args = %v", ffArgs)
	}
	data, _ := os.ReadFile(res.OutputPath)
	if string(data) != "trimmed" {
		t.Errorf("output not replaced by trimmed file: %q", data)
	}

	var sawTrim bool
	for _, u := range rep.updates {
		if u.Stage == progress.StageTrimming && u.Message == "Trimming: 50.0%" {
			sawTrim = true
		}
	}
	if !sawTrim {
		t.Errorf("no trimming progress in %v", rep.messages())
	}
}

func TestRunJob_Failures(t *testing.T) {
	tests := []struct {
		name     string
		req      model.JobRequest
		runner   *fakeRunner
		locate   func(string) (deps.FFmpegLocation, error)
		wantCat  Category
		wantMsg  string
		wantIs   error
		maxCalls int
	}{
		{
			name:     "empty url",
			req:      model.JobRequest{Kind: model.KindMP3},
			runner:   &fakeRunner{},
			wantCat:  CategoryValidation,
			wantIs:   model.ErrEmptyURL,
			maxCalls: 0,
		},
		{
			name:   "ffmpeg missing",
			req:    model.JobRequest{URL: "https://youtu.be/abc", Kind: model.KindMP3},
			runner: &fakeRunner{},
			locate: func(string) (deps.FFmpegLocation, error) {
				return deps.FFmpegLocation{}, deps.ErrFFmpegNotFound
			},
			wantCat:  CategoryMissingTranscoder,
			wantMsg:  MsgFFmpegNotFound,
			wantIs:   ErrTranscoder,
			maxCalls: 0,
		},
		{
			name:     "no info",
			req:      model.JobRequest{URL: "https://youtu.be/abc", Kind: model.KindMP3},
			runner:   &fakeRunner{metaJSON: "null"},
			wantCat:  CategoryNoInfo,
			wantMsg:  MsgNoInfo,
			maxCalls: 1,
		},
		{
			name:     "private video",
			req:      model.JobRequest{URL: "https://youtu.be/abc", Kind: model.KindMP4},
			runner:   &fakeRunner{metaJSON: metaJSON, stderr: "ERROR: [youtube] abc: Private video. Sign in if you've been granted access"},
			wantCat:  CategoryPrivate,
			wantMsg:  MsgPrivate,
			wantIs:   ErrPrivate,
			maxCalls: 2,
		},
		{
			name:     "generic",
			req:      model.JobRequest{URL: "https://youtu.be/abc", Kind: model.KindMP3},
			runner:   &fakeRunner{metaJSON: metaJSON, stderr: "ERROR: HTTP Error 429: Too Many Requests"},
			wantCat:  CategoryDownload,
			wantMsg:  "Download error: HTTP Error 429: Too Many Requests",
			maxCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.runner.t = t
			tt.req.OutDir = t.TempDir()
			locate := tt.locate
			if locate == nil {
				locate = fakeLocate
			}
			rep := &recordingReporter{}
			s := NewService(WithDownloaderPath(dlPath), WithRunner(tt.runner), WithLocator(locate))

			_, err := s.RunJob(context.Background(), "job-x", tt.req, rep)
			var je *JobError
			if !errors.As(err, &je) {
				t.Fatalf("err = %v, want *JobError", err)
			}
			if je.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", je.Category, tt.wantCat)
			}
			if tt.wantMsg != "" && je.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", je.Message, tt.wantMsg)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(err, %v) = false", tt.wantIs)
			}
			if len(tt.runner.calls) > tt.maxCalls {
				t.Errorf("runner called %d times, want <= %d", len(tt.runner.calls), tt.maxCalls)
			}
			if len(rep.results) != 1 || rep.results[0].Err == nil {
				t.Fatalf("results = %+v, want one failure", rep.results)
			}
			last := rep.updates[len(rep.updates)-1]
			if last.Stage != progress.StageError || last.Message != je.Message {
				t.Errorf("last update = %+v", last)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	s := newTestService(&fakeRunner{})
	pl, err := s.Plan(model.JobRequest{URL: "https://youtu.be/abc", Kind: "MP4", Quality: "1080p", OutDir: "out"})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if pl.Request.Kind != model.KindMP4 || pl.Request.Quality != "1080" {
		t.Errorf("Request = %+v", pl.Request)
	}
	if pl.Options.FFmpegLocation != ffDir {
		t.Errorf("FFmpegLocation = %q", pl.Options.FFmpegLocation)
	}
	if argAfter(pl.MetadataArgs, "--ffmpeg-location") != ffDir {
		t.Errorf("MetadataArgs = %v", pl.MetadataArgs)
	}
	if pl.Args[len(pl.Args)-1] != "https://youtu.be/abc" {
		t.Errorf("Args = %v", pl.Args)
	}

	if _, err := s.Plan(model.JobRequest{URL: "x", Kind: model.KindMP3, Quality: "999", OutDir: "out"}); !errors.Is(err, model.ErrInvalidQuality) {
		t.Errorf("Plan() err = %v, want ErrInvalidQuality", err)
	}
}

func TestOnceReporter(t *testing.T) {
	rep := &recordingReporter{}
	o := &onceReporter{Reporter: rep}
	o.Update(progress.Update{Message: "a"})
	o.Result(progress.Result{JobID: "1"})
	o.Result(progress.Result{JobID: "2"})
	o.Update(progress.Update{Message: "late"})
	if len(rep.results) != 1 || rep.results[0].JobID != "1" {
		t.Errorf("results = %+v", rep.results)
	}
	if len(rep.updates) != 1 {
		t.Errorf("updates after result leaked: %+v", rep.updates)
	}
}
