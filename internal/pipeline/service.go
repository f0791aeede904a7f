// Package pipeline runs one conversion job end to end: dependency checks,
// metadata lookup, the yt-dlp run, the optional trim, and cleanup.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"funlight/internal/downloader"
	"funlight/internal/encoder"
	"funlight/internal/model"
	"funlight/internal/progress"
	"funlight/internal/translate"
	"funlight/internal/util"
	"funlight/internal/util/deps"
	"funlight/internal/util/format"
)

// Status messages emitted while a job runs.
const (
	MsgRetrievingInfo = "Retrieving video information..."
	MsgStarting       = "Starting download and conversion..."
	MsgCompleted      = "Conversion completed successfully!"
)

// Service runs jobs. It holds no per-job state and may be reused.
type Service struct {
	dlPath           string
	ffmpegOverride   string
	runner           util.CmdRunner
	logger           *slog.Logger
	keepIntermediate bool
	exactTrim        bool
	locate           func(override string) (deps.FFmpegLocation, error)
	now              func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDownloaderPath sets the yt-dlp (or youtube-dl) binary path.
func WithDownloaderPath(p string) Option {
	return func(s *Service) {
		s.dlPath = p
	}
}

// WithFFmpegOverride pins ffmpeg to a directory or binary instead of probing.
func WithFFmpegOverride(p string) Option {
	return func(s *Service) {
		s.ffmpegOverride = p
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithKeepIntermediate keeps the pre-conversion video and fragments.
func WithKeepIntermediate(keep bool) Option {
	return func(s *Service) {
		s.keepIntermediate = keep
	}
}

// WithExactTrim re-encodes when trimming instead of copying streams.
func WithExactTrim(exact bool) Option {
	return func(s *Service) {
		s.exactTrim = exact
	}
}

// WithLocator replaces ffmpeg discovery.
func WithLocator(fn func(override string) (deps.FFmpegLocation, error)) Option {
	return func(s *Service) {
		s.locate = fn
	}
}

// NewService constructs a Service, filling defaults for anything unset.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locate == nil {
		s.locate = deps.LocateFFmpeg
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Plan is what a job would run, computed without touching the network.
type Plan struct {
	Request      model.JobRequest
	Options      translate.Options
	MetadataArgs []string
	Args         []string
	Downloader   string
	FFmpeg       deps.FFmpegLocation
	FFmpegErr    error
}

// Result is the outcome of a successful RunJob.
type Result struct {
	JobID      string
	Request    model.JobRequest
	Title      string
	OutputPath string
	Bytes      int64
	FFmpegDir  string
	Started    time.Time
	Finished   time.Time
}

// Plan validates req and renders the yt-dlp invocation for it.
func (s *Service) Plan(req model.JobRequest) (Plan, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}
	opts, err := translate.ForRequest(req)
	if err != nil {
		return Plan{}, err
	}
	opts.KeepVideo = s.keepIntermediate
	opts.KeepFragments = s.keepIntermediate

	pl := Plan{Request: req, Downloader: s.dlPath}
	pl.FFmpeg, pl.FFmpegErr = s.locate(s.ffmpegOverride)
	opts.FFmpegLocation = pl.FFmpeg.Dir
	pl.Options = opts
	pl.MetadataArgs = opts.MetadataArgs(req.URL)
	pl.Args = opts.Args(req.URL)
	return pl, nil
}

// RunJob executes one job. It never prints: events go to rep, which
// receives exactly one Result. Failures are returned as *JobError.
func (s *Service) RunJob(ctx context.Context, jobID string, req model.JobRequest, rep progress.Reporter) (Result, error) {
	if rep == nil {
		rep = progress.Discard
	}
	term := &onceReporter{Reporter: rep}
	log := s.logger.With("job_id", jobID)
	req = req.Normalize()
	log.Info("job started", "url", req.URL, "host", util.Host(req.URL), "kind", req.Kind, "quality", req.Quality)

	res, err := s.run(ctx, jobID, req, term)
	res.JobID = jobID
	res.Request = req
	res.Finished = s.now()

	if err != nil {
		je := Classify(err)
		log.Error("job failed", "category", je.Category, "error", err)
		term.Update(progress.Update{JobID: jobID, Stage: progress.StageError, Percent: -1, Message: je.Message})
		term.Result(progress.Result{JobID: jobID, Err: je})
		return res, je
	}

	log.Info("job finished", "output", res.OutputPath, "bytes", res.Bytes, "elapsed", res.Finished.Sub(res.Started).Round(time.Millisecond))
	term.Update(progress.Update{JobID: jobID, Stage: progress.StageCompleted, Percent: 100, Message: MsgCompleted})
	term.Result(progress.Result{JobID: jobID, OutputPath: res.OutputPath, Bytes: res.Bytes})
	return res, nil
}

func (s *Service) run(ctx context.Context, jobID string, req model.JobRequest, rep progress.Reporter) (Result, error) {
	res := Result{Started: s.now()}
	status := func(stage progress.Stage, msg string) {
		rep.Update(progress.Update{JobID: jobID, Stage: stage, Percent: -1, Message: msg})
	}

	// Step 1: validate
	if err := req.Validate(); err != nil {
		return res, err
	}
	if s.dlPath == "" {
		return res, deps.ErrDownloaderNotFound
	}

	// Step 2: ffmpeg, resolved fresh for every job
	loc, err := s.locate(s.ffmpegOverride)
	if err != nil {
		return res, err
	}
	res.FFmpegDir = loc.Dir
	status(progress.StageDeps, "Using FFmpeg from: "+loc.Dir)

	// Step 3: translate
	opts, err := translate.ForRequest(req)
	if err != nil {
		return res, err
	}
	opts.FFmpegLocation = loc.Dir
	opts.KeepVideo = s.keepIntermediate
	opts.KeepFragments = s.keepIntermediate

	if err := util.EnsureDir(req.OutDir); err != nil {
		return res, fmt.Errorf("create output directory: %w", err)
	}

	// Step 4: metadata
	client := downloader.Client{Path: s.dlPath, Runner: s.runner}
	status(progress.StageMetadata, MsgRetrievingInfo)
	info, err := client.FetchInfo(ctx, opts.MetadataArgs(req.URL))
	if err != nil {
		return res, err
	}
	res.Title = info.Title
	if size := info.EstimatedSize(); size > 0 {
		status(progress.StageMetadata, "Estimated file size: "+format.Megabytes(size))
		if free := util.FreeSpace(req.OutDir); free >= 0 && free < size {
			status(progress.StageMetadata, fmt.Sprintf("Warning: only %s free in %s", format.HumanizeBytes(free), req.OutDir))
		}
	}

	// Step 5: download and convert
	status(progress.StageDownloading, MsgStarting)
	since := s.now().Add(-time.Second)
	tracker := downloader.NewTracker(jobID, rep)
	if err := client.Download(ctx, opts.Args(req.URL), tracker); err != nil {
		return res, err
	}

	out := tracker.Output()
	if out == "" || !fileExists(out) {
		out, err = downloader.SelectOutput(req.OutDir, info.Title, opts.Ext(), since)
		if err != nil {
			return res, fmt.Errorf("locate converted file: %w", err)
		}
	}
	res.OutputPath = out

	// Step 6: trim
	if req.HasTrim() {
		_, err := encoder.Trim(ctx, encoder.TrimSpec{
			Input:    out,
			Start:    req.Start,
			End:      req.End,
			Reencode: s.exactTrim,
		}, encoder.Options{
			FFmpegPath: loc.Binary,
			Runner:     s.runner,
			Reporter:   rep,
			JobID:      jobID,
			Duration:   time.Duration(info.Duration * float64(time.Second)),
		})
		if err != nil {
			return res, &JobError{Category: CategoryTrim, Message: "Trim error: " + err.Error(), Err: err}
		}
	}

	// Step 7: cleanup
	if !s.keepIntermediate {
		s.cleanup(req.OutDir, rep, jobID)
	}

	// Step 8: touch
	if err := util.Touch(out); err != nil {
		s.logger.Warn("touch output", "job_id", jobID, "path", out, "error", err)
	}
	res.Bytes = util.FileSize(out)
	return res, nil
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// onceReporter forwards events until the first Result; later events are
// dropped so consumers see exactly one terminal event.
type onceReporter struct {
	progress.Reporter
	once sync.Once
	done bool
	mu   sync.Mutex
}

func (o *onceReporter) Update(u progress.Update) {
	if !o.closed() {
		o.Reporter.Update(u)
	}
}

func (o *onceReporter) Log(l progress.Log) {
	if !o.closed() {
		o.Reporter.Log(l)
	}
}

func (o *onceReporter) Result(r progress.Result) {
	o.once.Do(func() {
		o.Reporter.Result(r)
		o.mu.Lock()
		o.done = true
		o.mu.Unlock()
	})
}

func (o *onceReporter) closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// IsCategory reports whether err is a JobError of category c.
func IsCategory(err error, c Category) bool {
	var je *JobError
	return errors.As(err, &je) && je.Category == c
}
