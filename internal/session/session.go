// Package session is the shared core of every shell: it runs at most one
// job at a time and streams that job's events to any number of subscribers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"funlight/internal/history"
	"funlight/internal/model"
	"funlight/internal/pipeline"
	"funlight/internal/progress"
)

var (
	ErrBusy        = errors.New("a conversion is already running")
	ErrJobNotFound = errors.New("job not found")
)

// State is the lifecycle state of a job.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is a point-in-time snapshot of a job.
type Job struct {
	ID         string           `json:"id"`
	Request    model.JobRequest `json:"request"`
	State      State            `json:"state"`
	Stage      progress.Stage   `json:"stage,omitempty"`
	Percent    float64          `json:"percent"`
	Message    string           `json:"message,omitempty"`
	OutputPath string           `json:"output_path,omitempty"`
	Bytes      int64            `json:"bytes,omitempty"`
	Error      string           `json:"error,omitempty"`
	Category   string           `json:"category,omitempty"`
	Created    time.Time        `json:"created"`
	Finished   time.Time        `json:"finished,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j Job) Done() bool {
	return j.State == StateSucceeded || j.State == StateFailed
}

func (j *Job) apply(ev Event) {
	switch ev.Kind {
	case KindUpdate:
		j.Stage = ev.Stage
		j.Percent = ev.Percent
		if ev.Message != "" {
			j.Message = ev.Message
		}
	case KindResult:
		j.Stage = ev.Stage
		j.Percent = ev.Percent
		j.OutputPath = ev.OutputPath
		j.Bytes = ev.Bytes
		j.Finished = ev.Time
		if ev.Error != "" {
			j.State = StateFailed
			j.Error = ev.Error
			j.Category = ev.Category
		} else {
			j.State = StateSucceeded
		}
	}
}

// Runner runs a single job; *pipeline.Service implements it.
type Runner interface {
	RunJob(ctx context.Context, jobID string, req model.JobRequest, rep progress.Reporter) (pipeline.Result, error)
}

// Recorder stores finished jobs; *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Session owns the single worker slot.
type Session struct {
	ctx      context.Context
	runner   Runner
	recorder Recorder
	logger   *slog.Logger
	hub      *hub
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	running string
	wg      sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder persists every finished job.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New returns a Session whose jobs run under ctx. Cancelling ctx stops
// the running job's subprocesses.
func New(ctx context.Context, runner Runner, opts ...Option) *Session {
	s := &Session{
		ctx:    ctx,
		runner: runner,
		hub:    newHub(),
		now:    time.Now,
		newID:  newJobID,
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "job-" + id.String()
}

// Start validates req and starts it in the background. It returns
// ErrBusy while another job is running.
func (s *Session) Start(req model.JobRequest) (Job, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Job{}, err
	}

	s.mu.Lock()
	if s.running != "" {
		s.mu.Unlock()
		return Job{}, ErrBusy
	}
	job := Job{
		ID:      s.newID(),
		Request: req,
		State:   StateRunning,
		Percent: -1,
		Created: s.now(),
	}
	s.running = job.ID
	s.hub.open(job)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.work(job)
	return job, nil
}

func (s *Session) work(job Job) {
	defer s.wg.Done()
	rep := &jobReporter{s: s, jobID: job.ID}
	res, err := s.runner.RunJob(s.ctx, job.ID, job.Request, rep)
	if !rep.sent {
		// The runner returned without a terminal event.
		rep.Result(progress.Result{JobID: job.ID, OutputPath: res.OutputPath, Bytes: res.Bytes, Err: err})
	}
	s.record(job, res, err)
}

func (s *Session) record(job Job, res pipeline.Result, err error) {
	if s.recorder == nil {
		return
	}
	e := history.Entry{
		JobID:      job.ID,
		URL:        job.Request.URL,
		Format:     string(job.Request.Kind),
		Quality:    job.Request.Quality,
		Title:      res.Title,
		OutputPath: res.OutputPath,
		Bytes:      res.Bytes,
		Status:     history.StatusSucceeded,
		Started:    job.Created,
		Finished:   s.now(),
	}
	if err != nil {
		e.Status = history.StatusFailed
		e.Error = err.Error()
		var je *pipeline.JobError
		if errors.As(err, &je) {
			e.Category = string(je.Category)
		}
	}
	// The session context may already be cancelled on shutdown.
	if rerr := s.recorder.Record(context.WithoutCancel(s.ctx), e); rerr != nil {
		s.logger.Warn("record history", "job_id", job.ID, "error", rerr)
	}
}

// finish frees the worker slot and publishes the terminal event, so a
// subscriber that sees the result can start the next job immediately.
func (s *Session) finish(r progress.Result) {
	s.mu.Lock()
	if s.running == r.JobID {
		s.running = ""
	}
	s.mu.Unlock()
	s.hub.publish(fromResult(r, s.now()))
}

// Busy reports whether a job is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != ""
}

// Running returns the ID of the running job, or "".
func (s *Session) Running() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Get returns a snapshot of a known job.
func (s *Session) Get(jobID string) (Job, error) {
	job, ok := s.hub.get(jobID)
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// Subscribe streams jobID's events. Status events published before the
// call are replayed first, with progress collapsed to its latest value.
// The channel is closed after the terminal event. Call cancel to stop early.
func (s *Session) Subscribe(jobID string) (events <-chan Event, cancel func(), err error) {
	ch, cancel, ok := s.hub.subscribe(jobID)
	if !ok {
		return nil, nil, ErrJobNotFound
	}
	return ch, cancel, nil
}

// Wait blocks until the running job, if any, has finished and been recorded.
func (s *Session) Wait() {
	s.wg.Wait()
}

// jobReporter adapts hub publishing to progress.Reporter.
type jobReporter struct {
	s     *Session
	jobID string
	sent  bool
}

func (r *jobReporter) Update(u progress.Update) {
	u.JobID = r.jobID
	r.s.hub.publish(fromUpdate(u, r.s.now()))
}

func (r *jobReporter) Log(l progress.Log) {
	l.JobID = r.jobID
	r.s.hub.publish(fromLog(l, r.s.now()))
}

func (r *jobReporter) Result(res progress.Result) {
	if r.sent {
		return
	}
	r.sent = true
	res.JobID = r.jobID
	r.s.finish(res)
}
