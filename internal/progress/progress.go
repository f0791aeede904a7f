// Package progress defines the job event stream shared by the worker and shells.
package progress

import "time"

// Stage identifies a high-level step of a job.
type Stage string

const (
	StageDeps        Stage = "deps"
	StageMetadata    Stage = "metadata"
	StageDownloading Stage = "downloading"
	StageConverting  Stage = "converting"
	StageTrimming    Stage = "trimming"
	StageCleanup     Stage = "cleanup"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

func (s LogStream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// Update conveys progress or a phase message for a job.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64 // 0..100, or <0 if unknown

	ETA     *time.Duration // optional
	Bytes   *int64         // optional cumulative bytes
	Speed   *string        // optional, e.g., "2.5MiB/s" or "1.2x"
	Message string         // short human-friendly status line
}

// Log is a raw subprocess line associated with a job.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is the terminal event: emitted exactly once per job.
type Result struct {
	JobID      string
	OutputPath string
	Bytes      int64
	Err        error // nil on success
}

// Reporter is implemented by every shell interested in job events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Discard drops every event.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Update(Update) {}
func (discard) Log(Log)       {}
func (discard) Result(Result) {}

// Multi fans events out to several reporters in order.
func Multi(reps ...Reporter) Reporter {
	out := make(multi, 0, len(reps))
	for _, r := range reps {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multi []Reporter

func (m multi) Update(u Update) {
	for _, r := range m {
		r.Update(u)
	}
}

func (m multi) Log(l Log) {
	for _, r := range m {
		r.Log(l)
	}
}

func (m multi) Result(res Result) {
	for _, r := range m {
		r.Result(res)
	}
}
