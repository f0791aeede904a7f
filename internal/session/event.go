package session

import (
	"errors"
	"time"

	"funlight/internal/pipeline"
	"funlight/internal/progress"
)

// EventKind tells subscribers which fields of an Event are set.
type EventKind string

const (
	KindUpdate EventKind = "update"
	KindLog    EventKind = "log"
	KindResult EventKind = "result"
)

// Event is the shell-facing form of a job event. It is safe to marshal.
type Event struct {
	Kind    EventKind      `json:"kind"`
	JobID   string         `json:"job_id"`
	Time    time.Time      `json:"time"`
	Stage   progress.Stage `json:"stage,omitempty"`
	Percent float64        `json:"percent"`
	Message string         `json:"message,omitempty"`
	Speed   string         `json:"speed,omitempty"`
	ETASec  float64        `json:"eta_seconds,omitempty"`
	Stream  string         `json:"stream,omitempty"`
	Line    string         `json:"line,omitempty"`

	OutputPath string `json:"output_path,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	Error      string `json:"error,omitempty"`
	Category   string `json:"category,omitempty"`
}

// Terminal reports whether e ends its job's stream.
func (e Event) Terminal() bool {
	return e.Kind == KindResult
}

func fromUpdate(u progress.Update, at time.Time) Event {
	ev := Event{
		Kind:    KindUpdate,
		JobID:   u.JobID,
		Time:    at,
		Stage:   u.Stage,
		Percent: u.Percent,
		Message: u.Message,
	}
	if u.Speed != nil {
		ev.Speed = *u.Speed
	}
	if u.ETA != nil {
		ev.ETASec = u.ETA.Seconds()
	}
	if u.Bytes != nil {
		ev.Bytes = *u.Bytes
	}
	return ev
}

func fromLog(l progress.Log, at time.Time) Event {
	return Event{Kind: KindLog, JobID: l.JobID, Time: at, Percent: -1, Stream: l.Stream.String(), Line: l.Line}
}

func fromResult(r progress.Result, at time.Time) Event {
	ev := Event{Kind: KindResult, JobID: r.JobID, Time: at, OutputPath: r.OutputPath, Bytes: r.Bytes}
	if r.Err != nil {
		ev.Stage = progress.StageError
		ev.Percent = -1
		ev.Error = r.Err.Error()
		var je *pipeline.JobError
		if errors.As(r.Err, &je) {
			ev.Category = string(je.Category)
		}
	} else {
		ev.Stage = progress.StageCompleted
		ev.Percent = 100
	}
	return ev
}
