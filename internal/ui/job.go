package ui

import (
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"funlight/internal/progress"
	"funlight/internal/session"
)

const logRingSize = 200

// jobState is what the view knows about the current job.
type jobState struct {
	id     string
	url    string
	stage  progress.Stage
	status string
	err    string
	done   bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown
	speed      string

	spinner spinner.Model
	bar     bubblesprogress.Model

	logsRing []string
}

func newJobState(id, url string, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      id,
		url:     url,
		stage:   progress.StageDeps,
		status:  "Starting...",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}

func (js *jobState) apply(ev session.Event) {
	switch ev.Kind {
	case session.KindUpdate:
		js.stage = ev.Stage
		js.percent = ev.Percent
		js.speed = ev.Speed
		if ev.Message != "" {
			js.status = ev.Message
		}
	case session.KindLog:
		line := strings.TrimRight(ev.Line, "\r\n")
		if len(js.logsRing) >= logRingSize {
			js.logsRing = js.logsRing[1:]
		}
		js.logsRing = append(js.logsRing, line)
	case session.KindResult:
		js.done = true
		js.stage = ev.Stage
		js.outputPath = ev.OutputPath
		js.bytes = ev.Bytes
		js.speed = ""
		if ev.Error != "" {
			js.err = ev.Error
			js.status = ev.Error
			js.percent = -1
		} else {
			js.percent = 100
		}
	}
}
