package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"funlight/internal/progress"
	"funlight/internal/session"
	"funlight/internal/util/format"
)

// renderer prints a job's event stream for the plain CLI. On a terminal
// download and trim progress draw a bar; otherwise progress is printed as
// a line every 10%.
type renderer struct {
	w       io.Writer
	useBar  bool
	verbose bool

	bar     *progressbar.ProgressBar
	stage   progress.Stage
	step    int
	lastMsg string
}

func newRenderer(w io.Writer, useBar, verbose bool) *renderer {
	return &renderer{w: w, useBar: useBar, verbose: verbose, step: -1}
}

// Run consumes events until the stream closes.
func (r *renderer) Run(events <-chan session.Event) {
	for ev := range events {
		r.handle(ev)
	}
	r.clearBar()
}

func (r *renderer) handle(ev session.Event) {
	switch ev.Kind {
	case session.KindLog:
		if r.verbose {
			r.println(ev.Line)
		}
	case session.KindUpdate:
		if ev.Percent >= 0 && (ev.Stage == progress.StageDownloading || ev.Stage == progress.StageTrimming) {
			r.progress(ev)
			return
		}
		r.status(ev.Message)
	case session.KindResult:
		r.clearBar()
	}
}

func (r *renderer) progress(ev session.Event) {
	if ev.Stage != r.stage {
		r.clearBar()
		r.stage = ev.Stage
		r.step = -1
	}
	if !r.useBar {
		if step := int(ev.Percent) / 10; step != r.step {
			r.step = step
			r.println(ev.Message)
		}
		return
	}
	if r.bar == nil {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	r.bar.Describe(describe(ev))
	_ = r.bar.Set(int(ev.Percent))
}

// describe builds the text shown left of the bar.
func describe(ev session.Event) string {
	label := "Downloading"
	if ev.Stage == progress.StageTrimming {
		label = "Trimming"
	}
	if ev.Speed != "" {
		label += " " + ev.Speed
	}
	if ev.ETASec > 0 {
		label += " ETA " + format.Clock(time.Duration(ev.ETASec*float64(time.Second)))
	}
	return label
}

func (r *renderer) status(msg string) {
	if msg == "" || msg == r.lastMsg {
		return
	}
	r.lastMsg = msg
	r.clearBar()
	r.println(msg)
}

func (r *renderer) clearBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Clear()
	r.bar = nil
}

func (r *renderer) println(s string) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintln(r.w, s)
}
