package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"

	"funlight/internal/model"
	"funlight/internal/util"
)

// Form field order; tab moves forward through it.
const (
	fieldURL = iota
	fieldFormat
	fieldQuality
	fieldStart
	fieldEnd
	fieldOutDir
	fieldButton
	fieldCount
)

// Defaults prefill the form.
type Defaults struct {
	URL     string
	Kind    model.OutputKind
	Quality string
	Start   string
	End     string
	OutDir  string
}

type form struct {
	focus   int
	url     textinput.Model
	start   textinput.Model
	end     textinput.Model
	outDir  textinput.Model
	kindIdx int
	qualIdx int
}

func newForm(d Defaults) form {
	mk := func(placeholder, value string, width int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = ""
		ti.Width = width
		ti.SetValue(value)
		return ti
	}
	f := form{
		url:    mk("Paste a video URL", d.URL, 60),
		start:  mk("optional, e.g. 1:30", d.Start, 12),
		end:    mk("optional, e.g. 2:45", d.End, 12),
		outDir: mk("output directory", d.OutDir, 60),
	}
	for i, k := range model.Kinds {
		if k == d.Kind {
			f.kindIdx = i
		}
	}
	f.resetQuality(d.Quality)
	f.url.Focus()
	return f
}

func (f form) kind() model.OutputKind {
	return model.Kinds[f.kindIdx]
}

func (f form) qualities() []string {
	return model.QualityOptions(f.kind())
}

func (f form) quality() string {
	qs := f.qualities()
	if len(qs) == 0 {
		return ""
	}
	return qs[f.qualIdx]
}

// resetQuality selects q, or the kind's default when q is not offered.
func (f *form) resetQuality(q string) {
	f.qualIdx = 0
	qs := f.qualities()
	if q == "" {
		q = model.DefaultQuality(f.kind())
	}
	for i, v := range qs {
		if v == q {
			f.qualIdx = i
		}
	}
}

func (f *form) cycleKind(delta int) {
	n := len(model.Kinds)
	f.kindIdx = (f.kindIdx + delta + n) % n
	f.resetQuality("")
}

func (f *form) cycleQuality(delta int) {
	n := len(f.qualities())
	if n == 0 {
		return
	}
	f.qualIdx = (f.qualIdx + delta + n) % n
}

func (f *form) inputs() map[int]*textinput.Model {
	return map[int]*textinput.Model{
		fieldURL:    &f.url,
		fieldStart:  &f.start,
		fieldEnd:    &f.end,
		fieldOutDir: &f.outDir,
	}
}

func (f *form) move(delta int) {
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	for i, in := range f.inputs() {
		if i == f.focus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

// request builds a job request from the current field values.
func (f form) request() (model.JobRequest, error) {
	url, err := util.NormalizeURL(f.url.Value())
	if err != nil {
		return model.JobRequest{}, err
	}
	start, err := model.ParseSeconds(f.start.Value())
	if err != nil {
		return model.JobRequest{}, fmt.Errorf("start: %w", err)
	}
	end, err := model.ParseSeconds(f.end.Value())
	if err != nil {
		return model.JobRequest{}, fmt.Errorf("end: %w", err)
	}
	return model.JobRequest{
		URL:     url,
		Kind:    f.kind(),
		Quality: f.quality(),
		Start:   start,
		End:     end,
		OutDir:  f.outDir.Value(),
	}, nil
}
