package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"funlight/internal/session"
	"funlight/internal/util/format"
)

// Model is the interactive form plus the status of the current job.
type Model struct {
	ctx  context.Context
	sess *session.Session

	form   form
	job    *jobState
	events <-chan session.Event
	stop   func()
	notice string

	completed []string

	width, height int
	styles        Styles
}

// NewModel builds the TUI over sess.
func NewModel(ctx context.Context, sess *session.Session, d Defaults) Model {
	return Model{
		ctx:    ctx,
		sess:   sess,
		form:   newForm(d),
		styles: defaultStyles(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// running reports whether the Start button is disabled.
func (m Model) running() bool {
	return m.job != nil && !m.job.done
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.stop != nil {
				m.stop()
			}
			return m, tea.Quit
		case "tab", "down":
			m.form.move(1)
			return m, nil
		case "shift+tab", "up":
			m.form.move(-1)
			return m, nil
		case "ctrl+s":
			return m.start()
		case "enter":
			if m.form.focus == fieldButton || m.form.focus == fieldURL {
				return m.start()
			}
			m.form.move(1)
			return m, nil
		case "left", "right":
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			switch m.form.focus {
			case fieldFormat:
				m.form.cycleKind(delta)
				return m, nil
			case fieldQuality:
				m.form.cycleQuality(delta)
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case jobEventMsg:
		if m.job == nil || msg.Event.JobID != m.job.id {
			return m, nil
		}
		m.job.apply(msg.Event)
		if msg.Event.Terminal() && msg.Event.Error == "" && msg.Event.OutputPath != "" {
			m.completed = append(m.completed, msg.Event.OutputPath)
		}
		return m, m.listen()

	case streamClosedMsg:
		if m.job != nil && msg.JobID == m.job.id {
			m.events, m.stop = nil, nil
			m.syncJob()
		}
		return m, nil
	}

	var cmds []tea.Cmd
	if in, ok := m.form.inputs()[m.form.focus]; ok {
		var c tea.Cmd
		*in, c = in.Update(msg)
		cmds = append(cmds, c)
	}
	if m.running() {
		var c tea.Cmd
		m.job.spinner, c = m.job.spinner.Update(msg)
		cmds = append(cmds, c)
	}
	return m, tea.Batch(cmds...)
}

// start launches a job from the form. It is a no-op while a job runs.
func (m Model) start() (tea.Model, tea.Cmd) {
	if m.running() {
		m.notice = "A conversion is already running."
		return m, nil
	}
	req, err := m.form.request()
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	job, err := m.sess.Start(req)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			m.notice = "A conversion is already running."
		} else {
			m.notice = err.Error()
		}
		return m, nil
	}
	events, stop, err := m.sess.Subscribe(job.ID)
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}

	js := newJobState(job.ID, job.Request.URL, m.styles)
	m.job = &js
	m.events, m.stop = events, stop
	m.notice = ""
	return m, tea.Batch(m.listen(), js.spinner.Tick)
}

func (m Model) listen() tea.Cmd {
	ch := m.events
	if ch == nil || m.job == nil {
		return nil
	}
	id := m.job.id
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return streamClosedMsg{JobID: id}
		case ev, ok := <-ch:
			if !ok {
				return streamClosedMsg{JobID: id}
			}
			return jobEventMsg{Event: ev}
		}
	}
}

// syncJob settles the job view from the session snapshot once its stream
// has closed without a terminal event.
func (m *Model) syncJob() {
	if m.job == nil || m.job.done {
		return
	}
	snap, err := m.sess.Get(m.job.id)
	if err != nil || !snap.Done() {
		if !m.sess.Busy() {
			m.job.apply(session.Event{Kind: session.KindResult, JobID: m.job.id, Error: "Conversion stopped."})
		}
		return
	}
	m.job.apply(session.Event{
		Kind:       session.KindResult,
		JobID:      snap.ID,
		Stage:      snap.Stage,
		Percent:    snap.Percent,
		OutputPath: snap.OutputPath,
		Bytes:      snap.Bytes,
		Error:      snap.Error,
		Category:   snap.Category,
	})
	if snap.Error == "" && snap.OutputPath != "" {
		m.completed = append(m.completed, snap.OutputPath)
	}
}

func savedMessage(path string, size int64) string {
	return fmt.Sprintf("Saved: %s (%s)", filepath.Base(path), format.HumanizeBytes(size))
}
