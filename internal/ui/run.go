package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"funlight/internal/session"
)

// Run shows the interactive form until the user quits. It returns the
// error of the last job when that job failed. A job still running when
// the user quits keeps running under sess; the caller decides whether to
// wait for it or cancel it.
func Run(ctx context.Context, sess *session.Session, d Defaults) error {
	prog := tea.NewProgram(NewModel(ctx, sess, d), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.job != nil && fm.job.err != "" {
		return errors.New(fm.job.err)
	}
	return nil
}
