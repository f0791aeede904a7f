package ui

import "funlight/internal/session"

// jobEventMsg carries one session event into the update loop.
type jobEventMsg struct {
	Event session.Event
}

// streamClosedMsg marks the end of the current job's events.
type streamClosedMsg struct {
	JobID string
}
