package session

import (
	"sync"

	"funlight/internal/progress"
)

const (
	subscriberBuffer = 16
	subscriberQueue  = 256
	maxReplay        = 128
	maxFinishedJobs  = 32
)

// hub keeps the state and event history of each job and fans events out
// to subscribers. Publishing never blocks: every subscriber has its own
// queue drained by a pump goroutine. When a queue is full, log lines and
// percent progress are shed first; phase messages and the terminal event
// are always delivered.
type hub struct {
	mu    sync.Mutex
	jobs  map[string]*jobEntry
	order []string
}

type jobEntry struct {
	job    Job
	replay []Event
	subs   map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{jobs: make(map[string]*jobEntry)}
}

func (h *hub) open(job Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs[job.ID] = &jobEntry{job: job, subs: make(map[*subscriber]struct{})}
	h.order = append(h.order, job.ID)
	h.evict()
}

// evict drops the oldest finished jobs beyond maxFinishedJobs.
func (h *hub) evict() {
	for len(h.order) > maxFinishedJobs {
		id := h.order[0]
		if e, ok := h.jobs[id]; ok && !e.job.Done() {
			return
		}
		delete(h.jobs, id)
		h.order = h.order[1:]
	}
}

func (h *hub) get(id string) (Job, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// subscribe replays the job's history and then streams new events. The
// channel is closed after the terminal event or when cancel is called.
func (h *hub) subscribe(id string) (<-chan Event, func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.jobs[id]
	if !ok {
		return nil, nil, false
	}
	sub := newSubscriber()
	for _, ev := range e.replay {
		sub.push(ev)
	}
	if !e.job.Done() {
		e.subs[sub] = struct{}{}
	}
	cancel := func() {
		h.mu.Lock()
		delete(e.subs, sub)
		h.mu.Unlock()
		sub.stop()
	}
	return sub.out, cancel, true
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.jobs[ev.JobID]
	if !ok {
		return
	}
	e.job.apply(ev)
	if ev.Kind != KindLog {
		e.remember(ev)
	}
	for sub := range e.subs {
		sub.push(ev)
	}
	if ev.Terminal() {
		// Subscribers close themselves once the terminal event is delivered.
		e.subs = make(map[*subscriber]struct{})
		h.evict()
	}
}

// remember appends ev to the replay history. Consecutive progress events
// of one stage collapse into the latest.
func (e *jobEntry) remember(ev Event) {
	if n := len(e.replay); n > 0 && sheddable(ev) {
		if tail := e.replay[n-1]; sheddable(tail) && tail.Stage == ev.Stage {
			e.replay[n-1] = ev
			return
		}
	}
	if len(e.replay) >= maxReplay {
		e.replay = append(e.replay[:0], e.replay[1:]...)
	}
	e.replay = append(e.replay, ev)
}

// sheddable reports whether ev may be dropped for a slow subscriber.
// A later event of the same kind supersedes it.
func sheddable(ev Event) bool {
	switch ev.Kind {
	case KindLog:
		return true
	case KindUpdate:
		return ev.Percent >= 0 && (ev.Stage == progress.StageDownloading || ev.Stage == progress.StageTrimming)
	}
	return false
}

// subscriber is one consumer's queue. push never blocks.
type subscriber struct {
	out  chan Event
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	queue []Event
}

func newSubscriber() *subscriber {
	s := &subscriber{
		out:  make(chan Event, subscriberBuffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *subscriber) push(ev Event) {
	s.mu.Lock()
	if len(s.queue) >= subscriberQueue {
		if !ev.Terminal() && sheddable(ev) {
			s.mu.Unlock()
			return
		}
		s.shed()
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// shed removes the oldest sheddable event, or the oldest event when
// nothing can be shed. The terminal event is always last, so it stays.
func (s *subscriber) shed() {
	for i, ev := range s.queue {
		if sheddable(ev) {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
	s.queue = s.queue[1:]
}

func (s *subscriber) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		ev, ok := s.pop()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
		if ev.Terminal() {
			return
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
