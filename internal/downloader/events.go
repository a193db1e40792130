package downloader

import (
	"sync"

	"github.com/tanq16/tubeq/internal/types"
)

// eventQueue decouples the coordinator from slow observers. State events are
// queued without bound; a queued progress event for a task is overwritten by
// newer progress for the same task unless a state event for that task was
// queued in between.
type eventQueue struct {
	mu       sync.Mutex
	pending  []types.Event
	progress map[string]int
	notify   chan struct{}
	stop     chan struct{}
	out      chan types.Event
	once     sync.Once
}

func newEventQueue(buffer int) *eventQueue {
	q := &eventQueue{
		progress: make(map[string]int),
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		out:      make(chan types.Event, buffer),
	}
	go q.run()
	return q
}

func (q *eventQueue) push(ev types.Event) {
	q.mu.Lock()
	if ev.Type == types.EventProgress {
		if i, ok := q.progress[ev.TaskID]; ok {
			q.pending[i] = ev
			q.mu.Unlock()
			return
		}
		q.progress[ev.TaskID] = len(q.pending)
	} else {
		// later progress must not jump ahead of this event
		delete(q.progress, ev.TaskID)
	}
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	defer close(q.out)
	for {
		select {
		case <-q.stop:
			return
		case <-q.notify:
		}
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		clear(q.progress)
		q.mu.Unlock()
		for _, ev := range batch {
			select {
			case q.out <- ev:
			case <-q.stop:
				return
			}
		}
	}
}

func (q *eventQueue) close() {
	q.once.Do(func() { close(q.stop) })
}
