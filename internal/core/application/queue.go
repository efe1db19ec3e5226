package application

import (
	"sync"
	"time"

	"github.com/gigledger/gigd/internal/core/domain"
)

const (
	maxRetryAttempts = 3
	maxDrainPerTick  = 10
)

// queuedEvent wraps an inbound ledger event with its retry bookkeeping.
type queuedEvent struct {
	Event      domain.Event
	RetryCount int
	EnqueuedAt time.Time
	LastError  string
}

// eventQueue buffers raw ledger events per type, decoupling delivery cadence
// from processing cadence. Within one type FIFO is preserved across retries:
// a retried event re-enters at the tail, so a poison event cannot block its
// queue, at the cost of strict chronological replay for that one event.
type eventQueue struct {
	lock    *sync.Mutex
	buffers map[domain.EventType][]queuedEvent
	dead    []queuedEvent
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		lock:    &sync.Mutex{},
		buffers: make(map[domain.EventType][]queuedEvent),
		dead:    make([]queuedEvent, 0),
	}
}

func (q *eventQueue) enqueue(event domain.Event) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.buffers[event.Type()] = append(q.buffers[event.Type()], queuedEvent{
		Event:      event,
		EnqueuedAt: time.Now(),
	})
}

func (q *eventQueue) drainBatch(eventType domain.EventType, maxCount int) []queuedEvent {
	q.lock.Lock()
	defer q.lock.Unlock()

	buf := q.buffers[eventType]
	if len(buf) == 0 {
		return nil
	}
	n := maxCount
	if n > len(buf) {
		n = len(buf)
	}
	batch := make([]queuedEvent, n)
	copy(batch, buf[:n])
	q.buffers[eventType] = buf[n:]
	return batch
}

// requeue returns the event to the tail of its buffer with an incremented
// retry count, or moves it to the dead-letter list once the retry budget is
// spent. It reports whether the event was dead-lettered.
func (q *eventQueue) requeue(item queuedEvent, cause error) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	item.RetryCount++
	item.LastError = cause.Error()
	if item.RetryCount >= maxRetryAttempts {
		q.dead = append(q.dead, item)
		return true
	}
	q.buffers[item.Event.Type()] = append(q.buffers[item.Event.Type()], item)
	return false
}

// deadLetter moves the event straight to the dead-letter list, bypassing the
// retry budget. Used for non-retryable integrity and fairness failures.
func (q *eventQueue) deadLetter(item queuedEvent, cause error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	item.LastError = cause.Error()
	q.dead = append(q.dead, item)
}

func (q *eventQueue) deadLetters() []queuedEvent {
	q.lock.Lock()
	defer q.lock.Unlock()

	snapshot := make([]queuedEvent, len(q.dead))
	copy(snapshot, q.dead)
	return snapshot
}

func (q *eventQueue) size() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	tot := 0
	for _, buf := range q.buffers {
		tot += len(buf)
	}
	return tot
}
