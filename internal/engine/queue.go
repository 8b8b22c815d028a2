package engine

import "sync"

// messageKind distinguishes work posted to the driver from other goroutines.
type messageKind int

const (
	// messageCallback runs fn on the driver on behalf of a task.
	messageCallback messageKind = iota + 1
	// messageTaskDone reports that a task goroutine returned.
	messageTaskDone
	// messageEvent delivers a renderer event.
	messageEvent
)

// message is one unit of work for the driver.
type message struct {
	kind messageKind
	task TaskID
	fn   func()
	err  error
}

// messageQueue is a thread-safe FIFO of messages for the driver.
//
// Task goroutines and hosts enqueue; only the driver dequeues. The signal
// channel lets the driver wait for work while honouring context
// cancellation.
type messageQueue struct {
	mu       sync.Mutex
	messages []message
	closed   bool
	signal   chan struct{}
}

func newMessageQueue() *messageQueue {
	return &messageQueue{
		messages: make([]message, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// enqueue adds m. Returns false once the queue is closed.
func (q *messageQueue) enqueue(m message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.messages = append(q.messages, m)

	// Buffer of one coalesces wakeups.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue pops the front message without blocking.
func (q *messageQueue) tryDequeue() (message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return message{}, false
	}
	m := q.messages[0]
	// Drop the closure so the backing array does not pin it.
	q.messages[0] = message{}
	if len(q.messages) == 1 {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[1:]
	}
	return m, true
}

// wait returns a channel that fires when messages may be available. It is
// closed when the queue closes.
func (q *messageQueue) wait() <-chan struct{} {
	return q.signal
}

func (q *messageQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

func (q *messageQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// close rejects further messages and wakes any waiter.
func (q *messageQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.messages = nil
	close(q.signal)
}
