package ticker

import (
	"sync"
)

// Mailbox is an unbounded FIFO queue. It starts as a ring of the given
// capacity and doubles once it is 70% full, so senders never block.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int
	tail   int
	count  int
	closed bool

	delivered int64
	consumed  int64
	grows     int
}

// MailboxStats describes a mailbox at a point in time.
type MailboxStats struct {
	Pending   int
	Capacity  int
	Delivered int64
	Consumed  int64
	Grows     int
}

// NewMailbox creates a mailbox with the given initial capacity.
func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity < 1 {
		capacity = 1
	}
	m := &Mailbox[T]{ring: make([]T, capacity)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Send enqueues msg. It returns false once the mailbox is closed.
func (m *Mailbox[T]) Send(msg T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	threshold := (len(m.ring) * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if m.count+1 >= threshold {
		m.grow()
	}

	m.ring[m.tail] = msg
	m.tail = (m.tail + 1) % len(m.ring)
	m.count++
	m.delivered++

	m.cond.Signal()
	return true
}

// Receive blocks until a message is available. After Close it keeps returning
// queued messages and reports false only once the mailbox is empty.
func (m *Mailbox[T]) Receive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.count == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.count == 0 {
		var zero T
		return zero, false
	}
	return m.pop(), true
}

// Close stops accepting messages and wakes blocked receivers.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.cond.Broadcast()
}

// Len returns the number of queued messages.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Stats returns mailbox statistics.
func (m *Mailbox[T]) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{
		Pending:   m.count,
		Capacity:  len(m.ring),
		Delivered: m.delivered,
		Consumed:  m.consumed,
		Grows:     m.grows,
	}
}

// pop removes the head message. Must be called with lock held and count > 0.
func (m *Mailbox[T]) pop() T {
	msg := m.ring[m.head]
	var zero T
	m.ring[m.head] = zero
	m.head = (m.head + 1) % len(m.ring)
	m.count--
	m.consumed++
	return msg
}

// grow doubles the ring. Must be called with lock held.
func (m *Mailbox[T]) grow() {
	ring := make([]T, len(m.ring)*2)
	if m.count > 0 {
		if m.head < m.tail {
			copy(ring, m.ring[m.head:m.tail])
		} else {
			n := copy(ring, m.ring[m.head:])
			copy(ring[n:], m.ring[:m.tail])
		}
	}
	m.ring = ring
	m.head = 0
	m.tail = m.count
	m.grows++
}
