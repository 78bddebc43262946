package queue

import "snmp-stack/lib/ds/internal"

// Circular is a fixed-size ring buffer. It rejects elements once full
// instead of growing.
type Circular[T any] struct {
	queue      []T
	head, tail uint

	count uint
}

var _ Queue[int] = (*Circular[int])(nil)

func NewCircular[T any](size uint) *Circular[T] {
	return &Circular[T]{
		queue: make([]T, size),
		head:  0, tail: 0, count: 0,
	}
}

// Enqueue adds an element to the queue. Returns false if the queue is full.
func (q *Circular[T]) Enqueue(data T) (success bool) {
	if q.Len() == q.Size() {
		return false
	}

	q.queue[q.tail] = data
	q.tail = q.advance(q.tail)
	q.count++

	return true
}

// Dequeue removes and returns the front element of the queue.
// If the queue is empty. It will return [ErrQueueEmpty].
func (q *Circular[T]) Dequeue() (T, error) {
	if q.Len() == 0 {
		return internal.Zero[T](), ErrQueueEmpty
	}

	data := q.queue[q.head]
	q.queue[q.head] = internal.Zero[T]()

	q.head = q.advance(q.head)
	q.count--

	return data, nil
}

// Peek returns the head element without removing it.
// If the queue is empty. It will return [ErrQueueEmpty].
func (q *Circular[T]) Peek() (T, error) {
	if q.Len() == 0 {
		return internal.Zero[T](), ErrQueueEmpty
	}

	return q.queue[q.head], nil
}

// Len returns the number of elements in the queue.
func (q *Circular[T]) Len() uint {
	return q.count
}

// Size returns the capacity of the queue.
func (q *Circular[T]) Size() uint {
	return uint(len(q.queue))
}

func (q *Circular[T]) advance(n uint) uint {
	return (n + 1) % uint(len(q.queue))
}
