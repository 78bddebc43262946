package queue

import (
	"snmp-stack/lib/ds/internal"

	"github.com/pkg/errors"
)

var ErrQueueEmpty = errors.New("queue is empty")

type Queue[T any] interface {
	// Enqueue adds v to the tail. Returns false if v was not accepted.
	Enqueue(v T) bool
	Dequeue() (T, error)
	Peek() (T, error)
	Len() uint
}

// NaiveQueue grows without bound.
type NaiveQueue[T any] struct {
	queue []T
}

func NewNaive[T any](initialCap uint) *NaiveQueue[T] {
	return &NaiveQueue[T]{queue: make([]T, 0, initialCap)}
}

var _ Queue[int] = (*NaiveQueue[int])(nil)

func (q *NaiveQueue[T]) Enqueue(v T) bool {
	q.queue = append(q.queue, v)
	return true
}

func (q *NaiveQueue[T]) Dequeue() (T, error) {
	if q.Len() == 0 {
		return internal.Zero[T](), ErrQueueEmpty
	}

	v := q.queue[0]
	// Let the dequeued element be collected.
	q.queue[0] = internal.Zero[T]()
	q.queue = q.queue[1:]

	return v, nil
}

func (q *NaiveQueue[T]) Peek() (T, error) {
	if q.Len() == 0 {
		return internal.Zero[T](), ErrQueueEmpty
	}
	return q.queue[0], nil
}

func (q *NaiveQueue[T]) Len() uint {
	return uint(len(q.queue))
}
