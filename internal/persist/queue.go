package persist

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tilemirror/tilemirror/internal/cache"
)

var ErrQueueFull = errors.New("persist queue full")

type Task struct {
	Key    string
	Object cache.Object
}

// Sink receives persistence failures. Writes are best-effort; nothing here
// ever reaches the client.
type Sink func(key string, err error)

// Queue writes tiles to the store on background workers. Workers run with a
// background context: a client disconnect must not cancel a write that has
// already been enqueued.
type Queue struct {
	store cache.Store
	tasks chan Task
	sink  Sink
	wg    sync.WaitGroup
}

func NewQueue(store cache.Store, size, workers int, sink Sink) *Queue {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}
	if sink == nil {
		sink = func(key string, err error) {
			log.Error().Err(err).Str("key", key).Msg("tile persist failed")
		}
	}
	q := &Queue{
		store: store,
		tasks: make(chan Task, size),
		sink:  sink,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue hands a tile to the background writers without blocking. When the
// queue is full the task is dropped and reported to the sink.
func (q *Queue) Enqueue(t Task) {
	select {
	case q.tasks <- t:
	default:
		q.sink(t.Key, ErrQueueFull)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		if err := q.store.Put(context.Background(), t.Key, t.Object); err != nil {
			q.sink(t.Key, err)
		}
	}
}

// Close drains pending tasks and stops the workers. Enqueue must not be
// called after Close.
func (q *Queue) Close() {
	close(q.tasks)
	q.wg.Wait()
}
