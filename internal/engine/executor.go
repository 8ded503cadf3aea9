package engine

import "context"

// Executor runs functions on the goroutine that owns a session. Background
// work hands its results back through Post.
type Executor interface {
	Post(fn func())
}

// Queue is a channel-backed Executor for owners that pump their own loop.
type Queue struct {
	ch chan func()
}

func NewQueue() *Queue {
	return &Queue{ch: make(chan func(), 256)}
}

func (q *Queue) Post(fn func()) {
	q.ch <- fn
}

// RunOne waits for one posted function and runs it.
func (q *Queue) RunOne(ctx context.Context) error {
	select {
	case fn := <-q.ch:
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs every function already posted and returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case fn := <-q.ch:
			fn()
			n++
		default:
			return n
		}
	}
}
