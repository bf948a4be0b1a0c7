package jobqueue

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// Latch counts outstanding work down to zero. Wait blocks until every Add
// has been matched by a Done.
type Latch struct {
	wg    sync.WaitGroup
	count atomic.Int64
}

func NewLatch(n int) *Latch {
	l := &Latch{}
	l.Add(n)
	return l
}

func (l *Latch) Add(n int) {
	l.wg.Add(n)
	l.count.Add(int64(n))
}

func (l *Latch) Done() {
	l.count.Dec()
	l.wg.Done()
}

// Count is the number of outstanding items.
func (l *Latch) Count() int {
	return int(l.count.Load())
}

func (l *Latch) Wait() {
	l.wg.Wait()
}

// WaitContext is Wait that gives up when ctx is done. Its helper goroutine
// lives until the count reaches zero, so a caller that gives up should drop
// the rest of its batch with Queue.Drop.
func (l *Latch) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
