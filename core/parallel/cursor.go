package parallel

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// WorkCursor hands out task indices in [0, tasks) one at a time.
//
// Claims are a compare-and-swap on a single counter, so the counter never
// moves past the task count and every index is returned exactly once between
// resets. The zero value has no tasks.
type WorkCursor struct {
	next  atomic.Int64
	tasks int64
}

// NewWorkCursor returns a cursor at 0 over tasks indices.
func NewWorkCursor(tasks int) *WorkCursor {
	return &WorkCursor{tasks: int64(tasks)}
}

// Claim returns the next unclaimed task index. The second result is false
// once every task has been handed out.
func (c *WorkCursor) Claim() (int, bool) {
	for {
		cur := c.next.Load()
		if cur >= c.tasks {
			return 0, false
		}
		if c.next.CompareAndSwap(cur, cur+1) {
			return int(cur), true
		}
	}
}

// Value is the number of tasks claimed so far.
func (c *WorkCursor) Value() int64 {
	return c.next.Load()
}

// Tasks is the task count the cursor was created with.
func (c *WorkCursor) Tasks() int {
	return int(c.tasks)
}

// Reset rewinds the cursor to 0. It must not race with Claim.
func (c *WorkCursor) Reset() {
	c.next.Store(0)
}

// Distribute runs fn for every task in [0, tasks) on a pool of units
// goroutines that pull task indices from a shared WorkCursor. A unit owns a
// task until fn returns, so tasks of very different cost balance across the
// pool. The assignment of tasks to units is not deterministic.
//
// The first error returned by fn stops every unit from claiming further
// tasks and is returned together with the final cursor value. A panic in fn
// also stops the pool and is re-raised on the calling goroutine once every
// unit has returned. units <= 0 selects one unit per CPU core.
func Distribute(units, tasks int, fn func(unit, task int) error) (int64, error) {
	if tasks < 0 {
		return 0, errors.NewValueError("Distribute", "task count must not be negative")
	}
	if tasks == 0 {
		return 0, nil
	}

	units = Units(units)
	if units > tasks {
		units = tasks
	}

	cursor := NewWorkCursor(tasks)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(units)

	var p panicSlot
	for u := 0; u < units; u++ {
		g.Go(func() (err error) {
			defer p.capture(&err)
			return drain(ctx, cursor, u, fn)
		})
	}

	err := g.Wait()
	p.repanic()
	return cursor.Value(), err
}

func drain(ctx context.Context, cursor *WorkCursor, unit int, fn func(unit, task int) error) error {
	for ctx.Err() == nil {
		task, ok := cursor.Claim()
		if !ok {
			return nil
		}
		if err := fn(unit, task); err != nil {
			return err
		}
	}
	return nil
}
