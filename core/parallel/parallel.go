// Package parallel provides the execution-unit pools used by the ranking
// objective: static chunking for per-element passes and a shared work
// cursor for skewed per-group tasks.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/querylogit/pkg/errors"
)

// Units resolves a requested unit count. Non-positive values select one unit
// per CPU core.
func Units(requested int) int {
	if requested <= 0 {
		return runtime.NumCPU()
	}
	return requested
}

// Parallelize splits [0, items) into one contiguous range per CPU core and
// runs fn on every range concurrently. It returns once all ranges are done.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeUnits(0, items, fn)
}

// ParallelizeUnits is Parallelize with an explicit unit count. A panic in
// fn is re-raised on the calling goroutine after every range has returned.
func ParallelizeUnits(units, items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := Units(units)
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var (
		wg sync.WaitGroup
		p  panicSlot
	)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer p.capture(nil)
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
	p.repanic()
}

// errUnitPanicked cancels the remaining units of a pool after a panic.
var errUnitPanicked = errors.New("parallel: execution unit panicked")

// panicSlot keeps the first panic raised by any unit of a pool.
type panicSlot struct {
	once  sync.Once
	value any
	set   bool
}

// capture must be deferred directly by the unit goroutine. If err is not
// nil it receives errUnitPanicked so that an errgroup stops the pool.
func (p *panicSlot) capture(err *error) {
	r := recover()
	if r == nil {
		return
	}
	p.once.Do(func() {
		p.value = r
		p.set = true
	})
	if err != nil {
		*err = errUnitPanicked
	}
}

func (p *panicSlot) repanic() {
	if p.set {
		panic(p.value)
	}
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and through Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
