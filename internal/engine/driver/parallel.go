package driver

import (
	stdcontext "context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/internal/engine/scheduler"
)

// batchResult is one worker's contribution to a parallel random-search run.
type batchResult struct {
	ran        int
	failedIter int
	failure    *history.Failure
	sched      scheduler.Scheduler
}

// runParallel splits [0, p.IterationCount) into contiguous batches and runs
// them on up to workers goroutines at once, bounded by a weighted
// semaphore. Each batch gets its own scheduler+Context and runs strictly
// sequentially internally — only SearchRandom ever reaches this path,
// since its iterations reseed purely from their own iteration number and
// so carry no cross-iteration state a batch boundary could corrupt (unlike
// SearchFairFull/SearchContextBound's shared backtracking cursor).
//
// Once any batch reports a failure, batches not yet started are skipped;
// batches already in flight run to completion so their goroutines exit
// cleanly rather than being killed mid-iteration.
func runParallel(p Params, seed int64, workers int, run IterationFunc, progress func()) (iterations, failedIter int, failure *history.Failure, failedSched scheduler.Scheduler) {
	total := p.IterationCount
	batch := (total + workers - 1) / workers
	if batch < 1 {
		batch = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	bg := stdcontext.Background()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		stopped atomic.Bool
		results []batchResult
	)

	for start := 0; start < total; start += batch {
		end := start + batch
		if end > total {
			end = total
		}
		if err := sem.Acquire(bg, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(start, count int) {
			defer wg.Done()
			defer sem.Release(1)
			if stopped.Load() {
				return
			}
			sched := newScheduler(p, seed)
			ran, iter, fail, _ := runSequential(p, sched, run, start, count, progress)
			if fail != nil {
				stopped.Store(true)
			}
			mu.Lock()
			results = append(results, batchResult{ran: ran, failedIter: iter, failure: fail, sched: sched})
			mu.Unlock()
		}(start, end-start)
	}
	wg.Wait()

	failedIter = -1
	for _, r := range results {
		iterations += r.ran
		if r.failure == nil {
			continue
		}
		// Lowest iteration number among failing batches wins, so the
		// reported failure is independent of goroutine scheduling order.
		if failure == nil || r.failedIter < failedIter {
			failure = r.failure
			failedIter = r.failedIter
			failedSched = r.sched
		}
	}
	return iterations, failedIter, failure, failedSched
}
