package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tunogya/saliency/pkg/model"
)

// UnitFunc computes the result for one work unit
type UnitFunc func(ctx context.Context, unit model.WorkUnit) (model.SaliencyResult, error)

// Dispatcher maps a batch of work units through fn. The returned results
// correspond positionally to units. A batch either completes fully or fails
// with the first error; partial results are never returned.
type Dispatcher interface {
	Map(ctx context.Context, key BatchKey, units []model.WorkUnit, fn UnitFunc, obs Observer) ([]model.SaliencyResult, error)
}

// Sequential runs units one after another on the calling goroutine
type Sequential struct{}

func (Sequential) Map(ctx context.Context, key BatchKey, units []model.WorkUnit, fn UnitFunc, obs Observer) ([]model.SaliencyResult, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	results := make([]model.SaliencyResult, 0, len(units))
	for _, u := range units {
		start := time.Now()
		res, err := fn(ctx, u)
		obs.UnitDone(key, u, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Parallel fans units out over a bounded pool of goroutines. Results are
// written into their input slot, so order does not depend on completion order.
// On failure it reports the error of the lowest failing index, the same unit
// Sequential would stop at. Units after a known failure are skipped.
type Parallel struct {
	Workers int
}

// NewParallel creates a parallel dispatcher; workers <= 0 uses GOMAXPROCS
func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Parallel{Workers: workers}
}

func (p *Parallel) Map(ctx context.Context, key BatchKey, units []model.WorkUnit, fn UnitFunc, obs Observer) ([]model.SaliencyResult, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	results := make([]model.SaliencyResult, len(units))
	errs := make([]error, len(units))

	var (
		mu        sync.Mutex
		minFailed = len(units)
	)
	failedBefore := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return minFailed < i
	}
	fail := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		minFailed = min(minFailed, i)
	}

	var g errgroup.Group
	g.SetLimit(max(p.Workers, 1))

	for i, u := range units {
		g.Go(func() error {
			if failedBefore(i) {
				return nil
			}
			start := time.Now()
			res, err := fn(ctx, u)
			obs.UnitDone(key, u, time.Since(start), err)
			if err != nil {
				errs[i] = err
				fail(i)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
