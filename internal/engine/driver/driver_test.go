package driver_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolkov/racesim/internal/engine/context"
	"github.com/kolkov/racesim/internal/engine/driver"
	"github.com/kolkov/racesim/internal/engine/fiber"
	"github.com/kolkov/racesim/internal/engine/history"
)

// runBodies spawns one fiber per body, binds each to ctx, and drives them
// via Resume until the iteration is done — the same shape context_test.go
// uses directly against a Context, lifted here into an IterationFunc the
// driver can call once per iteration.
func runBodies(bodies []func()) driver.IterationFunc {
	return func(ctx *context.Context) {
		group := fiber.NewGroup()
		fibers := make([]*fiber.Fiber, len(bodies))
		for i, body := range bodies {
			i, body := i, body
			fibers[i] = group.Spawn(i, func(yield func()) {
				ctx.BindYielder(i, yield)
				body()
			})
		}
		for !ctx.Done() {
			fibers[ctx.Current()].Resume()
		}
	}
}

func TestDriverRandomSearchFindsDataRace(t *testing.T) {
	res := driver.Run(driver.Params{
		Threads:             2,
		IterationCount:      200,
		ExecutionDepthLimit: 1000,
		DeferDenominator:    2,
		SearchType:          driver.SearchRandom,
		Seed:                1,
	}, func(ctx *context.Context) {
		v := ctx.VarState(ctx.AllocVarState())
		runBodies([]func(){
			func() { ctx.NonAtomicWrite("x", v); ctx.OnThreadFinished(0) },
			func() { ctx.NonAtomicWrite("x", v); ctx.OnThreadFinished(1) },
		})(ctx)
	})

	require.Equal(t, history.DataRace, res.Outcome)
	require.NotNil(t, res.Failure, "expected a Failure to be populated")
	require.True(t, res.Deterministic, "expected the race to reproduce deterministically on replay")
	require.NotEmpty(t, res.History, "expected a non-empty history from the replay")
}

func TestDriverFairFullExhaustsTrivialCase(t *testing.T) {
	res := driver.Run(driver.Params{
		Threads:             1,
		ExecutionDepthLimit: 1000,
		DeferDenominator:    2,
		SearchType:          driver.SearchFairFull,
	}, func(ctx *context.Context) {
		runBodies([]func(){
			func() { ctx.OnThreadFinished(0) },
		})(ctx)
	})

	require.Equal(t, history.Success, res.Outcome, "failure: %v", res.Failure)
	require.True(t, res.Exhausted, "expected the single-thread search tree to exhaust")
	require.Equal(t, 1, res.Iterations, "expected exactly 1 iteration for a single runnable thread")
}

func TestDriverCollectHistorySkipsReplay(t *testing.T) {
	res := driver.Run(driver.Params{
		Threads:             1,
		ExecutionDepthLimit: 1000,
		DeferDenominator:    2,
		SearchType:          driver.SearchRandom,
		IterationCount:      1,
		CollectHistory:      true,
	}, func(ctx *context.Context) {
		runBodies([]func(){
			func() { ctx.Assert(false, "always fails"); ctx.OnThreadFinished(0) },
		})(ctx)
	})

	require.Equal(t, history.UserAssertionFailed, res.Outcome)
	require.True(t, res.Deterministic, "expected Deterministic=true when CollectHistory skips the replay")
	require.NotEmpty(t, res.History, "expected the original failure's log to be reused as History")
}

func TestDriverParallelRandomRunsEveryIterationDespiteSuccess(t *testing.T) {
	const want = 500
	res := driver.Run(driver.Params{
		Threads:             2,
		IterationCount:      want,
		ExecutionDepthLimit: 1000,
		DeferDenominator:    2,
		SearchType:          driver.SearchRandom,
		Seed:                7,
		Workers:             4,
	}, func(ctx *context.Context) {
		mu := ctx.MutexAt(ctx.AllocMutex())
		v := ctx.VarState(ctx.AllocVarState())
		runBodies([]func(){
			func() {
				ctx.MutexLock("mu", mu)
				ctx.NonAtomicWrite("x", v)
				ctx.MutexUnlock("mu", mu)
				ctx.OnThreadFinished(0)
			},
			func() {
				ctx.MutexLock("mu", mu)
				ctx.NonAtomicWrite("x", v)
				ctx.MutexUnlock("mu", mu)
				ctx.OnThreadFinished(1)
			},
		})(ctx)
	})

	require.Equal(t, history.Success, res.Outcome, "failure: %v", res.Failure)
	require.Equal(t, want, res.Iterations, "expected all iterations to run across workers")
}

func TestDriverNonDeterministicReplayIsReported(t *testing.T) {
	var buf strings.Builder
	calls := 0
	res := driver.Run(driver.Params{
		Threads:             1,
		ExecutionDepthLimit: 1000,
		DeferDenominator:    2,
		SearchType:          driver.SearchRandom,
		IterationCount:      1,
		Output:              &buf,
	}, func(ctx *context.Context) {
		calls++
		runBodies([]func(){
			func() {
				// Fails only the first time it's ever invoked (the live
				// run), not on replay — modelling a test whose behavior
				// depends on something outside the engine's model, which
				// the determinism check exists to catch.
				ctx.Assert(calls != 1, "flaky by construction")
				ctx.OnThreadFinished(0)
			},
		})(ctx)
	})

	require.False(t, res.Deterministic, "expected Deterministic=false for a failure that does not reproduce")
	require.Contains(t, buf.String(), "did not reproduce")
	require.Equal(t, history.UserAssertionFailed, res.Outcome, "expected the original failure's outcome to be reported")
}
