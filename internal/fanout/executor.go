// Package fanout executes a query plan concurrently with bounded latency and
// per-source failure isolation.
package fanout

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelscout/discovery-cli/internal/analytics"
	"github.com/reelscout/discovery-cli/internal/model"
	"github.com/reelscout/discovery-cli/internal/planner"
	"github.com/reelscout/discovery-cli/internal/registry"
	"github.com/reelscout/discovery-cli/internal/source"
)

// DefaultTimeout bounds each per-source call.
const DefaultTimeout = 5 * time.Second

// Outcome is the collected result of one fan-out pass.
type Outcome struct {
	// Results maps source id to that source's raw results. Sources that
	// failed or timed out contribute no entry.
	Results map[string][]model.RawResult
	// SourcesUsed lists sources that completed successfully, sorted.
	SourcesUsed []string
	// FailoverEvents counts sources that timed out or errored, one each.
	FailoverEvents int
	// CostIncurred sums CostPerRequest over successful sources.
	CostIncurred float64
}

// Executor fans a query out to every planned source concurrently. Total
// latency is bounded by the slowest included source, never their sum.
type Executor struct {
	reg      *registry.Registry
	adapters *source.Set
	recorder *analytics.Recorder
	timeout  time.Duration
}

// New creates an executor. A zero timeout falls back to DefaultTimeout.
func New(reg *registry.Registry, adapters *source.Set, recorder *analytics.Recorder, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		reg:      reg,
		adapters: adapters,
		recorder: recorder,
		timeout:  timeout,
	}
}

type callResult struct {
	results []model.RawResult
	err     error
}

// Run queries every planned source concurrently. Each call races a per-call
// deadline; timeouts and errors are swallowed, counted as exactly one
// failover event each, and fed back to the registry. A straggler past its
// deadline is abandoned: it may still finish, but its result is discarded.
func (e *Executor) Run(ctx context.Context, plan planner.Plan, q source.Query) *Outcome {
	out := &Outcome{Results: make(map[string][]model.RawResult)}
	if len(plan.Sources) == 0 {
		return out
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)

	for _, src := range plan.Sources {
		g.Go(func() error {
			results, err := e.callOne(gCtx, src.ID, q)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.FailoverEvents++
				return nil // isolation: one source's failure never aborts the pass
			}
			out.Results[src.ID] = results
			out.SourcesUsed = append(out.SourcesUsed, src.ID)
			out.CostIncurred += src.CostPerRequest
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(out.SourcesUsed)
	return out
}

// callOne performs a single source call under the fan-out deadline, updating
// registry state and telemetry for either outcome.
func (e *Executor) callOne(ctx context.Context, id string, q source.Query) ([]model.RawResult, error) {
	ad := e.adapters.Get(id)
	if ad == nil {
		// Planned but unwired: treat like a transport failure.
		e.observeFailure(id, &source.TransportError{SourceID: id, Err: errNoAdapter})
		return nil, errNoAdapter
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan callResult, 1)
	go func() {
		results, err := ad.Search(callCtx, q)
		ch <- callResult{results: results, err: source.Classify(id, err)}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			e.observeFailure(id, r.err)
			return nil, r.err
		}
		elapsed := time.Since(start)
		e.reg.RecordSuccess(id, float64(elapsed.Milliseconds()))
		e.reg.AddUsage(id, 1)
		e.recorder.ObserveSourceCall(id, true)
		return r.results, nil

	case <-callCtx.Done():
		// Abandonment, not termination: the goroutine above may complete
		// later and its buffered send is simply never read.
		err := &source.TimeoutError{SourceID: id, Err: callCtx.Err()}
		e.observeFailure(id, err)
		return nil, err
	}
}

func (e *Executor) observeFailure(id string, err error) {
	zap.L().Warn("fanout: source call failed",
		zap.String("source", id),
		zap.Bool("timeout", source.IsTimeout(err)),
		zap.Error(err),
	)
	e.reg.RecordFailure(id)
	e.recorder.ObserveSourceCall(id, false)
	e.recorder.ObserveFailover()
}

var errNoAdapter = &adapterMissingError{}

type adapterMissingError struct{}

func (*adapterMissingError) Error() string { return "no adapter registered" }
