package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/postrater/internal/types"
)

// DefaultHistory is the number of runs a Runner remembers.
const DefaultHistory = 100

// Batch runs one scoring batch under the given run id.
type Batch interface {
	RunBatch(ctx context.Context, runID string) (*types.BatchResult, error)
}

// Runner starts scoring batches and tracks their status. Concurrent runs
// are not coordinated with each other.
type Runner struct {
	ctx     context.Context
	batch   Batch
	history int

	wg    sync.WaitGroup
	mu    sync.Mutex
	runs  map[string]*types.RunStatus
	order []string
}

// NewRunner creates a runner. Background runs started by Trigger use ctx,
// so cancelling it stops them.
func NewRunner(ctx context.Context, batch Batch) *Runner {
	return &Runner{
		ctx:     ctx,
		batch:   batch,
		history: DefaultHistory,
		runs:    make(map[string]*types.RunStatus),
	}
}

// Trigger starts a batch in the background and returns its run id
// without waiting for it to finish.
func (r *Runner) Trigger() string {
	id := ulid.Make().String()
	r.begin(id)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(r.ctx, id)
	}()

	slog.Info("scoring run triggered",
		"component", "pipeline",
		"run_id", id,
	)
	return id
}

// Execute runs a batch synchronously and records its status.
func (r *Runner) Execute(ctx context.Context) (*types.BatchResult, error) {
	id := ulid.Make().String()
	r.begin(id)
	return r.execute(ctx, id)
}

// Status returns the last known status of a run.
func (r *Runner) Status(id string) (types.RunStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.runs[id]
	if !ok {
		return types.RunStatus{}, false
	}
	return *s, true
}

// Wait blocks until every triggered run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) execute(ctx context.Context, id string) (result *types.BatchResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scoring run panicked: %v", p)
			slog.Error("scoring run panicked",
				"component", "pipeline",
				"run_id", id,
				"panic", p,
			)
		}
		r.finish(id, result, err)
	}()

	return r.batch.RunBatch(ctx, id)
}

func (r *Runner) begin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[id] = &types.RunStatus{
		ID:        id,
		State:     types.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	r.order = append(r.order, id)

	for len(r.order) > r.history {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *Runner) finish(id string, result *types.BatchResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.runs[id]
	if !ok {
		return
	}

	now := time.Now().UTC()
	s.FinishedAt = &now
	s.Result = result
	if err != nil {
		s.State = types.RunFailed
		s.Error = err.Error()
		return
	}
	s.State = types.RunCompleted
}
