// File path: internal/engine/engine.go
package engine

import (
	"context"
	"time"

	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/dmlassembly"
	"github.com/orderflow/workorder-engine/internal/interpreter"
	"github.com/orderflow/workorder-engine/internal/llm"
	"github.com/orderflow/workorder-engine/internal/matcher"
	"github.com/orderflow/workorder-engine/internal/model"
	"github.com/orderflow/workorder-engine/internal/probe"
	"github.com/orderflow/workorder-engine/internal/recipe"
)

// Engine is the top-level entrypoint the ingress layer calls into. It owns
// the worker pool and the three injected external capabilities; it holds no
// per-run state itself.
type Engine struct {
	store       *recipe.Store
	matchClient *matcher.Client
	probe       probe.Probe
	clock       interpreter.Clock
	pool        *Pool
}

// Option configures an Engine at construction.
type Option func(*Engine)

func WithPool(workers, queueDepth int) Option {
	return func(e *Engine) { e.pool = NewPool(workers, queueDepth) }
}

func WithClock(clock interpreter.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// New builds an Engine over a loaded recipe store, an LLM provider, and a
// read-only SQL probe, all injected rather than constructed internally.
func New(store *recipe.Store, provider llm.Provider, sqlProbe probe.Probe, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		matchClient: matcher.NewClient(provider),
		probe:       sqlProbe,
		clock:       interpreter.SystemClock,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = NewPool(32, 128)
	}
	return e
}

// Result is the value produced by one Run call: the interpreter's outcome
// plus, when Completed, the finalized artifact ready for the email layer.
type Result struct {
	Outcome  model.RunOutcome
	Artifact *model.DmlArtifact
}

// Run executes one work order end to end: match -> interpret -> assemble.
// It is synchronous from the caller's perspective; Submit is the
// pool-bounded async entrypoint ingress code should prefer.
func (e *Engine) Run(ctx context.Context, taskID, userText string, seedParams map[string]interface{}, deadline time.Duration) Result {
	logger := common.Logger()
	catalog := e.store.ListAll()

	matched := matcher.Match(ctx, userText, catalog, e.matchClient, deadline)
	if matched.Outcome != matcher.Matched {
		logger.Info("engine: run did not match a recipe", "task_id", taskID, "outcome", matched.Outcome)
		outcome := model.RunOutcome{Status: model.StatusEngineError, ErrorKind: model.ErrNoMatch, Message: "no recipe matched"}
		if matched.Outcome == matcher.Errored {
			outcome.ErrorKind = model.ErrMatchError
			if matched.Err != nil {
				outcome.Message = matched.Err.Error()
			}
		}
		return Result{Outcome: outcome}
	}

	machine := interpreter.NewMachine(e.probe, e.clock)
	outcome := machine.Run(ctx, matched.Recipe, seedParams, matched.ExtractedParams, deadline)
	if outcome.Status != model.StatusCompleted {
		return Result{Outcome: outcome}
	}

	artifact, err := dmlassembly.Assemble(taskID, matched.Recipe.WorkOrderType, matched.Recipe.Description, outcome)
	if err != nil {
		logger.Error("engine: assembly failed", "task_id", taskID, "error", err)
		return Result{Outcome: model.RunOutcome{
			Status:    model.StatusEngineError,
			ErrorKind: model.ErrBadRecipe,
			Message:   err.Error(),
			Trace:     outcome.Trace,
		}}
	}
	return Result{Outcome: outcome, Artifact: &artifact}
}

// Submit enqueues a run on the worker pool, invoking onDone with the result
// once it completes. It returns ErrQueueFull immediately if the bounded
// queue is saturated.
func (e *Engine) Submit(ctx context.Context, taskID, userText string, seedParams map[string]interface{}, deadline time.Duration, onDone func(Result)) error {
	return e.pool.Submit(func() {
		onDone(e.Run(ctx, taskID, userText, seedParams, deadline))
	})
}

// ReloadCatalog reloads the recipe store from dir.
func (e *Engine) ReloadCatalog(dir string) (recipe.CatalogStatus, error) {
	return e.store.Load(dir)
}

// Close stops accepting new submissions and waits for in-flight runs.
func (e *Engine) Close() {
	e.pool.Close()
}
