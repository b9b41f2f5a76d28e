package trigger

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/solver"
)

// workItem is one (trigger, candidate-anchor-fact) pair queued for
// re-evaluation.
type workItem struct {
	trig   *Trigger
	anchor fact.Fact
}

// Runtime is the streaming, dependency-driven trigger runtime. It wraps
// a fact.Collection: every fact inserted through Runtime.Insert is
// checked against every registered trigger's ground labels/types, and
// matching candidates are pushed onto a bounded work queue drained by a
// panic-safe worker pool.
type Runtime struct {
	coll   fact.Collection
	solver *solver.Solver
	logger hclog.Logger

	mu       sync.RWMutex
	triggers []*Trigger

	queue   chan workItem
	done    chan struct{}
	pool    *pool.Pool
	workers int

	quiescence time.Duration

	closed       atomic.Bool
	draining     atomic.Bool
	active       atomic.Int64
	lastActivity atomic.Int64
}

// Option configures a Runtime, following the functional-options style
// already used by internal/solver.Option.
type Option func(*Runtime)

// WithMaxWorkers sets the worker pool size. The default equals the
// available hardware parallelism.
func WithMaxWorkers(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithQueueCapacity sets the bounded work queue's buffer size. Producers
// (Runtime.Insert) block cooperatively once it is full, giving natural
// backpressure.
func WithQueueCapacity(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.queue = make(chan workItem, n)
		}
	}
}

// WithQuiescence sets the idle window BlockUntilFinished waits out
// before declaring the runtime quiescent (default 250ms).
func WithQuiescence(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.quiescence = d
		}
	}
}

// WithLogger overrides the default named logger.
func WithLogger(l hclog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

const (
	defaultQueueCapacity = 1024
	defaultQuiescence    = 250 * time.Millisecond
)

// New constructs a Runtime bound to coll and starts its worker pool.
func New(coll fact.Collection, opts ...Option) *Runtime {
	r := &Runtime{
		coll:       coll,
		solver:     solver.New(),
		logger:     hclog.Default().Named("trigger"),
		queue:      make(chan workItem, defaultQueueCapacity),
		done:       make(chan struct{}),
		quiescence: defaultQuiescence,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = goruntime.GOMAXPROCS(0)
	}
	r.pool = pool.New().WithMaxGoroutines(r.workers)
	r.touch()
	r.startWorkers()
	return r
}

func (r *Runtime) touch() {
	r.lastActivity.Store(time.Now().UnixNano())
}

func (r *Runtime) startWorkers() {
	for i := 0; i < r.workers; i++ {
		r.pool.Go(r.workerLoop)
	}
}

// workerLoop consumes the shared queue until Shutdown signals done, then
// drains whatever is already buffered and exits. The queue channel is
// never closed, so a producer blocked in Insert can never hit a
// send-on-closed-channel panic; once the workers are gone, leftover
// items simply stay buffered and are dropped with the runtime.
func (r *Runtime) workerLoop() {
	for {
		select {
		case item := <-r.queue:
			r.runItem(item)
		case <-r.done:
			for {
				select {
				case item := <-r.queue:
					r.runItem(item)
				default:
					return
				}
			}
		}
	}
}

func (r *Runtime) runItem(item workItem) {
	r.active.Add(1)
	r.touch()
	r.process(item)
	r.active.Add(-1)
	r.touch()
}

// Declare compiles a Cypher MATCH/WHERE/RETURN source into a Trigger and
// registers it with this runtime: a pattern string, a callback, and an
// output-claim descriptor.
func (r *Runtime) Declare(name, src string, claim OutputClaim, cb CallbackFunc, hints map[string]ParamHint) (*Trigger, error) {
	t, err := Compile(name, src, claim, cb, hints)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.triggers = append(r.triggers, t)
	r.mu.Unlock()
	return t, nil
}

// Insert inserts f into the backing collection and, when it is newly
// added, enqueues every trigger whose ground labels/types match it.
// Once Shutdown has been called, it returns ErrRuntimeClosed for a newly
// added fact that carries at least one label or relationship type — the
// fact is still inserted, but trigger re-evaluation for it is refused.
// Duplicates and facts with no such ground return a nil error.
func (r *Runtime) Insert(f fact.Fact) (fact.InsertOutcome, error) {
	outcome, err := r.coll.Insert(f)
	if err != nil {
		return outcome, err
	}
	if outcome != fact.New {
		return outcome, nil
	}

	labels, relTypes := r.groundsOf(f)
	if len(labels) == 0 && len(relTypes) == 0 {
		return outcome, nil
	}
	if r.closed.Load() {
		return outcome, ErrRuntimeClosed
	}

	r.mu.RLock()
	candidates := make([]*Trigger, 0, len(r.triggers))
	for _, t := range r.triggers {
		if t.matchesAnyGround(labels, relTypes) {
			candidates = append(candidates, t)
		}
	}
	r.mu.RUnlock()

	for _, t := range candidates {
		r.touch()
		r.queue <- workItem{trig: t, anchor: f} // blocks cooperatively when full
	}
	return outcome, nil
}

// groundsOf returns the labels and relationship types a fact is grounded
// on for candidate indexing. Label and relationship
// facts carry their own ground directly. Property facts ground through
// the entity they describe — the node's labels, or the relationship's
// type — so a property arriving after the entity was labeled still
// re-activates the triggers whose patterns read it.
func (r *Runtime) groundsOf(f fact.Fact) (labels, relTypes []string) {
	switch v := f.(type) {
	case fact.NodeHasLabel:
		return []string{v.Label}, nil
	case fact.Relationship:
		return nil, []string{v.Type}
	case fact.NodeHasProperty:
		for nf := range r.coll.FactsForNode(v.NodeID) {
			if l, ok := nf.(fact.NodeHasLabel); ok {
				labels = append(labels, l.Label)
			}
		}
		return labels, nil
	case fact.RelationshipHasProperty:
		for rf := range r.coll.FactsForRelationship(v.RelID) {
			if rel, ok := rf.(fact.Relationship); ok {
				relTypes = append(relTypes, rel.Type)
			}
		}
		return nil, relTypes
	default:
		return nil, nil
	}
}

func (r *Runtime) process(item workItem) {
	solutions, err := r.solver.Solve(item.trig.Match.Pattern, item.trig.Match.Where, r.coll, nil)
	if err != nil {
		r.logger.Error("solve failed", "trigger", item.trig.Name, "error", err)
		return
	}
	solutions = restrictToAnchor(solutions, item.anchor)

	for _, sol := range solutions {
		if r.draining.Load() {
			return // cooperative cancellation: never mid-callback, only between solutions
		}
		r.invoke(item.trig, sol)
	}
}

// restrictToAnchor narrows solutions to those whose bindings mention
// the fact that triggered this re-evaluation. When nothing matches — the
// anchor carries no addressable identifier, or it doesn't correspond to
// a declared pattern variable — every solution is kept rather than
// silently dropping true positives.
func restrictToAnchor(solutions []solver.Solution, anchor fact.Fact) []solver.Solution {
	id, ok := anchorID(anchor)
	if !ok {
		return solutions
	}
	var kept []solver.Solution
	for _, sol := range solutions {
		for _, b := range sol {
			if !b.HasValue && b.ID == id {
				kept = append(kept, sol)
				break
			}
		}
	}
	if len(kept) == 0 {
		return solutions
	}
	return kept
}

func anchorID(f fact.Fact) (fact.Identifier, bool) {
	switch v := f.(type) {
	case fact.NodeHasLabel:
		return v.NodeID, true
	case fact.NodeHasProperty:
		return v.NodeID, true
	case fact.Relationship:
		return v.RelID, true
	case fact.RelationshipHasProperty:
		return v.RelID, true
	default:
		return "", false
	}
}

func (r *Runtime) invoke(t *Trigger, sol solver.Solution) {
	args, err := r.buildArgs(t, sol)
	if err != nil {
		r.logger.Warn("argument coercion failed", "trigger", t.Name, "error", err)
		return
	}

	// A Null projected parameter means a fact this invocation depends on
	// has not arrived yet. That fact's own insert re-fires the trigger,
	// so the incomplete invocation is skipped instead of computing a
	// derived value from Null (which could land after, and supersede, the
	// complete one).
	if t.Projection != nil {
		for _, name := range t.Params {
			if args[name].IsNull() {
				return
			}
		}
	}

	result, err := runCallback(t, args)
	if err != nil {
		r.logger.Error("callback failed", "trigger", t.Name, "error", &CallbackError{Trigger: t.Name, Cause: err})
		return
	}

	if err := r.applyClaim(t, sol, result); err != nil {
		r.logger.Error("claim application failed", "trigger", t.Name, "error", err)
	}
}

// runCallback recovers a panicking callback into a CallbackError: a
// callback failure only drops its own work item, never the runtime.
func runCallback(t *Trigger, args map[string]fact.Value) (v fact.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &CallbackError{Trigger: t.Name, Cause: fmt.Errorf("panic: %v", p)}
		}
	}()
	return t.Run(args)
}

func (r *Runtime) buildArgs(t *Trigger, sol solver.Solution) (map[string]fact.Value, error) {
	args := make(map[string]fact.Value, len(t.Params))
	if t.Projection != nil {
		for _, item := range t.Projection {
			name := paramName(item)
			if name == "" {
				continue
			}
			v, err := solver.Eval(item.Expression, r.coll, sol, nil)
			if err != nil {
				return nil, err
			}
			args[name] = v
		}
	} else {
		for _, name := range t.Params {
			b, ok := sol[name]
			if !ok {
				continue
			}
			args[name] = bindingValue(b)
		}
	}
	for name, hint := range t.Hints {
		v, ok := args[name]
		if !ok {
			continue
		}
		coerced, err := coerce(v, hint)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		args[name] = coerced
	}
	return args, nil
}

func bindingValue(b solver.Binding) fact.Value {
	if b.HasValue {
		return b.Value
	}
	return fact.Str(string(b.ID))
}

// applyClaim turns a callback's return value into a derived fact and
// re-inserts it through Runtime.Insert, so a claim can itself activate
// further triggers.
func (r *Runtime) applyClaim(t *Trigger, sol solver.Solution, result fact.Value) error {
	switch claim := t.Claim.(type) {
	case VariableAttribute:
		b, ok := sol[claim.Var]
		if !ok {
			return fmt.Errorf("trigger %q: claim variable %q not bound", t.Name, claim.Var)
		}
		_, err := r.Insert(fact.NodeHasProperty{NodeID: b.ID, Key_: claim.Key, Value: result})
		return err
	case NodeRelationship:
		src, ok := sol[claim.Source]
		if !ok {
			return fmt.Errorf("trigger %q: claim source %q not bound", t.Name, claim.Source)
		}
		tgt, ok := sol[claim.Target]
		if !ok {
			return fmt.Errorf("trigger %q: claim target %q not bound", t.Name, claim.Target)
		}
		relID := fact.Identifier(ulid.Make().String())
		_, err := r.Insert(fact.Relationship{RelID: relID, SourceID: src.ID, TargetID: tgt.ID, Type: claim.Type})
		return err
	default:
		return fmt.Errorf("trigger %q: unknown claim type %T", t.Name, claim)
	}
}

// BlockUntilFinished returns once the work queue is empty and no worker
// has been active for the configured quiescence window. A late insert
// during the wait re-arms the window rather than racing it.
func (r *Runtime) BlockUntilFinished(ctx context.Context) error {
	tick := r.quiescence / 4
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if len(r.queue) == 0 && r.active.Load() == 0 {
			quietFor := time.Since(time.Unix(0, r.lastActivity.Load()))
			if quietFor >= r.quiescence {
				return nil
			}
		}
	}
}

// ErrRuntimeClosed is returned by Insert once Shutdown has begun.
var ErrRuntimeClosed = fmt.Errorf("trigger runtime is shut down")

// Shutdown refuses further enqueues, signals workers to drain what is
// already queued and exit, and waits (up to ctx's deadline) for them.
// If the deadline fires first, workers stop starting new solutions once
// their current callback returns.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.done)

	done := make(chan struct{})
	go func() {
		r.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Deadline hit: flip the cancel flag workers check between
		// solutions, never mid-callback.
		r.draining.Store(true)
		return ctx.Err()
	}
}
