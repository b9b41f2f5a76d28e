// Package factgraph is the top-level facade tying the compiler pipeline
// (parsetree -> rawast -> ast -> validate), the constraint solver, the
// fact collection, the query executor, and the trigger runtime into one
// embeddable graph store.
package factgraph

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ritamzico/factgraph/internal/ast"
	"github.com/ritamzico/factgraph/internal/engine"
	"github.com/ritamzico/factgraph/internal/fact"
	"github.com/ritamzico/factgraph/internal/parsetree"
	"github.com/ritamzico/factgraph/internal/rawast"
	"github.com/ritamzico/factgraph/internal/solver"
	"github.com/ritamzico/factgraph/internal/trigger"
	"github.com/ritamzico/factgraph/internal/validate"
)

// Re-exported so callers never need to import internal packages
// directly for the common cases.
type (
	Value             = fact.Value
	Identifier        = fact.Identifier
	Fact              = fact.Fact
	Collection        = fact.Collection
	ResultSet         = engine.ResultSet
	OutputClaim       = trigger.OutputClaim
	CallbackFunc      = trigger.CallbackFunc
	ParamHint         = trigger.ParamHint
	Trigger           = trigger.Trigger
	VariableAttribute = trigger.VariableAttribute
	NodeRelationship  = trigger.NodeRelationship
)

// Option configures a Graph at construction, following the
// functional-options convention internal/solver and internal/trigger
// already use.
type Option func(*config)

type config struct {
	maxWorkers   int
	queueCap     int
	maxPathDepth int
	backend      string // "memory" (default) or "bolt"
	boltPath     string
}

// WithMaxWorkers bounds the trigger runtime's worker pool.
func WithMaxWorkers(n int) Option {
	return func(c *config) { c.maxWorkers = n }
}

// WithQueueCapacity bounds the trigger runtime's pending-work channel.
func WithQueueCapacity(n int) Option {
	return func(c *config) { c.queueCap = n }
}

// WithMaxPathDepth bounds unbounded variable-length relationship
// expansion, per Open Question 2.
func WithMaxPathDepth(n int) Option {
	return func(c *config) { c.maxPathDepth = n }
}

// WithBoltBackend selects the durable bbolt-backed fact collection
// instead of the in-memory default.
func WithBoltBackend(path string) Option {
	return func(c *config) { c.backend, c.boltPath = "bolt", path }
}

// Graph is one open graph instance: a fact collection, the compiler's
// solver, a query executor over both, and a trigger runtime watching
// every insert.
type Graph struct {
	coll    fact.Collection
	solver  *solver.Solver
	engine  *engine.Engine
	runtime *trigger.Runtime
}

// New opens a fresh, empty in-memory Graph (or a bbolt-backed one, with
// WithBoltBackend).
func New(opts ...Option) (*Graph, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	coll, err := openCollection(cfg)
	if err != nil {
		return nil, err
	}

	var solverOpts []solver.Option
	if cfg.maxPathDepth > 0 {
		solverOpts = append(solverOpts, solver.WithMaxDepth(cfg.maxPathDepth))
	}
	sv := solver.New(solverOpts...)

	var runtimeOpts []trigger.Option
	if cfg.maxWorkers > 0 {
		runtimeOpts = append(runtimeOpts, trigger.WithMaxWorkers(cfg.maxWorkers))
	}
	if cfg.queueCap > 0 {
		runtimeOpts = append(runtimeOpts, trigger.WithQueueCapacity(cfg.queueCap))
	}
	rt := trigger.New(coll, runtimeOpts...)

	return &Graph{
		coll:    coll,
		solver:  sv,
		engine:  engine.New(coll, rt, sv),
		runtime: rt,
	}, nil
}

func openCollection(cfg *config) (fact.Collection, error) {
	if cfg.backend == "bolt" {
		return fact.NewBoltCollection(cfg.boltPath)
	}
	return fact.NewMemoryCollection(), nil
}

// Load opens a Graph from a previously Saved snapshot.
func Load(r io.Reader, opts ...Option) (*Graph, error) {
	g, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := fact.Import(g.coll, r); err != nil {
		return nil, err
	}
	return g, nil
}

// Save snapshots every fact currently in the collection as JSON.
func (g *Graph) Save(w io.Writer) error {
	return fact.Export(g.coll, w)
}

// LoadFile opens a Graph from a snapshot file on disk.
func LoadFile(path string, opts ...Option) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts...)
}

// SaveFile snapshots the Graph to a file on disk.
func (g *Graph) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.Save(f)
}

// Insert adds f directly to the collection, also activating any
// trigger it grounds.
func (g *Graph) Insert(f fact.Fact) (fact.InsertOutcome, error) {
	return g.runtime.Insert(f)
}

// Query compiles and executes one Cypher statement against the current
// facts, returning its final projection.
func (g *Graph) Query(cypher string, params map[string]fact.Value) (*ResultSet, error) {
	root, _, err := g.compile(cypher)
	if err != nil {
		return nil, err
	}
	return g.engine.Execute(root, params)
}

// Explain parses and validates cypher without executing it, returning
// the typed AST and its symbol table — useful for tooling that wants to
// inspect a query's shape, e.g. before Declaring it as a trigger.
func (g *Graph) Explain(cypher string) (ast.ASTNode, *validate.SymbolTable, error) {
	return g.compile(cypher)
}

func (g *Graph) compile(cypher string) (ast.ASTNode, *validate.SymbolTable, error) {
	pq, err := parsetree.Parse(cypher)
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	raw := rawast.Transform(pq)
	root, err := ast.Convert(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("convert: %w", err)
	}
	table, err := validate.Validate(root)
	if err != nil {
		return nil, nil, fmt.Errorf("validate: %w", err)
	}
	return root, table, nil
}

// Declare registers a standing trigger: src is a Cypher
// MATCH/WHERE/RETURN pattern, cb computes a derived value from each
// matching row, and claim describes where that value is written back
// into the fact store.
func (g *Graph) Declare(name, src string, claim OutputClaim, cb CallbackFunc, hints map[string]ParamHint) (*Trigger, error) {
	return g.runtime.Declare(name, src, claim, cb, hints)
}

// BlockUntilFinished waits for the trigger runtime to quiesce.
func (g *Graph) BlockUntilFinished(ctx context.Context) error {
	return g.runtime.BlockUntilFinished(ctx)
}

// Shutdown drains and stops the trigger runtime.
func (g *Graph) Shutdown(ctx context.Context) error {
	return g.runtime.Shutdown(ctx)
}

// Close releases the backing fact collection's resources (relevant for
// the bbolt backend).
func (g *Graph) Close() error {
	return g.coll.Close()
}
