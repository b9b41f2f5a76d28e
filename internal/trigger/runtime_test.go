package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ritamzico/factgraph/internal/fact"
)

func newTestRuntime(t *testing.T, coll fact.Collection) *Runtime {
	t.Helper()
	r := New(coll, WithQuiescence(20*time.Millisecond), WithMaxWorkers(2))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}

// TestTriggerDerivesProperty checks the end-to-end derivation loop: a
// pattern-bound callback turning matched ages into a derived property.
func TestTriggerDerivesProperty(t *testing.T) {
	coll := fact.NewMemoryCollection()
	r := newTestRuntime(t, coll)

	_, err := r.Declare("age-decade", `MATCH (p:Person) RETURN p.age AS age`,
		VariableAttribute{Var: "p", Key: "age_decade"},
		func(args map[string]fact.Value) (fact.Value, error) {
			age := args["age"].I
			return fact.Int(age/10*10), nil
		}, nil)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	mustInsert(t, r, fact.NodeHasLabel{NodeID: "1", Label: "Person"})
	mustInsert(t, r, fact.NodeHasLabel{NodeID: "2", Label: "Person"})
	mustInsert(t, r, fact.NodeHasProperty{NodeID: "1", Key_: "age", Value: fact.Int(30)})
	mustInsert(t, r, fact.NodeHasProperty{NodeID: "2", Key_: "age", Value: fact.Int(25)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.BlockUntilFinished(ctx); err != nil {
		t.Fatalf("BlockUntilFinished: %v", err)
	}

	v, ok := coll.Property("1", "age_decade")
	if !ok || v.I != 30 {
		t.Fatalf("node 1 age_decade = %v, %v; want 30, true", v, ok)
	}
	v, ok = coll.Property("2", "age_decade")
	if !ok || v.I != 20 {
		t.Fatalf("node 2 age_decade = %v, %v; want 20, true", v, ok)
	}
}

func mustInsert(t *testing.T, r *Runtime, f fact.Fact) {
	t.Helper()
	if _, err := r.Insert(f); err != nil {
		t.Fatalf("Insert(%v) failed: %v", f, err)
	}
}

// TestNodeRelationshipClaim exercises the NodeRelationship claim kind:
// a trigger that links every Warehouse to every Truck it directly
// dispatches with a derived "SERVICES" relationship.
func TestNodeRelationshipClaim(t *testing.T) {
	coll := fact.NewMemoryCollection()
	r := newTestRuntime(t, coll)

	var mu sync.Mutex
	fired := 0
	_, err := r.Declare("link-fleet", `MATCH (w:Warehouse)-[:DISPATCHES]->(t:Truck) RETURN w, t`,
		NodeRelationship{Source: "w", Target: "t", Type: "SERVICES"},
		func(args map[string]fact.Value) (fact.Value, error) {
			mu.Lock()
			fired++
			mu.Unlock()
			return fact.Null(), nil
		}, nil)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	mustInsert(t, r, fact.NodeHasLabel{NodeID: "w1", Label: "Warehouse"})
	mustInsert(t, r, fact.NodeHasLabel{NodeID: "t1", Label: "Truck"})
	mustInsert(t, r, fact.Relationship{RelID: "r1", SourceID: "w1", TargetID: "t1", Type: "DISPATCHES"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.BlockUntilFinished(ctx); err != nil {
		t.Fatalf("BlockUntilFinished: %v", err)
	}

	found := false
	for rel := range coll.AllRelationships() {
		if rel.Type == "SERVICES" && rel.SourceID == "w1" && rel.TargetID == "t1" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a derived SERVICES relationship from w1 to t1")
	}
	mu.Lock()
	defer mu.Unlock()
	if fired == 0 {
		t.Fatal("expected the callback to fire at least once")
	}
}

// TestCallbackPanicIsIsolated verifies a panicking callback is logged
// and its work item dropped, never fatal to the runtime.
func TestCallbackPanicIsIsolated(t *testing.T) {
	coll := fact.NewMemoryCollection()
	r := newTestRuntime(t, coll)

	_, err := r.Declare("panics", `MATCH (n:Thing) RETURN n`,
		VariableAttribute{Var: "n", Key: "touched"},
		func(args map[string]fact.Value) (fact.Value, error) {
			panic("boom")
		}, nil)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	mustInsert(t, r, fact.NodeHasLabel{NodeID: "x", Label: "Thing"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.BlockUntilFinished(ctx); err != nil {
		t.Fatalf("BlockUntilFinished: %v", err)
	}

	if _, ok := coll.Property("x", "touched"); ok {
		t.Fatal("expected no derived property after a panicking callback")
	}
}

// TestShutdownRefusesFurtherCandidates verifies Shutdown drains
// in-flight work and then refuses to enqueue more.
func TestShutdownRefusesFurtherCandidates(t *testing.T) {
	coll := fact.NewMemoryCollection()
	r := New(coll, WithQuiescence(20*time.Millisecond), WithMaxWorkers(1))

	_, err := r.Declare("noop", `MATCH (n:Thing) RETURN n`,
		VariableAttribute{Var: "n", Key: "touched"},
		func(args map[string]fact.Value) (fact.Value, error) { return fact.Bool(true), nil }, nil)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := r.Insert(fact.NodeHasLabel{NodeID: "y", Label: "Thing"}); err != ErrRuntimeClosed {
		t.Fatalf("Insert after Shutdown = %v, want ErrRuntimeClosed", err)
	}
}
