package engine

import "github.com/ritamzico/factgraph/internal/solver"

// Row is one in-progress result row: named bindings accumulated across
// MATCH/WITH/UNWIND clauses. It is exactly a solver.Solution — MATCH
// produces rows that way already, and WITH/UNWIND only ever add or
// rename entries of the same shape, so no separate representation is
// needed.
type Row = solver.Solution

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// rowKey returns a deterministic string key for a row's current
// bindings, used for DISTINCT deduplication at the row level. UNION
// deduplicates the rendered output rows instead (unionResults).
func rowKey(r Row, names []string) string {
	key := ""
	for _, name := range names {
		b := r[name]
		if b.HasValue {
			key += name + "=" + b.Value.String() + "|"
		} else {
			key += name + "#" + string(b.ID) + "|"
		}
	}
	return key
}
