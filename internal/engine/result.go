package engine

import (
	"fmt"
	"strings"

	"github.com/ritamzico/factgraph/internal/fact"
)

// ResultSet is the final output of executing a query: an ordered column
// list and the evaluated rows, as a flat table with a String() form
// for REPL display rather than a generic cursor abstraction.
type ResultSet struct {
	Columns []string       `json:"columns,omitempty"`
	Rows    [][]fact.Value `json:"rows,omitempty"`
}

func (rs *ResultSet) String() string {
	if len(rs.Columns) == 0 {
		return "(no columns)"
	}
	var b strings.Builder
	b.WriteString(strings.Join(rs.Columns, " | "))
	b.WriteByte('\n')
	for _, row := range rs.Rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = v.String()
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "(%d rows)", len(rs.Rows))
	return b.String()
}
