// Package fact defines the atomic fact model and its pluggable
// collection backends.
package fact

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValueKind tags the variant held by a Value. Kept a closed enum
// rather than an interface so comparisons enumerate cases explicitly
// (no language-level dynamic dispatch), per the design notes.
type ValueKind int

const (
	NullVal ValueKind = iota
	IntVal
	FloatVal
	StringVal
	BoolVal
	TimestampVal
	ListVal
	MapVal
)

// Value is the tagged union backing NodeHasProperty/RelationshipHasProperty
// payloads and Cypher literal evaluation.
type Value struct {
	Kind ValueKind
	I    int64
	F    float64
	S    string
	B    bool
	T    time.Time
	L    []Value
	M    map[string]Value
}

func Null() Value { return Value{Kind: NullVal} }

func Int(i int64) Value { return Value{Kind: IntVal, I: i} }

func Float(f float64) Value { return Value{Kind: FloatVal, F: f} }

func Str(s string) Value { return Value{Kind: StringVal, S: s} }

func Bool(b bool) Value { return Value{Kind: BoolVal, B: b} }

func Timestamp(t time.Time) Value { return Value{Kind: TimestampVal, T: t} }

func List(items []Value) Value { return Value{Kind: ListVal, L: items} }

func Map(m map[string]Value) Value { return Value{Kind: MapVal, M: m} }

func (v Value) IsNull() bool { return v.Kind == NullVal }

// Equal implements fact-level and filter-level equality. Comparisons
// between incompatible kinds yield false rather than an error, matching
// the three-valued-logic collapse at filter boundaries.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case NullVal:
		return true
	case IntVal:
		return v.I == other.I
	case FloatVal:
		return v.F == other.F
	case StringVal:
		return v.S == other.S
	case BoolVal:
		return v.B == other.B
	case TimestampVal:
		return v.T.Equal(other.T)
	case ListVal:
		if len(v.L) != len(other.L) {
			return false
		}
		for i := range v.L {
			if !v.L[i].Equal(other.L[i]) {
				return false
			}
		}
		return true
	case MapVal:
		if len(v.M) != len(other.M) {
			return false
		}
		for k, mv := range v.M {
			ov, ok := other.M[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Less provides a deterministic total order over values of the same
// kind, used by the solver to produce stable solution ordering.
// Cross-kind comparisons order by Kind so sorts stay deterministic even
// over mixed-kind domains.
func (v Value) Less(other Value) bool {
	if v.Kind != other.Kind {
		return v.Kind < other.Kind
	}
	switch v.Kind {
	case IntVal:
		return v.I < other.I
	case FloatVal:
		return v.F < other.F
	case StringVal:
		return v.S < other.S
	case BoolVal:
		return !v.B && other.B
	case TimestampVal:
		return v.T.Before(other.T)
	case ListVal:
		n := len(v.L)
		if len(other.L) < n {
			n = len(other.L)
		}
		for i := 0; i < n; i++ {
			if !v.L[i].Equal(other.L[i]) {
				return v.L[i].Less(other.L[i])
			}
		}
		return len(v.L) < len(other.L)
	default:
		return v.String() < other.String()
	}
}

func (v Value) String() string {
	switch v.Kind {
	case NullVal:
		return "null"
	case IntVal:
		return fmt.Sprintf("%d", v.I)
	case FloatVal:
		return fmt.Sprintf("%g", v.F)
	case StringVal:
		return v.S
	case BoolVal:
		return fmt.Sprintf("%t", v.B)
	case TimestampVal:
		return v.T.Format(time.RFC3339)
	case ListVal:
		parts := make([]string, len(v.L))
		for i, item := range v.L {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case MapVal:
		keys := make([]string, 0, len(v.M))
		for k := range v.M {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, v.M[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}
