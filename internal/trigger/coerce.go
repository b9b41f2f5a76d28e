package trigger

import (
	"fmt"
	"time"

	"github.com/ritamzico/factgraph/internal/fact"
)

// ParamHint drives best-effort coercion of a solved binding before a
// trigger callback is invoked, e.g. an ISO-8601 string into a
// timestamp.
type ParamHint int

const (
	HintNone ParamHint = iota
	HintTimestamp
	HintInt
	HintFloat
	HintString
)

func coerce(v fact.Value, hint ParamHint) (fact.Value, error) {
	switch hint {
	case HintNone:
		return v, nil
	case HintTimestamp:
		if v.Kind == fact.TimestampVal {
			return v, nil
		}
		if v.Kind != fact.StringVal {
			return fact.Value{}, fmt.Errorf("cannot coerce %s to timestamp", v.String())
		}
		t, err := time.Parse(time.RFC3339, v.S)
		if err != nil {
			return fact.Value{}, fmt.Errorf("coercing %q to timestamp: %w", v.S, err)
		}
		return fact.Timestamp(t), nil
	case HintInt:
		if v.Kind == fact.IntVal {
			return v, nil
		}
		if v.Kind == fact.FloatVal {
			return fact.Int(int64(v.F)), nil
		}
		return fact.Value{}, fmt.Errorf("cannot coerce %s to int", v.String())
	case HintFloat:
		if v.Kind == fact.FloatVal {
			return v, nil
		}
		if v.Kind == fact.IntVal {
			return fact.Float(float64(v.I)), nil
		}
		return fact.Value{}, fmt.Errorf("cannot coerce %s to float", v.String())
	case HintString:
		return fact.Str(v.String()), nil
	default:
		return v, nil
	}
}
