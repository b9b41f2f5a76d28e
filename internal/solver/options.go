package solver

// Option configures a Solver.
type Option func(*Solver)

// WithMaxDepth bounds unbounded variable-length relationship expansion
// (`*` with no upper bound). The default is 10.
func WithMaxDepth(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

const defaultMaxDepth = 10
