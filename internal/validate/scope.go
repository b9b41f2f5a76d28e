package validate

// BindingKind records how a variable entered scope.
type BindingKind int

const (
	PatternBinding BindingKind = iota
	WithBinding
	ReturnBinding
	UnwindBinding
	CallYieldBinding
	ComprehensionBinding
)

// Scope is a set of bound variable names. WITH and RETURN replace the
// current scope with a fresh one containing only projected aliases;
// Parent is set only for
// correlated subqueries (EXISTS, comprehensions), where the child scope
// may read but never writes back into the parent.
type Scope struct {
	Parent *Scope
	vars   map[string]bool
}

func newScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, vars: map[string]bool{}}
}

func (s *Scope) Bind(name string) {
	if name != "" {
		s.vars[name] = true
	}
}

func (s *Scope) Bound(name string) bool {
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.vars[name] {
			return true
		}
	}
	return false
}

func (s *Scope) names() []string {
	out := make([]string, 0, len(s.vars))
	for n := range s.vars {
		out = append(out, n)
	}
	return out
}
