package validate

// Binding is one symbol table entry: a variable name and the clause
// kind that introduced it. The typed AST carries no source positions
// (conversion drops parsetree's lexer.Position when flattening to the
// tagged-dict and typed forms), so the table records one entry per
// binding *introduction* in declaration order rather than per read
// occurrence — see DESIGN.md for the Open Question decision.
type Binding struct {
	Name string
	Kind BindingKind
}

// SymbolTable is the Semantic Validator's companion output: every
// binding introduced while validating a query, in declaration order.
type SymbolTable struct {
	Bindings []Binding
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

func (t *SymbolTable) record(name string, kind BindingKind) {
	if name == "" {
		return
	}
	t.Bindings = append(t.Bindings, Binding{Name: name, Kind: kind})
}

// Lookup returns every binding recorded for name, in declaration order.
func (t *SymbolTable) Lookup(name string) []Binding {
	var out []Binding
	for _, b := range t.Bindings {
		if b.Name == name {
			out = append(out, b)
		}
	}
	return out
}
