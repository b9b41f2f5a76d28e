package parsetree

// Parse transforms source into a concrete parse tree, or a *ParseError
// carrying the failure position.
func Parse(source string) (*Query, error) {
	q, err := parser.ParseString("", source)
	if err != nil {
		return nil, enrichParseError(err)
	}
	return q, nil
}
