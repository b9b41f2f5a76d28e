package parsetree

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// ParseError is the contract error for Parse.
type ParseError struct {
	Line     int
	Column   int
	Expected string
	Got      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: expected %s, got %q", e.Line, e.Column, e.Expected, e.Got)
}

// enrichParseError turns whatever participle returns into a ParseError
// carrying a source position.
func enrichParseError(err error) *ParseError {
	var perr participle.Error
	if ok := asParticipleError(err, &perr); ok {
		pos := perr.Position()
		return &ParseError{
			Line:     pos.Line,
			Column:   pos.Column,
			Expected: perr.Message(),
			Got:      pos.String(),
		}
	}
	return &ParseError{Expected: err.Error()}
}

func asParticipleError(err error, target *participle.Error) bool {
	if pe, ok := err.(participle.Error); ok {
		*target = pe
		return true
	}
	return false
}
