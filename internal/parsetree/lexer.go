// Package parsetree turns Cypher source text into a concrete parse
// tree: a lexer plus a participle/v2 grammar covering the full
// clause/pattern/expression surface.
package parsetree

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Keywords recognized case-insensitively. Matched as a single
// alternation so a keyword never also matches the looser Ident rule.
var keywordPattern = `(?i)\b(MATCH|OPTIONAL|CREATE|MERGE|DELETE|DETACH|SET|REMOVE|WHERE|WITH|RETURN|UNION|ALL|UNWIND|CALL|YIELD|AS|DISTINCT|ORDER|BY|ASC|DESC|SKIP|LIMIT|AND|OR|NOT|XOR|IN|IS|NULL|TRUE|FALSE|STARTS|ENDS|CONTAINS|CASE|WHEN|THEN|ELSE|END|ANY|SINGLE|NONE|EXISTS|REDUCE|SHORTESTPATH|ALLSHORTESTPATHS|ON)\b`

// cypherLexer is the full Cypher token set: identifiers,
// numeric literals (decimal, hex, octal, float, scientific, INF, NaN),
// single/double-quoted strings with escapes, `//` and `/* */` comments
// (stripped via Elide), and punctuation.
var cypherLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*[^/])*\*/`},
	{Name: "Keyword", Pattern: keywordPattern},
	{Name: "Float", Pattern: `\d+\.\d+([eE][+-]?\d+)?|\d+[eE][+-]?\d+|\bINF\b|\bNaN\b`},
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Octal", Pattern: `0[0-7]+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"|'([^'\\]|\\.)*'`},
	{Name: "Param", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `<>|<=|>=|=~|\+=|\.\.|[-+*/%^=<>.,:;|\[\](){}]`},
	{Name: "Whitespace", Pattern: `\s+`},
})
