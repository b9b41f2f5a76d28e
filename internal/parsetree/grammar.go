package parsetree

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Query is the root parse-tree node. A source string is one
// RegularQuery: a SingleQuery optionally chained with UNION [ALL]
// SingleQuery.
type Query struct {
	Pos     lexer.Position
	Regular *RegularQuery `@@`
}

type RegularQuery struct {
	Pos    lexer.Position
	Single *SingleQuery `@@`
	Unions []*UnionPart `@@*`
}

type UnionPart struct {
	Pos    lexer.Position
	All    bool         `"UNION" @"ALL"?`
	Single *SingleQuery `@@`
}

// SingleQuery is a sequence of clauses. Multi-part queries (ones
// chaining WITH between reading/updating clauses) are not distinguished
// structurally from single-part ones; that distinction is made later by
// the transformer.
type SingleQuery struct {
	Pos     lexer.Position
	Clauses []*Clause `@@+`
}

// Clause dispatches on the clause keyword.
type Clause struct {
	Pos    lexer.Position
	Match  *MatchClause  `  @@`
	Create *CreateClause `| @@`
	Merge  *MergeClause  `| @@`
	Delete *DeleteClause `| @@`
	Set    *SetClause    `| @@`
	Remove *RemoveClause `| @@`
	With   *WithClause   `| @@`
	Unwind *UnwindClause `| @@`
	Call   *CallClause   `| @@`
	Return *ReturnClause `| @@`
}

type MatchClause struct {
	Pos      lexer.Position
	Optional bool     `@"OPTIONAL"?`
	Pattern  *Pattern `"MATCH" @@`
	Where    *Where   `@@?`
}

type CreateClause struct {
	Pos     lexer.Position
	Pattern *Pattern `"CREATE" @@`
}

type MergeClause struct {
	Pos     lexer.Position
	Pattern *PatternPart   `"MERGE" @@`
	Actions []*MergeAction `@@*`
}

type MergeAction struct {
	Pos      lexer.Position
	OnMatch  bool       `"ON" ( @"MATCH"`
	OnCreate bool       `     | @"CREATE" )`
	Set      *SetClause `@@`
}

type DeleteClause struct {
	Pos    lexer.Position
	Detach bool          `@"DETACH"?`
	Exprs  []*Expression `"DELETE" @@ ( "," @@ )*`
}

type SetClause struct {
	Pos   lexer.Position
	Items []*SetItem `"SET" @@ ( "," @@ )*`
}

// SetItem covers the three SET forms (`=`, `+=`, `:Label`):
// property assignment, whole-variable assignment/merge, and label
// assignment. Order matters: label assignment (Ident NodeLabels) must be
// tried after the property/variable forms so `n.x = 1` isn't mistaken
// for `n :x`.
type SetItem struct {
	Pos          lexer.Position
	Property     *PropertyExpr `(   @@ "="`
	PropertyExpr *Expression   `    @@ )`
	Variable     string        `| ( @Ident`
	AddAssign    bool          `    ( @"+="`
	Assign       bool          `    | @"=" )`
	VarExpr      *Expression   `    @@ )`
	LabelVar     string        `| ( @Ident`
	Labels       *NodeLabels   `    @@ )`
}

type RemoveClause struct {
	Pos   lexer.Position
	Items []*RemoveItem `"REMOVE" @@ ( "," @@ )*`
}

type RemoveItem struct {
	Pos      lexer.Position
	Property *PropertyExpr `(  @@`
	Variable string        `|  @Ident`
	Labels   *NodeLabels   `   @@ )`
}

type WithClause struct {
	Pos   lexer.Position
	Body  *ProjectionBody `"WITH" @@`
	Where *Where          `@@?`
}

type UnwindClause struct {
	Pos  lexer.Position
	Expr *Expression `"UNWIND" @@`
	As   string      `"AS" @Ident`
}

type CallClause struct {
	Pos       lexer.Position
	Procedure *InvocationName `"CALL" @@`
	Args      []*Expression   `( "(" ( @@ ( "," @@ )* )? ")" )?`
	Yield     *YieldClause    `( "YIELD" @@ )?`
}

type YieldClause struct {
	Pos   lexer.Position
	Items []*YieldItem `@@ ( "," @@ )*`
}

type YieldItem struct {
	Pos    lexer.Position
	Source string `( @Ident "AS" )?`
	Target string `@Ident`
}

type ReturnClause struct {
	Pos  lexer.Position
	Body *ProjectionBody `"RETURN" @@`
}

type ProjectionBody struct {
	Pos      lexer.Position
	Distinct bool              `@"DISTINCT"?`
	Star     bool              `( @"*"`
	Items    []*ProjectionItem `| @@ ( "," @@ )* )`
	Order    *OrderBy          `@@?`
	Skip     *Expression       `( "SKIP" @@ )?`
	Limit    *Expression       `( "LIMIT" @@ )?`
}

type ProjectionItem struct {
	Pos   lexer.Position
	Expr  *Expression `@@`
	Alias string      `( "AS" @Ident )?`
}

type OrderBy struct {
	Pos   lexer.Position
	Items []*OrderItem `"ORDER" "BY" @@ ( "," @@ )*`
}

type OrderItem struct {
	Pos  lexer.Position
	Expr *Expression    `@@`
	Desc bool           `( @"DESC" | "ASC" )?`
}

type Where struct {
	Pos  lexer.Position
	Expr *Expression `"WHERE" @@`
}

// --- Patterns ---

type Pattern struct {
	Pos   lexer.Position
	Parts []*PatternPart `@@ ( "," @@ )*`
}

type PatternPart struct {
	Pos     lexer.Position
	Var     string          `( @Ident "=" )?`
	Element *PatternElement `@@`
}

// PatternElement alternates NodePattern / RelationshipPattern, always
// starting and ending with a node.
type PatternElement struct {
	Pos   lexer.Position
	Node  *NodePattern         `@@`
	Chain []*PatternElemChain  `@@*`
}

type PatternElemChain struct {
	Pos  lexer.Position
	Rel  *RelationshipPattern `@@`
	Node *NodePattern         `@@`
}

type NodePattern struct {
	Pos        lexer.Position
	Variable   string      `"(" @Ident?`
	Labels     *NodeLabels `@@?`
	Properties *Properties `@@? ")"`
}

type NodeLabels struct {
	Pos    lexer.Position
	Labels []string `( ":" @Ident )+`
}

type Properties struct {
	Pos   lexer.Position
	Map   *MapLiteral `  @@`
	Param *Parameter  `| @@`
}

// RelationshipPattern is -[...]-> | <-[...]- | -[...]-.
type RelationshipPattern struct {
	Pos        lexer.Position
	LeftArrow  bool                `( @"<" "-"`
	PlainLeft  bool                `  | @"-" )`
	Detail     *RelationshipDetail `( "[" @@ "]" )?`
	RightArrow bool                `"-" @">"?`
}

type RelationshipDetail struct {
	Pos        lexer.Position
	Variable   string             `@Ident?`
	Types      *RelationshipTypes `@@?`
	Range      *RangeLiteral      `@@?`
	Properties *Properties        `@@?`
}

type RelationshipTypes struct {
	Pos   lexer.Position
	Types []string `":" @Ident ( "|" ":"? @Ident )*`
}

// RangeLiteral is *min..max for variable-length relationships.
type RangeLiteral struct {
	Pos   lexer.Position
	Star  string `@"*"`
	Min   *int   `@Int?`
	Range bool   `@".."?`
	Max   *int   `@Int?`
}

// --- Expressions: precedence chain Or > Xor > And > Not > Comparison >
// AddSub > MultDiv > Power > Unary > Postfix > Atom. ---

type Expression struct {
	Pos   lexer.Position
	Left  *XorExpr  `@@`
	Right []*OrTerm `@@*`
}

type OrTerm struct {
	Pos  lexer.Position
	Expr *XorExpr `"OR" @@`
}

type XorExpr struct {
	Pos   lexer.Position
	Left  *AndExpr   `@@`
	Right []*XorTerm `@@*`
}

type XorTerm struct {
	Pos  lexer.Position
	Expr *AndExpr `"XOR" @@`
}

type AndExpr struct {
	Pos   lexer.Position
	Left  *NotExpr   `@@`
	Right []*AndTerm `@@*`
}

type AndTerm struct {
	Pos  lexer.Position
	Expr *NotExpr `"AND" @@`
}

type NotExpr struct {
	Pos  lexer.Position
	Not  bool            `@"NOT"?`
	Expr *ComparisonExpr `@@`
}

// Comparison operators are drawn from the closed set {=, <>, <, >, <=,
// >=}.
type ComparisonExpr struct {
	Pos   lexer.Position
	Left  *AddSubExpr       `@@`
	Right []*ComparisonTerm `@@*`
}

type ComparisonTerm struct {
	Pos  lexer.Position
	Op   string      `@( "<>" | "<=" | ">=" | "=" | "<" | ">" )`
	Expr *AddSubExpr `@@`
}

type AddSubExpr struct {
	Pos   lexer.Position
	Left  *MultDivExpr  `@@`
	Right []*AddSubTerm `@@*`
}

type AddSubTerm struct {
	Pos  lexer.Position
	Op   string       `@( "+" | "-" )`
	Expr *MultDivExpr `@@`
}

type MultDivExpr struct {
	Pos   lexer.Position
	Left  *PowerExpr     `@@`
	Right []*MultDivTerm `@@*`
}

type MultDivTerm struct {
	Pos  lexer.Position
	Op   string     `@( "*" | "/" | "%" )`
	Expr *PowerExpr `@@`
}

type PowerExpr struct {
	Pos   lexer.Position
	Left  *UnaryExpr   `@@`
	Right []*PowerTerm `@@*`
}

type PowerTerm struct {
	Pos  lexer.Position
	Expr *UnaryExpr `"^" @@`
}

type UnaryExpr struct {
	Pos  lexer.Position
	Op   string       `@( "+" | "-" )?`
	Expr *PostfixExpr `@@`
}

// PostfixExpr handles property access, indexing, IS NULL, IN, and the
// string predicates.
type PostfixExpr struct {
	Pos      lexer.Position
	Atom     *Atom            `@@`
	Suffixes []*PostfixSuffix `@@*`
}

type PostfixSuffix struct {
	Pos        lexer.Position
	Property   string            `(  "." @Ident`
	Index      *IndexSuffix      `|  @@`
	Labels     *NodeLabels       `|  @@`
	IsNull     *IsNullSuffix     `|  @@`
	In         *InSuffix         `|  @@`
	StringPred *StringPredSuffix `|  @@ )`
}

type IndexSuffix struct {
	Pos   lexer.Position
	Start *Expression `"[" @@?`
	Range bool        `@".."?`
	End   *Expression `@@? "]"`
}

type IsNullSuffix struct {
	Pos  lexer.Position
	Not  bool `"IS" @"NOT"?`
	Null bool `@"NULL"`
}

// InSuffix parses its operand at AddSubExpr level, one step below
// comparison, to avoid a left-recursion conflict with the full
// Expression grammar.
type InSuffix struct {
	Pos  lexer.Position
	Expr *AddSubExpr `"IN" @@`
}

type StringPredSuffix struct {
	Pos        lexer.Position
	StartsWith *AddSubExpr `(  "STARTS" "WITH" @@`
	EndsWith   *AddSubExpr `|  "ENDS" "WITH" @@`
	Contains   *AddSubExpr `|  "CONTAINS" @@ )`
}

// Atom is the base expression. Alternative order encodes the
// disambiguation policy: longest function-call
// form is tried before a bare identifier/property-access chain, and
// comprehensions (which also open with `[`) are tried before list
// literals.
type Atom struct {
	Pos                  lexer.Position
	ListComprehension    *ListComprehension    `  @@`
	PatternComprehension *PatternComprehension `| @@`
	Parameter            *Parameter            `| @@`
	CaseExpr             *CaseExpression       `| @@`
	Reduce               *ReduceExpr           `| @@`
	Quantifier           *QuantifierExpr       `| @@`
	ExistsSubquery       *ExistsSubquery       `| @@`
	ShortestPath         *ShortestPathExpr     `| @@`
	Parenthesized        *Expression           `| "(" @@ ")"`
	FunctionCall         *FunctionCall         `| @@`
	MapProjection        *MapProjectionExpr    `| @@`
	Literal              *Literal              `| @@`
	Variable             string                `| @Ident`
}

type Literal struct {
	Pos    lexer.Position
	Null   bool         `  @"NULL"`
	True   bool         `| @"TRUE"`
	False  bool         `| @"FALSE"`
	Float  *float64     `| @Float`
	Hex    *string      `| @Hex`
	Octal  *string      `| @Octal`
	Int    *int64       `| @Int`
	String *string      `| @String`
	List   *ListLiteral `| @@`
	Map    *MapLiteral  `| @@`
}

type ListLiteral struct {
	Pos   lexer.Position
	Items []*Expression `"[" ( @@ ( "," @@ )* )? "]"`
}

type MapLiteral struct {
	Pos   lexer.Position
	Pairs []*MapPair `"{" ( @@ ( "," @@ )* )? "}"`
}

type MapPair struct {
	Pos   lexer.Position
	Key   string      `@Ident ":"`
	Value *Expression `@@`
}

type Parameter struct {
	Pos  lexer.Position
	Name string `@Param`
}

// ListComprehension is [var IN source WHERE pred | mapping].
type ListComprehension struct {
	Pos      lexer.Position
	Variable string      `"[" @Ident "IN"`
	Source   *Expression `@@`
	Where    *Where      `@@?`
	Mapping  *Expression `( "|" @@ )? "]"`
}

// PatternComprehension is [var = pattern WHERE pred | mapping].
type PatternComprehension struct {
	Pos     lexer.Position
	Var     string                    `"[" ( @Ident "=" )?`
	Pattern *RelationshipChainPattern `@@`
	Where   *Where                    `@@?`
	Mapping *Expression               `"|" @@ "]"`
}

type RelationshipChainPattern struct {
	Pos   lexer.Position
	Node  *NodePattern        `@@`
	Chain []*PatternElemChain `@@+`
}

// QuantifierExpr is ALL|ANY|SINGLE|NONE(var IN source WHERE pred).
type QuantifierExpr struct {
	Pos      lexer.Position
	Kind     string      `@( "ALL" | "ANY" | "SINGLE" | "NONE" )`
	Variable string      `"(" @Ident "IN"`
	Source   *Expression `@@`
	Where    *Where      `@@? ")"`
}

// ExistsSubquery is EXISTS { pattern-query }.
type ExistsSubquery struct {
	Pos     lexer.Position
	Query   *RegularQuery `"EXISTS" "{" ( @@`
	Pattern *Pattern      `         | @@ ) "}"`
}

// ShortestPathExpr covers shortestPath(...) and allShortestPaths(...).
type ShortestPathExpr struct {
	Pos     lexer.Position
	All     bool                      `( @"ALLSHORTESTPATHS"`
	Single  bool                      `| @"SHORTESTPATH" )`
	Pattern *RelationshipChainPattern `"(" @@ ")"`
}

// MapProjectionExpr is variable{...} map-projection syntax: entries are
// `.prop` (the base's property under its own name), `.*` (every stored
// property), `key: expr`, or a bare variable projected under its own
// name. The lookahead keeps a plain variable reference from being
// swallowed when no `{` follows.
type MapProjectionExpr struct {
	Pos     lexer.Position
	Base    string               `@Ident (?= "{" )`
	Entries []*MapProjectionElem `"{" ( @@ ( "," @@ )* )? "}"`
}

type MapProjectionElem struct {
	Pos      lexer.Position
	All      bool           `  "." @"*"`
	Property string         `| "." @Ident`
	Key      string         `| ( @Ident ":"`
	Value    *Expression    `    @@ )`
	Variable string         `| @Ident`
}

// ReduceExpr is REDUCE(acc = init, var IN source | body).
type ReduceExpr struct {
	Pos         lexer.Position
	Accumulator string      `"REDUCE" "(" @Ident "="`
	Init        *Expression `@@ ","`
	Variable    string      `@Ident "IN"`
	Source      *Expression `@@ "|"`
	Body        *Expression `@@ ")"`
}

// CaseExpression covers both simple (`CASE expr WHEN ...`) and searched
// (`CASE WHEN ...`) forms.
type CaseExpression struct {
	Pos   lexer.Position
	Input *CaseInput  `"CASE" @@?`
	Whens []*CaseWhen `@@+`
	Else  *Expression `( "ELSE" @@ )?`
	End   bool        `@"END"`
}

// CaseInput wraps the optional scrutinee so participle's backtracking
// can skip it cleanly when the next token is WHEN (searched CASE).
type CaseInput struct {
	Pos  lexer.Position
	Expr *Expression `@@`
}

type CaseWhen struct {
	Pos  lexer.Position
	When *Expression `"WHEN" @@`
	Then *Expression `"THEN" @@`
}

// FunctionCall requires a following "(" so a bare variable isn't
// swallowed as a zero-arg call; this is the function-call-first rule
// from the disambiguation policy.
type FunctionCall struct {
	Pos      lexer.Position
	Name     *InvocationName `@@ (?= "(" )`
	Distinct bool            `"(" @"DISTINCT"?`
	Args     []*Expression   `( @@ ( "," @@ )* )? ")"`
}

type InvocationName struct {
	Pos   lexer.Position
	Parts []string `@Ident ( "." @Ident )*`
}

// PropertyExpr is the deepest-property-access form used by SET/REMOVE:
// once a function-call form has been ruled out, the longest `.`-chain
// wins.
type PropertyExpr struct {
	Pos   lexer.Position
	Base  string   `@Ident`
	Props []string `( "." @Ident )+`
}

// parser is the participle singleton built from the grammar above.
var parser = participle.MustBuild[Query](
	participle.Lexer(cypherLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(64),
)
