// Package ast defines the program representation consumed by the IR
// lowerer. It is produced by collaborators outside this module's scope
// (the text include resolver, the surface desugaring filters, the
// lexer/parser, semantic validation and template monomorphization) and is
// assumed already validated and monomorphized by the time lower.Lower sees
// it: the lowerer does not re-check anything a valid program could not
// violate.
package ast

// Kind identifies the shape of an Expr.
type Kind uint8

const (
	// Literal is an integer literal, typed by its transforms (i32, i64,
	// u64, or untyped int defaulting per 4.2.1).
	Literal Kind = iota
	// FloatLiteral is a floating point literal. Always rejected by the
	// lowerer; kept as a distinct Kind so the rejection can name it.
	FloatLiteral
	// BoolLiteral is `true` or `false`.
	BoolLiteral
	// StringLiteral is a quoted string.
	StringLiteral
	// Name is a bare identifier reference.
	Name
	// Call is a transform-tagged name-with-arguments application: builtin
	// operator, user-defined call, or control construct.
	Call
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case FloatLiteral:
		return "float_literal"
	case BoolLiteral:
		return "bool_literal"
	case StringLiteral:
		return "string_literal"
	case Name:
		return "name"
	case Call:
		return "call"
	default:
		return "unknown"
	}
}

// Transform is one attribute from the dense vocabulary described in
// spec §3: return annotations, visibility/lifecycle qualifiers, type
// names used as binding types, and struct markers. Args holds any
// parenthesized or angle-bracket arguments (align_bytes(n), restrict<T>,
// array<T>, map<K,V>, Pointer<T>, Reference<T>, return<T>); it is empty
// for bare transforms like `mut` or `public`.
type Transform struct {
	Name string
	Args []string
}

// FindTransform returns the first transform named n, and whether it was
// present at all.
func FindTransform(transforms []Transform, n string) (Transform, bool) {
	for _, t := range transforms {
		if t.Name == n {
			return t, true
		}
	}
	return Transform{}, false
}

// CountTransform returns how many transforms in the list are named n, used
// to detect conflicting duplicate annotations (e.g. two `return<T>`s).
func CountTransform(transforms []Transform, n string) int {
	c := 0
	for _, t := range transforms {
		if t.Name == n {
			c++
		}
	}
	return c
}

// Expr is a node in an expression tree. Exactly one of the literal fields
// is meaningful, selected by Kind.
type Expr struct {
	Kind Kind

	// IntValue, IsUnsigned and IntWidth describe a Literal: the parsed
	// value, whether it carries a `u64` suffix/transform, and its bit
	// width (32 or 64; defaults to 32 per 4.2.1 unless a `i64`/`u64`
	// transform or suffix says otherwise).
	IntValue   int64
	IsUnsigned bool
	IntWidth   int

	BoolValue   bool
	StringValue string

	// Name is the identifier for a Name expression, or the call's target
	// name for a Call (builtin or user-defined path).
	Name string

	// IsBinding marks a Call that is in fact a binding declaration: a
	// transform-tagged call-with-one-argument whose Name is the bound
	// identifier and whose single Args entry is the initializer.
	IsBinding bool

	// IsMethodCall marks call syntax `recv.name(args)`; by the time the
	// lowerer runs, an earlier stage has already rewritten this into a
	// plain Call naming the resolved `<type-path>/name` with recv
	// prepended to Args, so the lowerer only ever sees IsMethodCall as a
	// defect to reject (resolution must already have happened).
	IsMethodCall bool

	Transforms   []Transform
	TemplateArgs []string

	// Args is the positional argument list of a Call.
	Args []Expr
	// ArgNames runs parallel to Args; a non-empty entry names the
	// parameter that positional slot binds to (a named argument).
	ArgNames []string

	// BodyArguments is the trailing `{ ... }` block attached to a call,
	// e.g. the then/else blocks of `if`, the body of `repeat`, or a
	// rejected block argument on a user call.
	BodyArguments []Stmt
}

// Stmt is a statement: a binding, return, if, repeat, print call, or a
// bare expression evaluated for effect.
type Stmt struct {
	Expr Expr
}

// Parameter is a single parameter on a Definition.
type Parameter struct {
	Name       string
	Transforms []Transform
	// Default is the parameter's default-value expression, used when a
	// call omits this parameter (4.2.7). Nil if there is no default.
	Default *Expr
}

// Definition is a single user-defined callable: a function, struct
// method, or template instantiation, already fully resolved and
// monomorphized by the time it reaches the lowerer.
type Definition struct {
	// FullPath is an absolute, slash-rooted path, e.g. "/main" or
	// "/ns/name".
	FullPath string

	Transforms   []Transform
	TemplateArgs []string

	Parameters []Parameter

	Statements []Stmt

	ReturnExpr        *Expr
	HasReturnStatement bool
}

// Program is the whole monomorphized, validated translation unit handed to
// the lowerer.
type Program struct {
	Definitions []Definition
	Executions  []Expr
	Imports     []string
}

// FindDefinition returns the definition whose FullPath equals path.
func (p *Program) FindDefinition(path string) (*Definition, bool) {
	for i := range p.Definitions {
		if p.Definitions[i].FullPath == path {
			return &p.Definitions[i], true
		}
	}
	return nil, false
}
