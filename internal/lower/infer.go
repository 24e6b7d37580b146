package lower

import (
	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/perr"
)

// returnKindOf determines a definition's return Kind: an explicit
// return<T> transform wins outright; otherwise it is inferred by
// unifying the Kind of every return(...) expression reachable in the
// body (§4.2.3). inferring reuses l.inlineStack as its recursion guard,
// since a definition whose return type depends on calling itself (directly
// or through a cycle) can never be resolved without first assuming an
// answer — the native backend simply refuses this (§4.2.7, KindRecursiveCall).
func (l *lowerer) returnKindOf(def *ast.Definition) (kind Kind, isVoid bool, err error) {
	if cached, ok := l.returnKinds[def.FullPath]; ok {
		return cached.kind, cached.isVoid, nil
	}

	k, void, present, err := returnKindFromTransform(def.Transforms)
	if err != nil {
		return Unknown, false, err
	}
	if present {
		l.cacheReturnKind(def.FullPath, k, void)
		return k, void, nil
	}

	for _, path := range l.inlineStack {
		if path == def.FullPath {
			return Unknown, false, perr.WithPath(perr.KindRecursiveCall, def.FullPath)
		}
	}
	l.inlineStack = append(l.inlineStack, def.FullPath)
	defer func() { l.inlineStack = l.inlineStack[:len(l.inlineStack)-1] }()

	binds := map[string]Kind{}
	for _, p := range def.Parameters {
		shape, err := parseBindingShape(p.Name, p.Transforms)
		if err != nil {
			return Unknown, false, err
		}
		binds[p.Name] = shape.kind
	}

	found := Unknown
	sawAny := false
	var walk func(stmts []ast.Stmt) error
	walk = func(stmts []ast.Stmt) error {
		for _, st := range stmts {
			e := st.Expr
			if e.Kind != ast.Call {
				continue
			}
			switch e.Name {
			case "return":
				if len(e.Args) == 0 {
					continue // bare `return()`: a void path, doesn't constrain a numeric kind
				}
				k, err := l.staticKind(&e.Args[0], binds)
				if err != nil {
					return err
				}
				if !sawAny {
					found, sawAny = k, true
				} else {
					found = Unify(found, k)
				}
			case "if":
				if err := walk(e.BodyArguments); err != nil {
					return err
				}
				for _, a := range e.Args {
					if a.Kind == ast.Call && a.Name == "else" {
						if err := walk(a.BodyArguments); err != nil {
							return err
						}
					}
				}
			case "repeat":
				if err := walk(e.BodyArguments); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(def.Statements); err != nil {
		return Unknown, false, err
	}
	if def.ReturnExpr != nil {
		k, err := l.staticKind(def.ReturnExpr, binds)
		if err != nil {
			return Unknown, false, err
		}
		if !sawAny {
			found, sawAny = k, true
		} else {
			found = Unify(found, k)
		}
	}
	if !sawAny {
		l.cacheReturnKind(def.FullPath, Unknown, true)
		return Unknown, true, nil
	}
	l.cacheReturnKind(def.FullPath, found, false)
	return found, false, nil
}

type returnKindEntry struct {
	kind   Kind
	isVoid bool
}

func (l *lowerer) cacheReturnKind(path string, k Kind, isVoid bool) {
	if l.returnKinds == nil {
		l.returnKinds = map[string]returnKindEntry{}
	}
	l.returnKinds[path] = returnKindEntry{kind: k, isVoid: isVoid}
}

// staticKind computes an expression's Kind without emitting any
// instructions, consulting binds for bare names. It is deliberately a
// light re-derivation of lowerExpr's type logic rather than a shared
// pass: inference runs before a call site's locals exist, so it cannot
// share the real scope.
func (l *lowerer) staticKind(e *ast.Expr, binds map[string]Kind) (Kind, error) {
	switch e.Kind {
	case ast.Literal:
		switch {
		case e.IsUnsigned:
			return UInt64, nil
		case e.IntWidth == 64:
			return Int64, nil
		default:
			return Int32, nil
		}
	case ast.FloatLiteral:
		return Unknown, perr.WithDetail(perr.KindNoFloat, "float literal")
	case ast.BoolLiteral:
		return Bool, nil
	case ast.StringLiteral:
		return String, nil
	case ast.Name:
		if k, ok := binds[e.Name]; ok {
			return k, nil
		}
		return Unknown, perr.WithPath(perr.KindUnknownName, e.Name)
	case ast.Call:
		return l.staticKindOfCall(e, binds)
	default:
		return Unknown, perr.WithPath(perr.KindUnsupportedType, e.Name)
	}
}

func (l *lowerer) staticKindOfCall(e *ast.Expr, binds map[string]Kind) (Kind, error) {
	switch e.Name {
	case "plus", "minus", "multiply", "divide", "negate":
		k := Unknown
		sawAny := false
		for i := range e.Args {
			ak, err := l.staticKind(&e.Args[i], binds)
			if err != nil {
				return Unknown, err
			}
			if !sawAny {
				k, sawAny = ak, true
			} else {
				k = Unify(k, ak)
			}
		}
		return k, nil
	case "equal", "not_equal", "less", "less_equal", "greater", "greater_equal":
		return Bool, nil
	case "dereference":
		if len(e.Args) != 1 {
			return Unknown, perr.WithDetail(perr.KindArgShape, "dereference takes exactly one argument")
		}
		if e.Args[0].Kind == ast.Name {
			if k, ok := binds[e.Args[0].Name]; ok {
				return k, nil
			}
		}
		return Unknown, nil
	case "at":
		if len(e.Args) != 2 {
			return Unknown, perr.WithDetail(perr.KindArgShape, "at takes exactly two arguments")
		}
		return Int32, nil
	case "count":
		return Int32, nil
	default:
		if def, ok := l.prog.FindDefinition(e.Name); ok {
			k, _, err := l.returnKindOf(def)
			return k, err
		}
		return Unknown, nil
	}
}
