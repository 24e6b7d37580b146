package lower

import (
	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/perr"
)

// inlineCall expands a user-defined call in place (§4.2.7): the callee's
// parameters become fresh locals bound from the call-site arguments, its
// body is lowered into the same instruction stream the caller is
// building, and any return(...) inside it stores to a private return
// local and jumps to a pad patched in immediately after the callee's last
// instruction — there is never a cross-function call instruction in the
// emitted module.
func (l *lowerer) inlineCall(def *ast.Definition, call *ast.Expr, callerScope *scope) (Kind, error) {
	for _, path := range l.inlineStack {
		if path == def.FullPath {
			return Unknown, perr.WithPath(perr.KindRecursiveCall, def.FullPath)
		}
	}

	retKind, isVoid, err := l.returnKindOf(def)
	if err != nil {
		return Unknown, err
	}

	args, fromDefault, err := l.resolveCallArgs(def, call)
	if err != nil {
		return Unknown, err
	}

	calleeScope := newScope(nil)
	for i, p := range def.Parameters {
		shape, err := parseBindingShape(p.Name, p.Transforms)
		if err != nil {
			return Unknown, err
		}
		argExpr := args[i]
		argScope := callerScope
		if fromDefault[i] {
			argScope = calleeScope
		}
		if err := l.bindParameter(p.Name, shape, argExpr, argScope, calleeScope); err != nil {
			return Unknown, err
		}
	}

	l.inlineStack = append(l.inlineStack, def.FullPath)
	returnLocal := -1
	if !isVoid {
		returnLocal = l.allocLocal()
	}
	var returnJumps []int
	err = l.lowerBody(def, calleeScope, false, retKind, isVoid, returnLocal, &returnJumps)
	l.inlineStack = l.inlineStack[:len(l.inlineStack)-1]
	if err != nil {
		return Unknown, err
	}

	pad := l.b.here()
	for _, j := range returnJumps {
		l.b.patchJump(j, pad)
	}

	if isVoid {
		return Unknown, nil
	}
	l.b.emit(ir.LoadLocal, uint64(returnLocal))
	return retKind, nil
}

// bindParameter lowers one call argument (evaluated in argScope, which is
// the caller's scope for an explicit argument or the callee's scope for a
// parameter default) and binds it as a fresh local in calleeScope,
// mirroring lowerBinding's category handling.
func (l *lowerer) bindParameter(name string, shape bindingShape, argExpr *ast.Expr, argScope, calleeScope *scope) error {
	switch shape.category {
	case Reference, Pointer:
		if argExpr.Kind == ast.Call && argExpr.Name == "location" {
			if len(argExpr.Args) != 1 || argExpr.Args[0].Kind != ast.Name {
				return perr.WithPath(perr.KindBadReferenceInit, name)
			}
			target, ok := argScope.lookup(argExpr.Args[0].Name)
			if !ok {
				return perr.WithPath(perr.KindUnknownName, argExpr.Args[0].Name)
			}
			l.b.emit(ir.AddressOfLocal, uint64(target.index))
		} else if shape.category == Reference {
			return perr.WithPath(perr.KindBadReferenceInit, name)
		} else {
			k, err := l.lowerExpr(argExpr, argScope)
			if err != nil {
				return err
			}
			if !IsNumeric(k) {
				return perr.WithPath(perr.KindPointerArithmetic, name)
			}
		}
		idx := l.allocLocal()
		l.b.emit(ir.StoreLocal, uint64(idx))
		calleeScope.define(name, &local{index: idx, kind: shape.kind, category: shape.category, mutable: shape.mutable})
		return nil
	case Array:
		// an array<T> parameter binds to the caller's array name directly
		// (its element locals are already in place; no copy is made).
		if argExpr.Kind != ast.Name {
			return perr.WithPath(perr.KindArgShape, name)
		}
		src, ok := argScope.lookup(argExpr.Name)
		if !ok || src.category != Array {
			return perr.WithPath(perr.KindArgShape, name)
		}
		calleeScope.define(name, src)
		if base, ok := l.arrayBases()[argExpr.Name]; ok {
			l.arrayBases()[name] = base
		}
		return nil
	default:
		if shape.kind == String {
			if argExpr.Kind == ast.StringLiteral {
				idx := l.b.internString(argExpr.StringValue)
				calleeScope.define(name, &local{kind: String, category: Value, stringSource: TableIndex, stringTableIndex: idx})
				return nil
			}
			if argExpr.Kind == ast.Name {
				src, ok := argScope.lookup(argExpr.Name)
				if !ok || src.kind != String {
					return perr.WithPath(perr.KindUnknownName, argExpr.Name)
				}
				calleeScope.define(name, src)
				return nil
			}
			return perr.WithPath(perr.KindArgShape, name)
		}
		k, err := l.lowerExpr(argExpr, argScope)
		if err != nil {
			return err
		}
		kind := shape.kind
		if kind == Unknown {
			kind = k
		}
		idx := l.allocLocal()
		l.b.emit(ir.StoreLocal, uint64(idx))
		calleeScope.define(name, &local{index: idx, kind: kind, category: Value, mutable: shape.mutable})
		return nil
	}
}

// resolveCallArgs matches a call's positional and named arguments (and
// any parameter defaults) to def's parameter list, one expression per
// parameter. fromDefault[i] reports whether args[i] came from the
// parameter's own Default rather than the call site, which matters for
// which scope that expression must be lowered against.
func (l *lowerer) resolveCallArgs(def *ast.Definition, call *ast.Expr) (args []*ast.Expr, fromDefault []bool, err error) {
	args = make([]*ast.Expr, len(def.Parameters))
	used := make([]bool, len(call.Args))

	for i := range call.Args {
		if i < len(call.ArgNames) && call.ArgNames[i] != "" {
			name := call.ArgNames[i]
			pidx := -1
			for pi, p := range def.Parameters {
				if p.Name == name {
					pidx = pi
					break
				}
			}
			if pidx < 0 {
				return nil, nil, perr.WithPath(perr.KindArgShape, name)
			}
			args[pidx] = &call.Args[i]
			used[i] = true
		}
	}

	pi := 0
	for i := range call.Args {
		if used[i] {
			continue
		}
		for pi < len(args) && args[pi] != nil {
			pi++
		}
		if pi >= len(args) {
			return nil, nil, perr.WithPath(perr.KindArgCountMismatch, def.FullPath)
		}
		args[pi] = &call.Args[i]
		pi++
	}

	fromDefault = make([]bool, len(args))
	for i, p := range def.Parameters {
		if args[i] == nil {
			if p.Default == nil {
				return nil, nil, perr.WithPath(perr.KindArgCountMismatch, def.FullPath)
			}
			args[i] = p.Default
			fromDefault[i] = true
		}
	}
	return args, fromDefault, nil
}
