// Package lower turns a validated, monomorphized ast.Program into a
// single-function ir.Module: every user-defined call is inlined at its
// call site (§4.2.7), so the resulting module never contains a cross-
// function call instruction — only the entry body, fully unrolled.
package lower

import (
	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/perr"
)

// lowerer holds the state threaded through one Lower call: the single
// instruction/string builder every inlined call emits into, a
// monotonically increasing local-slot allocator (inlining never reuses a
// slot across call sites, per §4.2.7's "fresh per-invocation locals"),
// and the inline/inference recursion guard.
type lowerer struct {
	prog *ast.Program
	b    *builder

	nextLocal int

	// inlineStack holds the FullPath of every definition currently being
	// lowered or inferred, innermost last; a path appearing twice is a
	// recursive call, which the native backend rejects outright.
	inlineStack []string

	returnKinds map[string]returnKindEntry

	// arrayBaseOf maps an array<T> binding's name to the local index of
	// its first element (the count lives at the binding's own local, one
	// slot below); at(name, i) resolves against this for a literal i.
	arrayBaseOf map[string]int

	// entryArgsName, when non-empty, is the name bound to the entry
	// definition's array<string> parameter; it may only be used with
	// count(...) or inside print(...) (§4.2.1's argv plumbing is a
	// host-IO capability, not a general value).
	entryArgsName string
}

// Lower compiles the definition at entryPath (and everything it
// transitively calls, inlined) into a Module with one function.
func Lower(prog *ast.Program, entryPath string) (*ir.Module, error) {
	entry, ok := prog.FindDefinition(entryPath)
	if !ok {
		return nil, perr.WithPath(perr.KindEntryMissing, entryPath)
	}

	l := &lowerer{prog: prog, b: newBuilder()}

	var entryArgsLocal int
	scope := newScope(nil)
	switch len(entry.Parameters) {
	case 0:
	case 1:
		p := entry.Parameters[0]
		shape, err := parseBindingShape(p.Name, p.Transforms)
		if err != nil {
			return nil, err
		}
		if shape.category != Array || shape.elemKind != String {
			return nil, perr.WithPath(perr.KindEntryParamShape, entryPath)
		}
		entryArgsLocal = l.allocLocal()
		scope.define(p.Name, &local{index: entryArgsLocal, kind: shape.kind, category: Array, elemKind: String, stringSource: ArgvIndex})
		l.entryArgsName = p.Name
	default:
		return nil, perr.WithPath(perr.KindEntryParamShape, entryPath)
	}

	retKind, isVoid, err := l.returnKindOf(entry)
	if err != nil {
		return nil, err
	}

	l.inlineStack = append(l.inlineStack, entry.FullPath)
	if err := l.lowerBody(entry, scope, true, retKind, isVoid, -1, nil); err != nil {
		return nil, err
	}
	l.inlineStack = l.inlineStack[:len(l.inlineStack)-1]

	mod := &ir.Module{
		Functions:  []ir.Function{{Name: "main", Instructions: l.b.insts}},
		EntryIndex: 0,
		Strings:    l.b.strings,
	}
	if err := mod.Validate(); err != nil {
		return nil, err
	}
	return mod, nil
}

func (l *lowerer) allocLocal() int {
	idx := l.nextLocal
	l.nextLocal++
	return idx
}

func (l *lowerer) arrayBases() map[string]int {
	if l.arrayBaseOf == nil {
		l.arrayBaseOf = map[string]int{}
	}
	return l.arrayBaseOf
}

// lowerBody lowers def's statements and final return expression into the
// shared instruction stream.
//
// In terminal mode (only true for the entry definition) a return
// statement compiles straight to ReturnI32/ReturnI64/ReturnVoid: nothing
// ever resumes after the whole program halts, so an early return needs no
// jump-to-end machinery.
//
// In inlined mode (every call site) a return instead stores its value
// into returnLocal and jumps to the pad the caller patches in once the
// whole callee body has been emitted (§4.2.7's "return-local + jump-patch
// mechanism"), because execution must resume at the call site afterward.
func (l *lowerer) lowerBody(def *ast.Definition, s *scope, terminal bool, retKind Kind, isVoid bool, returnLocal int, returnJumps *[]int) error {
	for i := range def.Statements {
		if err := l.lowerStmt(&def.Statements[i], s, terminal, retKind, returnLocal, returnJumps); err != nil {
			return err
		}
	}
	if def.ReturnExpr != nil {
		return l.emitReturn(def.ReturnExpr, s, terminal, retKind, returnLocal, returnJumps)
	}
	if !def.HasReturnStatement {
		if !isVoid {
			return perr.WithPath(perr.KindMissingReturn, def.FullPath)
		}
		if terminal {
			l.b.emit(ir.ReturnVoid, 0)
		}
	}
	return nil
}

// emitReturn lowers a return(...) value expression and terminates the
// current body per the terminal/inlined distinction documented on
// lowerBody.
func (l *lowerer) emitReturn(valueExpr *ast.Expr, s *scope, terminal bool, retKind Kind, returnLocal int, returnJumps *[]int) error {
	k, err := l.lowerExpr(valueExpr, s)
	if err != nil {
		return err
	}
	if IsNumeric(retKind) && k != retKind {
		// a narrower/unified literal is allowed to widen silently; any other
		// mismatch is a conflicting-return-type defect the native backend
		// cannot paper over (§4.2.3's unification is a compile-time static
		// check, not a runtime coercion).
		if !(IsNumeric(k) && Unify(k, retKind) == retKind) {
			return perr.Withf(perr.KindConflictingReturn, valueExpr.Name, "return value kind %s does not match inferred return kind %s", k, retKind)
		}
	}
	if terminal {
		switch retKind {
		case Int64, UInt64:
			l.b.emit(ir.ReturnI64, 0)
		default:
			l.b.emit(ir.ReturnI32, 0)
		}
		return nil
	}
	l.b.emit(ir.StoreLocal, uint64(returnLocal))
	j := l.b.emitPlaceholder(ir.Jump)
	*returnJumps = append(*returnJumps, j)
	return nil
}
