package lower

import (
	"strings"

	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/perr"
)

// lowerStmt lowers one top-level statement: a binding, an if, a repeat, a
// return, or a bare expression evaluated for its side effects (print,
// assign, or a call made only for effect).
func (l *lowerer) lowerStmt(st *ast.Stmt, s *scope, terminal bool, retKind Kind, returnLocal int, returnJumps *[]int) error {
	e := &st.Expr

	if e.Kind == ast.Call && e.IsBinding {
		return l.lowerBinding(e, s)
	}
	if e.Kind == ast.Call && e.Name == "return" {
		if len(e.Args) == 0 {
			if terminal {
				l.b.emit(ir.ReturnVoid, 0)
			} else {
				j := l.b.emitPlaceholder(ir.Jump)
				*returnJumps = append(*returnJumps, j)
			}
			return nil
		}
		return l.emitReturn(&e.Args[0], s, terminal, retKind, returnLocal, returnJumps)
	}
	if e.Kind == ast.Call && e.Name == "if" {
		return l.lowerIf(e, s, terminal, retKind, returnLocal, returnJumps)
	}
	if e.Kind == ast.Call && e.Name == "repeat" {
		return l.lowerRepeat(e, s, terminal, retKind, returnLocal, returnJumps)
	}
	if e.Kind == ast.Call && e.Name == "assign" {
		return l.lowerAssign(e, s)
	}

	// Anything else is an expression evaluated for effect: print family,
	// or a user call whose result is discarded.
	k, err := l.lowerExpr(e, s)
	if err != nil {
		return err
	}
	if k != Unknown && !isPrintCall(e) {
		// a non-void, non-print expression statement still leaves a value
		// on the operand stack; pop it so the stack stays balanced for
		// whatever follows.
		l.b.emit(ir.Pop, 0)
	}
	return nil
}

func isPrintCall(e *ast.Expr) bool {
	switch e.Name {
	case "print", "println", "eprint", "eprintln":
		return true
	default:
		return false
	}
}

// lowerBinding binds e.Name to the value of e.Args[0] (its single
// initializer), per the binding shape named by e.Transforms.
func (l *lowerer) lowerBinding(e *ast.Expr, s *scope) error {
	if s.definedHere(e.Name) {
		return perr.Withf(perr.KindRedefinition, e.Name, "already bound alongside %s", strings.Join(s.namesHere(), ", "))
	}
	shape, err := parseBindingShape(e.Name, e.Transforms)
	if err != nil {
		return err
	}

	if len(e.Args) != 1 {
		return perr.WithPath(perr.KindArgShape, e.Name)
	}
	init := &e.Args[0]

	switch shape.category {
	case Reference:
		if !(init.Kind == ast.Call && init.Name == "location") {
			return perr.WithPath(perr.KindBadReferenceInit, e.Name)
		}
		return l.lowerLocationBinding(e.Name, init, shape, s, false)
	case Pointer:
		if init.Kind == ast.Call && init.Name == "location" {
			return l.lowerLocationBinding(e.Name, init, shape, s, true)
		}
		k, err := l.lowerExpr(init, s)
		if err != nil {
			return err
		}
		if k != Int32 && k != Int64 && k != UInt64 {
			return perr.WithPath(perr.KindPointerArithmetic, e.Name)
		}
		idx := l.allocLocal()
		l.b.emit(ir.StoreLocal, uint64(idx))
		s.define(e.Name, &local{index: idx, kind: shape.kind, category: Pointer, mutable: shape.mutable})
		return nil
	case Array:
		return l.lowerArrayBinding(e.Name, init, shape, s)
	default:
		if shape.kind == String || init.Kind == ast.StringLiteral {
			if init.Kind != ast.StringLiteral {
				return perr.WithDetail(perr.KindArgShape, "string bindings require a string literal initializer")
			}
			tableIdx := l.b.internString(init.StringValue)
			s.define(e.Name, &local{kind: String, category: Value, mutable: shape.mutable, stringSource: TableIndex, stringTableIndex: tableIdx})
			return nil
		}
		k, err := l.lowerExpr(init, s)
		if err != nil {
			return err
		}
		kind := shape.kind
		if kind == Unknown {
			kind = k
		}
		idx := l.allocLocal()
		l.b.emit(ir.StoreLocal, uint64(idx))
		s.define(e.Name, &local{index: idx, kind: kind, category: Value, mutable: shape.mutable})
		return nil
	}
}

// lowerLocationBinding handles `p = location(v)`: v must already be a
// bound local, and p becomes a Pointer/Reference carrying its address.
func (l *lowerer) lowerLocationBinding(name string, init *ast.Expr, shape bindingShape, s *scope, isPointer bool) error {
	if len(init.Args) != 1 || init.Args[0].Kind != ast.Name {
		return perr.WithPath(perr.KindBadReferenceInit, name)
	}
	target, ok := s.lookup(init.Args[0].Name)
	if !ok {
		return perr.WithPath(perr.KindUnknownName, init.Args[0].Name)
	}
	l.b.emit(ir.AddressOfLocal, uint64(target.index))
	idx := l.allocLocal()
	l.b.emit(ir.StoreLocal, uint64(idx))
	cat := Reference
	if isPointer {
		cat = Pointer
	}
	s.define(name, &local{index: idx, kind: target.kind, category: cat, mutable: shape.mutable})
	return nil
}

// lowerArrayBinding allocates one local per array<T> element: the first
// slot holds the element count, the rest hold the elements in order
// (mirroring the direct-local-per-element model exercised by the VM's
// array-indexing scenario).
func (l *lowerer) lowerArrayBinding(name string, init *ast.Expr, shape bindingShape, s *scope) error {
	if init.Kind != ast.Call || init.Name != "array" {
		return perr.WithPath(perr.KindArgShape, name)
	}
	countIdx := l.allocLocal()
	l.b.emit(ir.PushI32, uint64(uint32(int32(len(init.Args)))))
	l.b.emit(ir.StoreLocal, uint64(countIdx))

	// Every element slot is reserved before any element is lowered, so
	// locals an element expression allocates (an inlined call's) land
	// after the array instead of between its elements.
	first := l.nextLocal
	for range init.Args {
		l.allocLocal()
	}
	for i := range init.Args {
		k, err := l.lowerExpr(&init.Args[i], s)
		if err != nil {
			return err
		}
		if IsNumeric(shape.elemKind) && k != shape.elemKind && !(IsNumeric(k) && Unify(k, shape.elemKind) == shape.elemKind) {
			return perr.Withf(perr.KindConflictingReturn, name, "array element %d has kind %s, want %s", i, k, shape.elemKind)
		}
		l.b.emit(ir.StoreLocal, uint64(first+i))
	}
	s.define(name, &local{index: countIdx, kind: Int32, category: Array, elemKind: shape.elemKind})
	// arrayBase records the first element's local index so at(name, i)
	// can resolve element i to local arrayBase+i for a literal index.
	l.arrayBases()[name] = first
	return nil
}

// lowerAssign lowers `assign(target, value)`: target is either a bound
// mutable local name, or dereference(p).
func (l *lowerer) lowerAssign(e *ast.Expr, s *scope) error {
	if len(e.Args) != 2 {
		return perr.WithDetail(perr.KindArgShape, "assign takes exactly two arguments")
	}
	target, value := &e.Args[0], &e.Args[1]

	if target.Kind == ast.Call && target.Name == "dereference" {
		if len(target.Args) != 1 || target.Args[0].Kind != ast.Name {
			return perr.WithDetail(perr.KindBadAssignTarget, "dereference target must be a bound pointer or reference")
		}
		ptr, ok := s.lookup(target.Args[0].Name)
		if !ok {
			return perr.WithPath(perr.KindUnknownName, target.Args[0].Name)
		}
		l.b.emit(ir.LoadLocal, uint64(ptr.index))
		if _, err := l.lowerExpr(value, s); err != nil {
			return err
		}
		l.b.emit(ir.StoreIndirect, 0)
		return nil
	}

	if target.Kind != ast.Name {
		return perr.WithDetail(perr.KindBadAssignTarget, "assign target must be a local name or dereference(...)")
	}
	loc, ok := s.lookup(target.Name)
	if !ok {
		return perr.WithPath(perr.KindUnknownName, target.Name)
	}
	if !loc.mutable {
		return perr.WithPath(perr.KindImmutableAssign, target.Name)
	}
	if loc.category == Reference {
		l.b.emit(ir.LoadLocal, uint64(loc.index))
		if _, err := l.lowerExpr(value, s); err != nil {
			return err
		}
		l.b.emit(ir.StoreIndirect, 0)
		return nil
	}
	if _, err := l.lowerExpr(value, s); err != nil {
		return err
	}
	l.b.emit(ir.StoreLocal, uint64(loc.index))
	return nil
}

// lowerIf lowers if(cond){then}[else{else}] using the forward-branch
// fixup pattern: the false-branch jump is emitted before its target is
// known, and patched in once the relevant block has been emitted.
func (l *lowerer) lowerIf(e *ast.Expr, s *scope, terminal bool, retKind Kind, returnLocal int, returnJumps *[]int) error {
	if len(e.Args) != 1 && len(e.Args) != 2 {
		return perr.WithDetail(perr.KindArgShape, "if takes a condition and an optional else block")
	}
	k, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return err
	}
	if k != Bool {
		return perr.WithDetail(perr.KindArgShape, "if condition must be bool")
	}

	var elseBody []ast.Stmt
	if len(e.Args) == 2 {
		// a trailing else{...} arrives desugared as an `else` call argument
		// carrying its own BodyArguments; nothing else may appear after cond.
		if e.Args[1].Kind != ast.Call || e.Args[1].Name != "else" {
			return perr.WithDetail(perr.KindArgShape, "if takes a condition and an optional else block")
		}
		elseBody = e.Args[1].BodyArguments
	}

	falseJump := l.b.emitPlaceholder(ir.JumpIfZero)
	thenScope := s.clone()
	for i := range e.BodyArguments {
		if err := l.lowerStmt(&e.BodyArguments[i], thenScope, terminal, retKind, returnLocal, returnJumps); err != nil {
			return err
		}
	}
	if len(elseBody) == 0 {
		l.b.patchJump(falseJump, l.b.here())
		return nil
	}
	endJump := l.b.emitPlaceholder(ir.Jump)
	l.b.patchJump(falseJump, l.b.here())
	elseScope := s.clone()
	for i := range elseBody {
		if err := l.lowerStmt(&elseBody[i], elseScope, terminal, retKind, returnLocal, returnJumps); err != nil {
			return err
		}
	}
	l.b.patchJump(endJump, l.b.here())
	return nil
}

// lowerRepeat lowers repeat(cond){body}: evaluate cond, exit if zero,
// otherwise run body and jump back to re-evaluate cond.
func (l *lowerer) lowerRepeat(e *ast.Expr, s *scope, terminal bool, retKind Kind, returnLocal int, returnJumps *[]int) error {
	if len(e.Args) != 1 {
		return perr.WithDetail(perr.KindArgShape, "repeat takes exactly one condition argument")
	}
	top := l.b.here()
	k, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return err
	}
	if k != Bool {
		return perr.WithDetail(perr.KindArgShape, "repeat condition must be bool")
	}
	exitJump := l.b.emitPlaceholder(ir.JumpIfZero)
	bodyScope := s.clone()
	for i := range e.BodyArguments {
		if err := l.lowerStmt(&e.BodyArguments[i], bodyScope, terminal, retKind, returnLocal, returnJumps); err != nil {
			return err
		}
	}
	l.b.emit(ir.Jump, uint64(top))
	l.b.patchJump(exitJump, l.b.here())
	return nil
}
