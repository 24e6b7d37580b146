package lower

import (
	"github.com/primec/primec/internal/ast"
	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/perr"
)

// lowerExpr emits the instructions that compute e's value onto the
// operand stack and returns its Kind. Control constructs (if/repeat) and
// statement-only forms (assign, bindings) are handled in stmt.go; this
// file covers everything that yields a value.
func (l *lowerer) lowerExpr(e *ast.Expr, s *scope) (Kind, error) {
	switch e.Kind {
	case ast.Literal:
		return l.lowerLiteral(e)
	case ast.FloatLiteral:
		return Unknown, perr.WithDetail(perr.KindNoFloat, "float literal")
	case ast.BoolLiteral:
		v := uint64(0)
		if e.BoolValue {
			v = 1
		}
		l.b.emit(ir.PushI32, v)
		return Bool, nil
	case ast.StringLiteral:
		// String values never occupy the operand stack: every use of one
		// resolves to a compile-time table index (see lowerPrint and
		// lowerBinding's String-kind case), so a string literal appearing
		// as a bare value expression pushes nothing.
		l.b.internString(e.StringValue)
		return String, nil
	case ast.Name:
		return l.lowerName(e, s)
	case ast.Call:
		return l.lowerCall(e, s)
	default:
		return Unknown, perr.WithPath(perr.KindUnsupportedType, e.Name)
	}
}

func (l *lowerer) lowerLiteral(e *ast.Expr) (Kind, error) {
	switch {
	case e.IsUnsigned:
		l.b.emit(ir.PushI64, uint64(e.IntValue))
		return UInt64, nil
	case e.IntWidth == 64:
		l.b.emit(ir.PushI64, uint64(e.IntValue))
		return Int64, nil
	default:
		l.b.emit(ir.PushI32, uint64(uint32(int32(e.IntValue))))
		return Int32, nil
	}
}

func (l *lowerer) lowerName(e *ast.Expr, s *scope) (Kind, error) {
	loc, ok := s.lookup(e.Name)
	if !ok {
		return Unknown, perr.WithPath(perr.KindUnknownName, e.Name)
	}
	if loc.kind == String {
		// no runtime slot to load: callers resolve the table index
		// directly (lowerPrint, lowerBinding's string case).
		return String, nil
	}
	switch loc.category {
	case Reference:
		l.b.emit(ir.LoadLocal, uint64(loc.index))
		l.b.emit(ir.LoadIndirect, 0)
	default:
		l.b.emit(ir.LoadLocal, uint64(loc.index))
	}
	return loc.kind, nil
}

func (l *lowerer) lowerCall(e *ast.Expr, s *scope) (Kind, error) {
	if e.IsMethodCall {
		// method syntax reaching the lowerer was never resolved to a plain call
		return Unknown, perr.WithPath(perr.KindUnknownName, e.Name)
	}
	switch e.Name {
	case "plus":
		return l.lowerArith(e, s, ir.AddI32, ir.AddI64)
	case "minus":
		return l.lowerArith(e, s, ir.SubI32, ir.SubI64)
	case "multiply":
		return l.lowerArith(e, s, ir.MulI32, ir.MulI64)
	case "divide":
		return l.lowerDivide(e, s)
	case "negate":
		return l.lowerNegate(e, s)
	case "equal", "not_equal", "less", "less_equal", "greater", "greater_equal":
		return l.lowerCompare(e, s)
	case "location":
		return Unknown, perr.WithDetail(perr.KindBadReferenceInit, "location(...) is only valid as a binding initializer")
	case "dereference":
		return l.lowerDereference(e, s)
	case "at":
		return l.lowerAt(e, s)
	case "count":
		return l.lowerCount(e, s)
	case "print", "println", "eprint", "eprintln":
		return l.lowerPrint(e, s)
	default:
		if def, ok := l.prog.FindDefinition(e.Name); ok {
			return l.inlineCall(def, e, s)
		}
		return Unknown, perr.WithPath(perr.KindUnknownName, e.Name)
	}
}

func (l *lowerer) lowerArith(e *ast.Expr, s *scope, op32, op64 ir.Opcode) (Kind, error) {
	if len(e.Args) != 2 {
		return Unknown, perr.WithDetail(perr.KindArgShape, "arithmetic takes exactly two arguments")
	}
	ka, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return Unknown, err
	}
	kb, err := l.lowerExpr(&e.Args[1], s)
	if err != nil {
		return Unknown, err
	}
	k := Unify(ka, kb)
	if !IsNumeric(k) {
		return Unknown, perr.WithDetail(perr.KindArgShape, "arithmetic requires numeric operands")
	}
	if k == Int64 || k == UInt64 {
		l.b.emit(op64, 0)
	} else {
		l.b.emit(op32, 0)
	}
	return k, nil
}

func (l *lowerer) lowerDivide(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 2 {
		return Unknown, perr.WithDetail(perr.KindArgShape, "divide takes exactly two arguments")
	}
	ka, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return Unknown, err
	}
	kb, err := l.lowerExpr(&e.Args[1], s)
	if err != nil {
		return Unknown, err
	}
	k := Unify(ka, kb)
	switch k {
	case UInt64:
		l.b.emit(ir.DivU64, 0)
	case Int64:
		l.b.emit(ir.DivI64, 0)
	case Int32:
		l.b.emit(ir.DivI32, 0)
	default:
		return Unknown, perr.WithDetail(perr.KindArgShape, "divide requires numeric operands")
	}
	return k, nil
}

func (l *lowerer) lowerNegate(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 1 {
		return Unknown, perr.WithDetail(perr.KindArgShape, "negate takes exactly one argument")
	}
	k, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return Unknown, err
	}
	switch k {
	case Int64:
		l.b.emit(ir.NegI64, 0)
	case Int32:
		l.b.emit(ir.NegI32, 0)
	default:
		return Unknown, perr.WithDetail(perr.KindArgShape, "negate requires a signed operand")
	}
	return k, nil
}

var cmp32 = map[string]ir.Opcode{
	"equal": ir.CmpEqI32, "not_equal": ir.CmpNeI32,
	"less": ir.CmpLtI32, "less_equal": ir.CmpLeI32,
	"greater": ir.CmpGtI32, "greater_equal": ir.CmpGeI32,
}

// cmp64signed covers Int64, and also eq/ne for UInt64: equal/not_equal are
// bit-pattern comparisons with no unsigned variant in the opcode set, so
// width alone (not signedness) selects between the 32- and 64-bit forms.
var cmp64signed = map[string]ir.Opcode{
	"equal": ir.CmpEqI64, "not_equal": ir.CmpNeI64,
	"less": ir.CmpLtI64, "less_equal": ir.CmpLeI64,
	"greater": ir.CmpGtI64, "greater_equal": ir.CmpGeI64,
}

var cmp64unsigned = map[string]ir.Opcode{
	"less": ir.CmpLtU64, "less_equal": ir.CmpLeU64,
	"greater": ir.CmpGtU64, "greater_equal": ir.CmpGeU64,
}

func (l *lowerer) lowerCompare(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 2 {
		return Unknown, perr.WithDetail(perr.KindArgShape, "comparison takes exactly two arguments")
	}
	ka, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return Unknown, err
	}
	kb, err := l.lowerExpr(&e.Args[1], s)
	if err != nil {
		return Unknown, err
	}
	k := Unify(ka, kb)
	if !IsNumeric(k) {
		return Unknown, perr.WithDetail(perr.KindArgShape, "comparison requires numeric operands")
	}
	switch {
	case k == UInt64 && (e.Name == "equal" || e.Name == "not_equal"):
		l.b.emit(cmp64signed[e.Name], 0)
	case k == UInt64:
		l.b.emit(cmp64unsigned[e.Name], 0)
	case k == Int64:
		l.b.emit(cmp64signed[e.Name], 0)
	default:
		l.b.emit(cmp32[e.Name], 0)
	}
	return Bool, nil
}

func (l *lowerer) lowerDereference(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 1 {
		return Unknown, perr.WithDetail(perr.KindArgShape, "dereference takes exactly one argument")
	}
	k, err := l.lowerExpr(&e.Args[0], s)
	if err != nil {
		return Unknown, err
	}
	if !IsNumeric(k) {
		return Unknown, perr.WithPath(perr.KindPointerArithmetic, "dereference")
	}
	var elem Kind = Int32
	if e.Args[0].Kind == ast.Name {
		if loc, ok := s.lookup(e.Args[0].Name); ok {
			elem = loc.kind
		}
	}
	l.b.emit(ir.LoadIndirect, 0)
	return elem, nil
}

// lowerAt handles at(array, index) element access. index must be a
// compile-time integer literal: the lowerer resolves the element to a
// fixed local slot at lowering time rather than emitting address
// arithmetic, matching the direct-local-per-element array model.
func (l *lowerer) lowerAt(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 2 || e.Args[0].Kind != ast.Name {
		return Unknown, perr.WithDetail(perr.KindArgShape, "at takes an array name and an index")
	}
	name := e.Args[0].Name
	loc, ok := s.lookup(name)
	if !ok {
		return Unknown, perr.WithPath(perr.KindUnknownName, name)
	}
	if loc.category != Array {
		return Unknown, perr.WithDetail(perr.KindArgShape, "at requires an array<T> binding")
	}
	if loc.stringSource == ArgvIndex {
		return Unknown, perr.WithDetail(perr.KindArgShape, "entry arguments may only be used with count(...) or print(...)")
	}
	if e.Args[1].Kind != ast.Literal {
		return Unknown, perr.WithDetail(perr.KindArgShape, "at requires a literal index")
	}
	base, ok := l.arrayBases()[name]
	if !ok {
		return Unknown, perr.WithPath(perr.KindUnknownName, name)
	}
	idx := int(e.Args[1].IntValue)
	l.b.emit(ir.LoadLocal, uint64(base+idx))
	return loc.elemKind, nil
}

func (l *lowerer) lowerCount(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 1 || e.Args[0].Kind != ast.Name {
		return Unknown, perr.WithDetail(perr.KindArgShape, "count takes a single array or entry-args name")
	}
	name := e.Args[0].Name
	loc, ok := s.lookup(name)
	if !ok {
		return Unknown, perr.WithPath(perr.KindUnknownName, name)
	}
	if loc.stringSource == ArgvIndex {
		l.b.emit(ir.PushArgc, 0)
		return Int32, nil
	}
	if loc.category != Array {
		return Unknown, perr.WithDetail(perr.KindArgShape, "count requires an array<T> binding")
	}
	l.b.emit(ir.LoadLocal, uint64(loc.index))
	return Int32, nil
}

// lowerPrint handles the print/println/eprint/eprintln family (§4.2.6's
// host-IO opcodes): a string literal or a numeric/bool value, or a single
// literal-indexed entry-args element.
func (l *lowerer) lowerPrint(e *ast.Expr, s *scope) (Kind, error) {
	if len(e.Args) != 1 {
		return Unknown, perr.WithDetail(perr.KindArgShape, "print takes exactly one argument")
	}
	var flags uint8
	if e.Name == "println" || e.Name == "eprintln" {
		flags |= ir.PrintFlagNewline
	}
	if e.Name == "eprint" || e.Name == "eprintln" {
		flags |= ir.PrintFlagStderr
	}

	arg := &e.Args[0]
	if arg.Kind == ast.Call && arg.Name == "at" && len(arg.Args) == 2 && arg.Args[0].Kind == ast.Name {
		if loc, ok := s.lookup(arg.Args[0].Name); ok && loc.stringSource == ArgvIndex {
			if arg.Args[1].Kind != ast.Literal {
				return Unknown, perr.WithDetail(perr.KindArgShape, "entry-args index must be a literal")
			}
			// PrintArgv's index comes off the operand stack (its immediate
			// carries only the flag bits), unlike PrintString's compile-time
			// table index: push the literal index, then the flags-only op.
			l.b.emit(ir.PushI32, uint64(uint32(int32(arg.Args[1].IntValue))))
			l.b.emit(ir.PrintArgv, uint64(flags))
			return Unknown, nil
		}
	}

	// A string value never reaches the operand stack (see lowerExpr's
	// StringLiteral/Name handling); its table index is resolved here at
	// lowering time and packed straight into PrintString's immediate.
	if arg.Kind == ast.StringLiteral {
		idx := l.b.internString(arg.StringValue)
		l.b.emit(ir.PrintString, ir.PackPrintImm(idx, flags))
		return Unknown, nil
	}
	if arg.Kind == ast.Name {
		if loc, ok := s.lookup(arg.Name); ok && loc.kind == String {
			l.b.emit(ir.PrintString, ir.PackPrintImm(loc.stringTableIndex, flags))
			return Unknown, nil
		}
	}

	k, err := l.lowerExpr(arg, s)
	if err != nil {
		return Unknown, err
	}
	switch k {
	case String:
		return Unknown, perr.WithDetail(perr.KindArgShape, "print requires a string literal or bound string name")
	case Int64:
		l.b.emit(ir.PrintI64, uint64(flags))
	case UInt64:
		l.b.emit(ir.PrintU64, uint64(flags))
	default:
		l.b.emit(ir.PrintI32, uint64(flags))
	}
	return Unknown, nil
}
