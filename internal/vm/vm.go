// Package vm implements the stack interpreter described in spec §4.3: a
// single-threaded, deterministic evaluator over the pure-compute subset
// of ir.Opcode, used to validate the lowerer's arithmetic and control-flow
// decisions without going through the native backend.
//
// The interpreter loop is adapted from the dispatch shape of
// mna-nenuphar's machine.run (decode opcode, decode immediate, switch),
// simplified for this IR's flat instruction model: no call stack (user
// calls are fully inlined before the VM ever sees them), no cells,
// threads, or dynamic value types — every cell on the operand stack and
// in locals is a bare uint64.
package vm

import (
	"fmt"

	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/perr"
)

// Execute interprets m's entry function and returns its 64-bit result
// (sign-extended for ReturnI32, raw for ReturnI64, zero for ReturnVoid).
// On any trap condition it returns a *perr.Error with Kind KindVmTrap and
// a human-readable Detail matching the taxonomy in §7.
func Execute(m *ir.Module) (int64, error) {
	fn := m.EntryFunction()
	locals := make([]uint64, fn.LocalCount())
	stack := make([]uint64, 0, 16)

	push := func(v uint64) { stack = append(stack, v) }
	pop := func(op ir.Opcode) (uint64, error) {
		if len(stack) == 0 {
			return 0, trap(fmt.Sprintf("IR stack underflow on %s", op))
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	insts := fn.Instructions
	pc := 0
	for {
		if pc >= len(insts) {
			return 0, trap("missing return in IR")
		}
		inst := insts[pc]
		pc++
		op := inst.Op

		switch op {
		case ir.PushI32:
			push(uint64(int64(int32(uint32(inst.Imm)))))
		case ir.PushI64:
			push(inst.Imm)
		case ir.Dup:
			if len(stack) == 0 {
				return 0, trap(fmt.Sprintf("IR stack underflow on %s", op))
			}
			push(stack[len(stack)-1])
		case ir.Pop:
			if _, err := pop(op); err != nil {
				return 0, err
			}

		case ir.LoadLocal:
			idx := int(inst.Imm)
			if idx < 0 || idx >= len(locals) {
				return 0, trap("invalid indirect address in IR")
			}
			push(locals[idx])
		case ir.StoreLocal:
			v, err := pop(op)
			if err != nil {
				return 0, err
			}
			idx := int(inst.Imm)
			if idx < 0 || idx >= len(locals) {
				return 0, trap("invalid indirect address in IR")
			}
			locals[idx] = v
		case ir.AddressOfLocal:
			push(uint64(ir.LocalOffset(int(inst.Imm))))

		case ir.LoadIndirect:
			addr, err := pop(op)
			if err != nil {
				return 0, err
			}
			idx, err := localIndexFromAddress(addr, len(locals))
			if err != nil {
				return 0, err
			}
			push(locals[idx])
		case ir.StoreIndirect:
			v, err := pop(op)
			if err != nil {
				return 0, err
			}
			addr, err := pop(op)
			if err != nil {
				return 0, err
			}
			idx, err := localIndexFromAddress(addr, len(locals))
			if err != nil {
				return 0, err
			}
			locals[idx] = v

		case ir.AddI32, ir.AddI64:
			if err := binOp(&stack, op, func(a, b uint64) (uint64, error) { return a + b, nil }); err != nil {
				return 0, err
			}
		case ir.SubI32, ir.SubI64:
			if err := binOp(&stack, op, func(a, b uint64) (uint64, error) { return a - b, nil }); err != nil {
				return 0, err
			}
		case ir.MulI32, ir.MulI64:
			if err := binOp(&stack, op, func(a, b uint64) (uint64, error) { return a * b, nil }); err != nil {
				return 0, err
			}
		case ir.DivI32, ir.DivI64:
			if err := binOp(&stack, op, func(a, b uint64) (uint64, error) {
				ib := int64(b)
				if ib == 0 {
					return 0, trap("division by zero in IR")
				}
				return uint64(int64(a) / ib), nil
			}); err != nil {
				return 0, err
			}
		case ir.DivU64:
			if err := binOp(&stack, op, func(a, b uint64) (uint64, error) {
				if b == 0 {
					return 0, trap("division by zero in IR")
				}
				return a / b, nil
			}); err != nil {
				return 0, err
			}
		case ir.NegI32, ir.NegI64:
			v, err := pop(op)
			if err != nil {
				return 0, err
			}
			push(-v)

		case ir.CmpEqI32, ir.CmpEqI64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return a == b }); err != nil {
				return 0, err
			}
		case ir.CmpNeI32, ir.CmpNeI64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return a != b }); err != nil {
				return 0, err
			}
		case ir.CmpLtI32, ir.CmpLtI64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return int64(a) < int64(b) }); err != nil {
				return 0, err
			}
		case ir.CmpLeI32, ir.CmpLeI64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return int64(a) <= int64(b) }); err != nil {
				return 0, err
			}
		case ir.CmpGtI32, ir.CmpGtI64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return int64(a) > int64(b) }); err != nil {
				return 0, err
			}
		case ir.CmpGeI32, ir.CmpGeI64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return int64(a) >= int64(b) }); err != nil {
				return 0, err
			}
		case ir.CmpLtU64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return a < b }); err != nil {
				return 0, err
			}
		case ir.CmpLeU64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return a <= b }); err != nil {
				return 0, err
			}
		case ir.CmpGtU64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return a > b }); err != nil {
				return 0, err
			}
		case ir.CmpGeU64:
			if err := cmpOp(&stack, op, func(a, b uint64) bool { return a >= b }); err != nil {
				return 0, err
			}

		case ir.Jump:
			target := int(inst.Imm)
			if target < 0 || target > len(insts) {
				return 0, trap("invalid jump target in IR")
			}
			pc = target
		case ir.JumpIfZero:
			v, err := pop(op)
			if err != nil {
				return 0, err
			}
			target := int(inst.Imm)
			if target < 0 || target > len(insts) {
				return 0, trap("invalid jump target in IR")
			}
			if v == 0 {
				pc = target
			}

		case ir.ReturnVoid:
			return 0, nil
		case ir.ReturnI32:
			v, err := pop(op)
			if err != nil {
				return 0, err
			}
			return int64(int32(uint32(v))), nil
		case ir.ReturnI64:
			v, err := pop(op)
			if err != nil {
				return 0, err
			}
			return int64(v), nil

		default:
			return 0, trap("unknown IR opcode")
		}
	}
}

func binOp(stack *[]uint64, op ir.Opcode, f func(a, b uint64) (uint64, error)) error {
	s := *stack
	if len(s) < 2 {
		return trap(fmt.Sprintf("IR stack underflow on %s", op))
	}
	b, a := s[len(s)-1], s[len(s)-2]
	s = s[:len(s)-2]
	v, err := f(a, b)
	if err != nil {
		return err
	}
	*stack = append(s, v)
	return nil
}

func cmpOp(stack *[]uint64, op ir.Opcode, f func(a, b uint64) bool) error {
	return binOp(stack, op, func(a, b uint64) (uint64, error) {
		if f(a, b) {
			return 1, nil
		}
		return 0, nil
	})
}

// localIndexFromAddress reverses ir.LocalOffset: it recovers the local
// index that produced addr via AddressOfLocal, trapping if addr does not
// decode to a slot-aligned offset in range for nlocals. This is the VM's
// side of the single "index*16+8" addressing concern centralized in
// ir.LocalOffset (§9): it must stay the exact inverse of that function.
func localIndexFromAddress(addr uint64, nlocals int) (int, error) {
	if addr < 8 || (addr-8)%ir.LocalSlotBytes != 0 {
		return 0, trap("unaligned indirect address in IR")
	}
	idx := int((addr - 8) / ir.LocalSlotBytes)
	if idx < 0 || idx >= nlocals {
		return 0, trap("invalid indirect address in IR")
	}
	return idx, nil
}

func trap(msg string) error { return perr.WithDetail(perr.KindVmTrap, msg) }
