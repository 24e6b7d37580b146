package native

import (
	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/perr"
)

// computeDepths statically replays the operand-stack depth the VM would
// carry at each instruction, so the native backend can address every
// push/pop as a fixed offset from the operand-stack base register (x28)
// instead of emitting pointer arithmetic to track it at runtime. This is
// the native-side counterpart of vm.Execute's runtime `stack []uint64`:
// both must agree on depth at every instruction, which is exactly what
// this function verifies by construction (a worklist walk with
// consistency checks at merge points, rather than trusting the lowerer's
// emission order blindly).
//
// depths[i] is the depth *before* executing instruction i; depths has one
// extra trailing entry for the "one past end" jump target §3 allows.
func computeDepths(fn *ir.Function) ([]int, error) {
	insts := fn.Instructions
	n := len(insts)
	depths := make([]int, n+1)
	for i := range depths {
		depths[i] = -1
	}
	depths[0] = 0
	work := []int{0}
	for len(work) > 0 {
		pc := work[len(work)-1]
		work = work[:len(work)-1]
		if pc >= n {
			continue
		}
		d := depths[pc]
		op := insts[pc].Op
		after := d + ir.StackDelta(op)
		if after < 0 {
			return nil, perr.Withf(perr.KindNative, fn.Name, "operand stack underflow at instruction %d (%s)", pc, op)
		}
		visit := func(target int) error {
			if target < 0 || target > n {
				return perr.Withf(perr.KindNative, fn.Name, "jump target %d out of range", target)
			}
			if depths[target] == -1 {
				depths[target] = after
				work = append(work, target)
			} else if depths[target] != after {
				return perr.Withf(perr.KindNative, fn.Name, "inconsistent operand stack depth at instruction %d: %d vs %d", target, depths[target], after)
			}
			return nil
		}
		if ir.IsJump(op) {
			if err := visit(int(insts[pc].Imm)); err != nil {
				return nil, err
			}
		}
		if !ir.IsTerminator(op) && op != ir.Jump {
			if err := visit(pc + 1); err != nil {
				return nil, err
			}
		}
	}
	for i, d := range depths {
		if d == -1 {
			// unreachable instruction: give it depth 0 so offset arithmetic
			// stays well-defined even though it will never execute.
			depths[i] = 0
		}
	}
	return depths, nil
}

// maxDepth returns the largest depth value computed by computeDepths, used
// to size the operand-stack region of the native stack frame.
func maxDepth(depths []int) int {
	m := 0
	for _, d := range depths {
		if d > m {
			m = d
		}
	}
	return m
}
