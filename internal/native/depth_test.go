package native

import (
	"testing"

	"github.com/primec/primec/internal/ir"
	"github.com/stretchr/testify/require"
)

func fn(insts ...ir.Instruction) *ir.Function {
	return &ir.Function{Name: "main", Instructions: insts}
}

func TestComputeDepthsLinear(t *testing.T) {
	f := fn(
		ir.Instruction{Op: ir.PushI32},
		ir.Instruction{Op: ir.PushI32},
		ir.Instruction{Op: ir.AddI32},
		ir.Instruction{Op: ir.ReturnI32},
	)
	depths, err := computeDepths(f)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 1, 0}, depths)
	require.Equal(t, 2, maxDepth(depths))
}

func TestComputeDepthsMergeAtJumpTarget(t *testing.T) {
	// push 0; jump_if_zero 4; push 1; jump 5; push 2; return_i32
	f := fn(
		ir.Instruction{Op: ir.PushI32},
		ir.Instruction{Op: ir.JumpIfZero, Imm: 4},
		ir.Instruction{Op: ir.PushI32},
		ir.Instruction{Op: ir.Jump, Imm: 5},
		ir.Instruction{Op: ir.PushI32},
		ir.Instruction{Op: ir.ReturnI32},
	)
	depths, err := computeDepths(f)
	require.NoError(t, err)
	// Both branches push exactly one value before converging at pc 5.
	require.Equal(t, 1, depths[5])
}

func TestComputeDepthsInconsistentMergeErrors(t *testing.T) {
	// One path reaches pc 4 with depth 0, the other with depth 2: the
	// static replay must reject the function instead of guessing.
	f := fn(
		ir.Instruction{Op: ir.PushI32},         // 0: depth 0->1
		ir.Instruction{Op: ir.JumpIfZero, Imm: 4}, // 1: depth 1->0, branches to 4 at depth 0
		ir.Instruction{Op: ir.PushI32},          // 2: depth 0->1
		ir.Instruction{Op: ir.PushI32},          // 3: depth 1->2, falls through to 4 at depth 2
		ir.Instruction{Op: ir.ReturnI32},        // 4
	)
	_, err := computeDepths(f)
	require.Error(t, err)
}

func TestComputeDepthsUnderflowErrors(t *testing.T) {
	f := fn(ir.Instruction{Op: ir.AddI32})
	_, err := computeDepths(f)
	require.Error(t, err)
}

func TestMaxDepthEmpty(t *testing.T) {
	require.Equal(t, 0, maxDepth(nil))
}
