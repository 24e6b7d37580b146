package native

import (
	"testing"

	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/native/arm64"
	"github.com/stretchr/testify/require"
)

func module(insts ...ir.Instruction) *ir.Module {
	return &ir.Module{
		EntryIndex: 0,
		Functions:  []ir.Function{{Name: "main", Instructions: insts}},
	}
}

func TestEmitSimpleReturn(t *testing.T) {
	m := module(
		ir.Instruction{Op: ir.PushI32, Imm: uint64(uint32(1))},
		ir.Instruction{Op: ir.PushI32, Imm: uint64(uint32(2))},
		ir.Instruction{Op: ir.AddI32},
		ir.Instruction{Op: ir.ReturnI32},
	)
	art, err := Emit(m)
	require.NoError(t, err)
	require.NotEmpty(t, art.Code)
	require.Equal(t, 0, art.EntryWordIdx)
	// A newline literal is always synthesized for the print subroutines,
	// even when this program never prints.
	require.Len(t, art.Strings, 1)
}

func TestEmitPrintStringRecordsAddressFixup(t *testing.T) {
	m := &ir.Module{
		EntryIndex: 0,
		Strings:    [][]byte{[]byte("hi")},
		Functions: []ir.Function{{
			Name: "main",
			Instructions: []ir.Instruction{
				{Op: ir.PrintString, Imm: ir.PackPrintImm(0, ir.PrintFlagNewline)},
				{Op: ir.ReturnVoid},
			},
		}},
	}
	art, err := Emit(m)
	require.NoError(t, err)

	found := false
	for _, fx := range art.Fixups {
		if fx.Kind == fixupStringAddr && fx.StringIndex == 0 {
			found = true
		}
	}
	require.True(t, found, "expected a string-address fixup for the literal at index 0")
}

func TestEmitLocalsZeroInitialized(t *testing.T) {
	m := module(
		ir.Instruction{Op: ir.LoadLocal, Imm: 0},
		ir.Instruction{Op: ir.ReturnI64},
	)
	art, err := Emit(m)
	require.NoError(t, err)
	require.NotEmpty(t, art.Code)
	// the prologue stores XZR into local 0's slot
	require.Contains(t, art.Code, arm64.STR(arm64.XZR, rFrame, uint16(ir.LocalOffset(0))))
}

func TestEmitRejectsOutOfRangeLocalAddress(t *testing.T) {
	m := module(
		ir.Instruction{Op: ir.AddressOfLocal, Imm: 1000},
		ir.Instruction{Op: ir.ReturnI64},
	)
	_, err := Emit(m)
	require.Error(t, err)
}

func TestEmitRejectsInvalidModule(t *testing.T) {
	m := &ir.Module{EntryIndex: 5}
	_, err := Emit(m)
	require.Error(t, err)
}

func TestEmitDivI32EmitsDivZeroTrapBranch(t *testing.T) {
	m := module(
		ir.Instruction{Op: ir.PushI32, Imm: uint64(uint32(10))},
		ir.Instruction{Op: ir.PushI32, Imm: uint64(uint32(0))},
		ir.Instruction{Op: ir.DivI32},
		ir.Instruction{Op: ir.ReturnI32},
	)
	art, err := Emit(m)
	require.NoError(t, err)
	require.NotEmpty(t, art.Code)
	// the divisor register is tested with a CBZ (branch offset masked out)
	found := false
	for _, w := range art.Code {
		if w&^(0x7ffff<<5) == arm64.CBZ(rTmp1, 0) {
			found = true
		}
	}
	require.True(t, found, "expected a CBZ on the divisor register")
}
