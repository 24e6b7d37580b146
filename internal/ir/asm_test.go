package ir_test

import (
	"testing"

	"github.com/primec/primec/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestDisassembleAssembleRoundTrip(t *testing.T) {
	m := &ir.Module{
		EntryIndex: 0,
		Strings:    [][]byte{[]byte("array index out of bounds\n")},
		Functions: []ir.Function{
			{
				Name: "main",
				Instructions: []ir.Instruction{
					{Op: ir.PushI32, Imm: uint64(uint32(int32(2)))},
					{Op: ir.PushI32, Imm: uint64(uint32(int32(3)))},
					{Op: ir.AddI32},
					{Op: ir.PrintString, Imm: ir.PackPrintImm(0, ir.PrintFlagNewline|ir.PrintFlagStderr)},
					{Op: ir.ReturnI32},
				},
			},
		},
	}

	text := ir.Disassemble(m)
	got, err := ir.Assemble(text)
	require.NoError(t, err)
	require.Equal(t, m.EntryIndex, got.EntryIndex)
	require.Equal(t, m.Strings, got.Strings)
	require.Equal(t, m.Functions, got.Functions)
}

func TestAssembleRejectsUnknownOpcode(t *testing.T) {
	_, err := ir.Assemble("module:\n  func: main\n    0000 frobnicate\n")
	require.ErrorContains(t, err, "invalid opcode")
}

func TestAssembleMinimal(t *testing.T) {
	m, err := ir.Assemble(`module:
  entry: 0
  func: main
    0000 push_i32 7
    0001 return_i32
`)
	require.NoError(t, err)
	require.Equal(t, 0, m.EntryIndex)
	require.Len(t, m.Functions, 1)
	require.Equal(t, "main", m.Functions[0].Name)
	require.Equal(t, []ir.Instruction{
		{Op: ir.PushI32, Imm: uint64(uint32(int32(7)))},
		{Op: ir.ReturnI32},
	}, m.Functions[0].Instructions)
}
