package ir_test

import (
	"testing"

	"github.com/primec/primec/internal/ir"
	"github.com/stretchr/testify/require"
)

func sampleModule() *ir.Module {
	return &ir.Module{
		EntryIndex: 0,
		Strings:    [][]byte{[]byte("hello\n"), []byte("world")},
		Functions: []ir.Function{
			{
				Name: "main",
				Instructions: []ir.Instruction{
					{Op: ir.PushI32, Imm: uint64(uint32(int32(-7)))},
					{Op: ir.PushI32, Imm: 3},
					{Op: ir.AddI32},
					{Op: ir.PrintString, Imm: ir.PackPrintImm(0, ir.PrintFlagNewline)},
					{Op: ir.ReturnI32},
				},
			},
		},
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	m := sampleModule()
	b, err := ir.Serialize(m)
	require.NoError(t, err)

	got, err := ir.Deserialize(b)
	require.NoError(t, err)
	require.Equal(t, m.EntryIndex, got.EntryIndex)
	require.Equal(t, m.Strings, got.Strings)
	require.Equal(t, m.Functions, got.Functions)
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	b, err := ir.Serialize(sampleModule())
	require.NoError(t, err)
	b[0] ^= 0xff
	_, err = ir.Deserialize(b)
	require.ErrorContains(t, err, "invalid IR header")
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	b, err := ir.Serialize(sampleModule())
	require.NoError(t, err)
	// version field immediately follows the 4-byte magic
	b[4] = 0xff
	_, err = ir.Deserialize(b)
	require.ErrorContains(t, err, "unsupported IR version")
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	b, err := ir.Serialize(sampleModule())
	require.NoError(t, err)
	_, err = ir.Deserialize(b[:len(b)-3])
	require.ErrorContains(t, err, "truncated")
}

func TestSerializeRejectsInvalidEntryIndex(t *testing.T) {
	m := sampleModule()
	m.EntryIndex = 5
	_, err := ir.Serialize(m)
	require.ErrorContains(t, err, "invalid entry index")
}

func TestModuleValidateCatchesBadJumpTarget(t *testing.T) {
	m := sampleModule()
	m.Functions[0].Instructions = append(m.Functions[0].Instructions, ir.Instruction{Op: ir.Jump, Imm: 99})
	require.Error(t, m.Validate())
}

func TestModuleValidateCatchesBadStringIndex(t *testing.T) {
	m := sampleModule()
	m.Functions[0].Instructions[3] = ir.Instruction{Op: ir.PrintString, Imm: ir.PackPrintImm(99, 0)}
	require.Error(t, m.Validate())
}

func TestModuleValidateAcceptsSample(t *testing.T) {
	require.NoError(t, sampleModule().Validate())
}
