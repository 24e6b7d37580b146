package arm64_test

import (
	"testing"

	"github.com/primec/primec/internal/native/arm64"
	"github.com/stretchr/testify/require"
)

func TestLoadImm64SmallValueIsOneInstruction(t *testing.T) {
	words := arm64.LoadImm64(arm64.X9, 42)
	require.Len(t, words, 1)
}

func TestLoadImm64Zero(t *testing.T) {
	words := arm64.LoadImm64(arm64.X9, 0)
	require.Len(t, words, 1)
	require.Equal(t, arm64.MOVZ(arm64.X9, 0, 0), words[0])
}

func TestLoadImm64FullWidthValue(t *testing.T) {
	words := arm64.LoadImm64(arm64.X9, 0xffffffffffffffff)
	require.Len(t, words, 4)
}

func TestLoadAbsAlwaysFourWords(t *testing.T) {
	require.Len(t, arm64.LoadAbs(arm64.X0, 0), 4)
	require.Len(t, arm64.LoadAbs(arm64.X0, 1), 4)
	require.Len(t, arm64.LoadAbs(arm64.X0, 0xffffffffffffffff), 4)
}

func TestCSETEncodesInvertedCondition(t *testing.T) {
	// CSET Xd, EQ is CSINC Xd, XZR, XZR, NE (inverted condition field).
	word := arm64.CSET(arm64.X9, arm64.CondEQ)
	condField := (word >> 12) & 0xf
	require.EqualValues(t, arm64.CondNE, condField)
}

func TestRETIsFixedEncoding(t *testing.T) {
	require.Equal(t, uint32(0xd65f03c0), arm64.RET())
}

func TestLoadStoreImmScalesBy8(t *testing.T) {
	str := arm64.STR(arm64.X9, arm64.X27, 16)
	ldr := arm64.LDR(arm64.X9, arm64.X27, 16)
	// Same imm12 field (2, since 16/8=2) in both, differing only in the L bit.
	require.Equal(t, (str>>10)&0xfff, (ldr>>10)&0xfff)
	require.NotEqual(t, str, ldr)
}

func TestMOVIsAddWithZeroRegister(t *testing.T) {
	require.Equal(t, arm64.ADD(arm64.X9, arm64.X10, arm64.XZR), arm64.MOV(arm64.X9, arm64.X10))
}
