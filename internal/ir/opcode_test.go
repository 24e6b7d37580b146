package ir

import (
	"strings"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	for op := Opcode(0); op < opcodeCount; op++ {
		if opcodeNames[op] == "" {
			t.Errorf("missing string representation of opcode %d", op)
		}
		if s := op.String(); strings.Contains(s, "illegal") {
			t.Errorf("invalid string representation of opcode %d", op)
		}
	}
}

func TestParseOpcodeRoundTrip(t *testing.T) {
	for op := Opcode(0); op < opcodeCount; op++ {
		got, ok := ParseOpcode(op.String())
		if !ok {
			t.Errorf("ParseOpcode(%q): not found", op.String())
			continue
		}
		if got != op {
			t.Errorf("ParseOpcode(%q) = %d, want %d", op.String(), got, op)
		}
	}
}

func TestPackUnpackPrintImm(t *testing.T) {
	cases := []struct {
		idx   uint32
		flags uint8
	}{
		{0, 0},
		{1, PrintFlagNewline},
		{42, PrintFlagStderr},
		{1000, PrintFlagNewline | PrintFlagStderr},
	}
	for _, c := range cases {
		imm := PackPrintImm(c.idx, c.flags)
		gotIdx, gotFlags := UnpackPrintImm(imm)
		if gotIdx != c.idx || gotFlags != c.flags {
			t.Errorf("PackPrintImm(%d,%d) round trip = (%d,%d)", c.idx, c.flags, gotIdx, gotFlags)
		}
	}
}

func TestPureOpcodePartition(t *testing.T) {
	hostIO := map[Opcode]bool{
		PrintI32: true, PrintI64: true, PrintU64: true,
		PrintString: true, PrintArgv: true, PrintArgvUnsafe: true,
		LoadStringByte: true, PushArgc: true,
	}
	for op := Opcode(0); op < opcodeCount; op++ {
		if Pure(op) == hostIO[op] {
			t.Errorf("Pure(%s) = %v, want %v", op, Pure(op), !hostIO[op])
		}
	}
}

func TestLocalOffset(t *testing.T) {
	cases := map[int]int64{0: 8, 1: 24, 2: 40}
	for idx, want := range cases {
		if got := LocalOffset(idx); got != want {
			t.Errorf("LocalOffset(%d) = %d, want %d", idx, got, want)
		}
	}
}
