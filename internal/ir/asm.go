package ir

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/primec/primec/internal/perr"
)

// This file implements a human-readable pseudo-assembly form of a Module,
// supplementing the binary codec the same way mna-nenuphar's compiler
// package offers an asm.go alongside its binary serializer: it exists so
// tests and the driver (its `disasm` command, and text input) can read and write modules
// without constructing ast.Program values, never so lower, vm, or native
// can depend on text. The format:
//
//	module:
//	  entry: 0
//	  strings:
//	    0 "hello\n"
//	  func: main
//	    0000 push_i32 1
//	    0001 return_i32
//
// Jump/jump_if_zero operands refer to instruction indices within the same
// function, exactly as in the binary form; print_string/load_string_byte
// operands refer to string-table indices (plus ",newline" / ",stderr"
// flags for print_string).

// Disassemble renders m as pseudo-assembly text.
func Disassemble(m *Module) string {
	var b strings.Builder
	b.WriteString("module:\n")
	fmt.Fprintf(&b, "  entry: %d\n", m.EntryIndex)
	if len(m.Strings) > 0 {
		b.WriteString("  strings:\n")
		for i, s := range m.Strings {
			fmt.Fprintf(&b, "    %d %q\n", i, string(s))
		}
	}
	for _, fn := range m.Functions {
		fmt.Fprintf(&b, "  func: %s\n", fn.Name)
		for i, inst := range fn.Instructions {
			fmt.Fprintf(&b, "    %04d %s", i, inst.Op)
			switch ImmediateKind(inst.Op) {
			case ImmNone:
			case ImmI32Sign:
				fmt.Fprintf(&b, " %d", int32(inst.Imm))
			case ImmI64:
				fmt.Fprintf(&b, " %d", int64(inst.Imm))
			case ImmLocalIndex, ImmJumpTarget, ImmStringIndex:
				fmt.Fprintf(&b, " %d", inst.Imm)
			case ImmStringFlags:
				idx, flags := UnpackPrintImm(inst.Imm)
				fmt.Fprintf(&b, " %d", idx)
				if flags&PrintFlagNewline != 0 {
					b.WriteString(",newline")
				}
				if flags&PrintFlagStderr != 0 {
					b.WriteString(",stderr")
				}
			case ImmFlags:
				if inst.Imm&PrintFlagNewline != 0 {
					b.WriteString(" newline")
				}
				if inst.Imm&PrintFlagStderr != 0 {
					b.WriteString(" stderr")
				}
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Assemble parses the text form produced by Disassemble back into a
// Module. It is the textual inverse of Disassemble: string-table entries
// are written as Go quoted literals and unquoted on the way back, so
// their bytes, NUL and non-printable ones included, survive the round
// trip.
func Assemble(text string) (*Module, error) {
	m := &Module{}
	sc := bufio.NewScanner(strings.NewReader(text))
	var cur *Function
	section := ""
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case trimmed == "module:":
			section = "module"
			continue
		case strings.HasPrefix(trimmed, "entry:"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(trimmed, "entry:")))
			if err != nil {
				return nil, perr.WithDetail(perr.KindCodec, "invalid entry index in assembly")
			}
			m.EntryIndex = n
			continue
		case trimmed == "strings:":
			section = "strings"
			continue
		case strings.HasPrefix(trimmed, "func:"):
			if cur != nil {
				m.Functions = append(m.Functions, *cur)
			}
			cur = &Function{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "func:"))}
			section = "code"
			continue
		}

		switch section {
		case "strings":
			idxStr, rest, ok := strings.Cut(trimmed, " ")
			if !ok {
				return nil, perr.WithDetail(perr.KindCodec, "invalid string entry in assembly")
			}
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, perr.WithDetail(perr.KindCodec, "invalid string index in assembly")
			}
			s, err := strconv.Unquote(strings.TrimSpace(rest))
			if err != nil {
				return nil, perr.WithDetail(perr.KindCodec, "invalid quoted string in assembly")
			}
			for len(m.Strings) <= idx {
				m.Strings = append(m.Strings, nil)
			}
			m.Strings[idx] = []byte(s)
		case "code":
			if cur == nil {
				return nil, perr.WithDetail(perr.KindCodec, "instruction outside function in assembly")
			}
			inst, err := parseInstruction(trimmed)
			if err != nil {
				return nil, err
			}
			cur.Instructions = append(cur.Instructions, inst)
		}
	}
	if cur != nil {
		m.Functions = append(m.Functions, *cur)
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(perr.KindCodec, err)
	}
	return m, nil
}

func parseInstruction(line string) (Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Instruction{}, perr.WithDetail(perr.KindCodec, "empty instruction line in assembly")
	}
	// Leading field may be a "0004" index printed by Disassemble; skip it
	// if it parses as a plain integer and there's a following mnemonic.
	i := 0
	if _, err := strconv.Atoi(fields[0]); err == nil && len(fields) > 1 {
		i = 1
	}
	mnemonic := fields[i]
	op, ok := ParseOpcode(mnemonic)
	if !ok {
		return Instruction{}, perr.WithDetail(perr.KindCodec, fmt.Sprintf("invalid opcode: %s", mnemonic))
	}
	rest := fields[i+1:]

	var imm uint64
	switch ImmediateKind(op) {
	case ImmNone:
	case ImmI32Sign:
		n, err := strconv.ParseInt(requireArg(rest), 10, 32)
		if err != nil {
			return Instruction{}, perr.WithDetail(perr.KindCodec, "invalid i32 immediate in assembly")
		}
		imm = uint64(uint32(int32(n)))
	case ImmI64:
		n, err := strconv.ParseInt(requireArg(rest), 10, 64)
		if err != nil {
			return Instruction{}, perr.WithDetail(perr.KindCodec, "invalid i64 immediate in assembly")
		}
		imm = uint64(n)
	case ImmLocalIndex, ImmJumpTarget, ImmStringIndex:
		n, err := strconv.ParseUint(requireArg(rest), 10, 32)
		if err != nil {
			return Instruction{}, perr.WithDetail(perr.KindCodec, "invalid index immediate in assembly")
		}
		imm = n
	case ImmStringFlags:
		if len(rest) == 0 {
			return Instruction{}, perr.WithDetail(perr.KindCodec, "missing string-flags immediate in assembly")
		}
		// Disassemble joins the index and its flags into one comma-separated
		// token (e.g. "0,newline,stderr") rather than separate fields.
		parts := strings.Split(rest[0], ",")
		idx, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return Instruction{}, perr.WithDetail(perr.KindCodec, "invalid string index in assembly")
		}
		var flags uint8
		for _, f := range parts[1:] {
			switch f {
			case "newline":
				flags |= PrintFlagNewline
			case "stderr":
				flags |= PrintFlagStderr
			}
		}
		imm = PackPrintImm(uint32(idx), flags)
	case ImmFlags:
		var flags uint64
		for _, f := range rest {
			switch f {
			case "newline":
				flags |= PrintFlagNewline
			case "stderr":
				flags |= PrintFlagStderr
			}
		}
		imm = flags
	}
	return Instruction{Op: op, Imm: imm}, nil
}

func requireArg(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	return strings.TrimSuffix(rest[0], ",")
}
