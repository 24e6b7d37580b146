package ir

import "github.com/primec/primec/internal/perr"

// Instruction is one bytecode instruction: an opcode plus its 64-bit
// immediate, interpreted per ImmediateKind(Op).
type Instruction struct {
	Op  Opcode
	Imm uint64
}

// Function is one compiled function: a name (currently always the
// inlined entry function's name, since user calls are fully inlined) and
// its linear instruction sequence.
type Function struct {
	Name         string
	Instructions []Instruction
}

// LocalCount returns 1 + the highest local index referenced by this
// function's LoadLocal/StoreLocal/AddressOfLocal instructions, or 0 if
// none are referenced.
func (f *Function) LocalCount() int {
	max := -1
	for _, inst := range f.Instructions {
		if ImmediateKind(inst.Op) == ImmLocalIndex {
			if idx := int(inst.Imm); idx > max {
				max = idx
			}
		}
	}
	return max + 1
}

// Module is the complete lowered program: its functions (always exactly
// one after lowering, per §4.2's contract — the codec and VM support an
// arbitrary count so the format isn't special-cased to "exactly one"),
// which one is the entry, and the interned string table referenced by
// PrintString/LoadStringByte instructions.
type Module struct {
	Functions  []Function
	EntryIndex int
	Strings    [][]byte
}

// Validate checks the structural invariants of §3 that the codec does
// not already guarantee by construction: in-range entry index, in-range
// string references, and in-range jump targets. It does not check
// local-index bounds against LocalCount, since AddressOfLocal on a local
// that is otherwise unused is legitimate and simply extends LocalCount.
func (m *Module) Validate() error {
	if m.EntryIndex < 0 || m.EntryIndex >= len(m.Functions) {
		return perr.WithDetail(perr.KindCodec, "invalid entry index")
	}
	for fi := range m.Functions {
		fn := &m.Functions[fi]
		n := len(fn.Instructions)
		for _, inst := range fn.Instructions {
			if !inst.Op.Valid() {
				return perr.Withf(perr.KindUnsupportedOpcode, fn.Name, "opcode %d", inst.Op)
			}
			switch ImmediateKind(inst.Op) {
			case ImmJumpTarget:
				if int(inst.Imm) > n {
					return perr.Withf(perr.KindCodec, fn.Name, "jump target %d out of range for %d instructions", inst.Imm, n)
				}
			case ImmStringFlags:
				idx, _ := UnpackPrintImm(inst.Imm)
				if int(idx) >= len(m.Strings) {
					return perr.Withf(perr.KindCodec, fn.Name, "string index %d out of range", idx)
				}
			case ImmStringIndex:
				if int(inst.Imm) >= len(m.Strings) {
					return perr.Withf(perr.KindCodec, fn.Name, "string index %d out of range", inst.Imm)
				}
			}
		}
	}
	return nil
}

// EntryFunction returns the module's entry function.
func (m *Module) EntryFunction() *Function { return &m.Functions[m.EntryIndex] }
