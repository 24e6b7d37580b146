package lower

import (
	"github.com/dolthub/swiss"

	"github.com/primec/primec/internal/ir"
)

// builder accumulates one function's instruction stream and its string
// table. Because every user call is inlined (§4.2.7), a whole program
// lowers into exactly one instruction stream, so one builder per Lower
// call suffices.
type builder struct {
	insts   []ir.Instruction
	strings [][]byte
	// interned deduplicates string-literal lowering: two identical string
	// literals share one table slot. Built on swiss.Map, the same
	// open-addressing table the teacher's machine.Map wraps around
	// dolthub/swiss for its own dictionary value.
	interned *swiss.Map[string, uint32]
}

func newBuilder() *builder {
	return &builder{interned: swiss.NewMap[string, uint32](8)}
}

// here returns the index the next emitted instruction will occupy.
func (b *builder) here() int { return len(b.insts) }

func (b *builder) emit(op ir.Opcode, imm uint64) int {
	idx := len(b.insts)
	b.insts = append(b.insts, ir.Instruction{Op: op, Imm: imm})
	return idx
}

// emitPlaceholder emits a jump-family instruction with a not-yet-known
// target, to be resolved later by patchJump. This is the forward-branch
// fixup pattern used throughout if/repeat lowering (§4.2.5): the jump is
// written before its destination is known, and patched once it is.
func (b *builder) emitPlaceholder(op ir.Opcode) int {
	return b.emit(op, 0)
}

func (b *builder) patchJump(at int, target int) {
	b.insts[at].Imm = uint64(target)
}

// internString deduplicates and registers a string literal, returning its
// table index.
func (b *builder) internString(s string) uint32 {
	if idx, ok := b.interned.Get(s); ok {
		return idx
	}
	idx := uint32(len(b.strings))
	b.strings = append(b.strings, []byte(s))
	b.interned.Put(s, idx)
	return idx
}
