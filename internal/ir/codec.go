package ir

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/primec/primec/internal/perr"
)

const (
	magic   uint32 = 0x50534952 // 'PSIR', little-endian bytes "RISP"
	version uint32 = 9
)

// Serialize encodes m into the little-endian, versioned binary format
// documented in spec §3. The codec has no knowledge of opcode semantics:
// it rejects only the structural conditions that would make a round trip
// impossible (an out-of-range entry index, more strings or functions than
// a uint32 can count).
func Serialize(m *Module) ([]byte, error) {
	if m.EntryIndex < 0 || m.EntryIndex >= len(m.Functions) {
		return nil, perr.WithDetail(perr.KindCodec, "invalid entry index")
	}
	if len(m.Strings) > math.MaxUint32 {
		return nil, perr.WithDetail(perr.KindCodec, "too many strings")
	}
	if len(m.Functions) > math.MaxUint32 {
		return nil, perr.WithDetail(perr.KindCodec, "too many functions")
	}

	buf := make([]byte, 0, 4096)
	buf = appendU32(buf, magic)
	buf = appendU32(buf, version)
	buf = appendU32(buf, uint32(len(m.Functions)))
	buf = appendU32(buf, uint32(m.EntryIndex))

	buf = appendU32(buf, uint32(len(m.Strings)))
	for _, s := range m.Strings {
		if len(s) > math.MaxUint32 {
			return nil, perr.WithDetail(perr.KindCodec, "string too large")
		}
		buf = appendU32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}

	for i := range m.Functions {
		fn := &m.Functions[i]
		if len(fn.Name) > math.MaxUint32 {
			return nil, perr.WithDetail(perr.KindCodec, "function name too large")
		}
		buf = appendU32(buf, uint32(len(fn.Name)))
		buf = append(buf, fn.Name...)
		if len(fn.Instructions) > math.MaxUint32 {
			return nil, perr.WithDetail(perr.KindCodec, "too many instructions")
		}
		buf = appendU32(buf, uint32(len(fn.Instructions)))
		for _, inst := range fn.Instructions {
			buf = append(buf, byte(inst.Op))
			buf = appendU64(buf, inst.Imm)
		}
	}

	return buf, nil
}

// Deserialize decodes bytes produced by Serialize, or any byte sequence
// conforming to the same header/version/layout. It does not validate
// opcode semantics beyond what Module.Validate additionally checks;
// unknown opcode bytes are accepted here and surface later as
// "unsupported IR opcode for native backend" or an "unknown IR opcode"
// VM trap, per §4.1's delegation of decoding failure to the consumer.
func Deserialize(b []byte) (*Module, error) {
	r := &reader{b: b}

	gotMagic, ok := r.u32()
	if !ok || gotMagic != magic {
		return nil, perr.WithDetail(perr.KindCodec, "invalid IR header")
	}
	gotVersion, ok := r.u32()
	if !ok {
		return nil, perr.WithDetail(perr.KindCodec, "truncated IR header")
	}
	if gotVersion != version {
		return nil, perr.WithDetail(perr.KindCodec, fmt.Sprintf("unsupported IR version %d", gotVersion))
	}

	funcCount, ok := r.u32()
	if !ok {
		return nil, perr.WithDetail(perr.KindCodec, "truncated IR header")
	}
	entryIndex, ok := r.u32()
	if !ok {
		return nil, perr.WithDetail(perr.KindCodec, "truncated IR header")
	}

	stringCount, ok := r.u32()
	if !ok {
		return nil, perr.WithDetail(perr.KindCodec, "truncated string table")
	}
	strs := make([][]byte, stringCount)
	for i := range strs {
		n, ok := r.u32()
		if !ok {
			return nil, perr.WithDetail(perr.KindCodec, "truncated string table")
		}
		s, ok := r.bytes(int(n))
		if !ok {
			return nil, perr.WithDetail(perr.KindCodec, "truncated string table")
		}
		cp := make([]byte, len(s))
		copy(cp, s)
		strs[i] = cp
	}

	funcs := make([]Function, funcCount)
	for i := range funcs {
		nameLen, ok := r.u32()
		if !ok {
			return nil, perr.WithDetail(perr.KindCodec, "truncated function header")
		}
		name, ok := r.bytes(int(nameLen))
		if !ok {
			return nil, perr.WithDetail(perr.KindCodec, "truncated function name")
		}
		instCount, ok := r.u32()
		if !ok {
			return nil, perr.WithDetail(perr.KindCodec, "truncated function header")
		}
		insts := make([]Instruction, instCount)
		for j := range insts {
			opByte, ok := r.byte()
			if !ok {
				return nil, perr.WithDetail(perr.KindCodec, "truncated instruction stream")
			}
			imm, ok := r.u64()
			if !ok {
				return nil, perr.WithDetail(perr.KindCodec, "truncated instruction stream")
			}
			insts[j] = Instruction{Op: Opcode(opByte), Imm: imm}
		}
		funcs[i] = Function{Name: string(name), Instructions: insts}
	}

	if int(entryIndex) >= len(funcs) {
		return nil, perr.WithDetail(perr.KindCodec, "invalid IR entry index")
	}

	return &Module{Functions: funcs, EntryIndex: int(entryIndex), Strings: strs}, nil
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

// reader is a small cursor over a byte slice, used only by Deserialize.
type reader struct {
	b   []byte
	pos int
}

func (r *reader) u32() (uint32, bool) {
	b, ok := r.bytes(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (r *reader) u64() (uint64, bool) {
	b, ok := r.bytes(8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (r *reader) byte() (byte, bool) {
	b, ok := r.bytes(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, false
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b, true
}
