// Package arm64 hand-encodes the small subset of the AArch64 instruction
// set the native emitter needs, as raw 32-bit words — no external
// assembler dependency, matching the "no external linker" constraint on
// the backend that consumes it.
//
// The immediate-synthesis helpers (movz/movk bit layout) are adapted from
// tetratelabs/wazero's internal/asm/arm64 encoder, which hand-rolls the
// same instructions for the same reason (a Go-native JIT backend with no
// cgo assembler); everything here is written against fixed 32-bit words
// instead of wazero's byte-buffer/node-graph assembler, since this
// package only ever emits a single linear pass over one function body.
package arm64

// General-purpose register numbers. X31 means either XZR (read: zero,
// write: discarded) or SP depending on instruction context; callers pick
// the right meaning per instruction.
const (
	X0 = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	XZR = 31
)

// Cond is an AArch64 condition code, as used by B.cond and CSET.
type Cond uint32

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondLT Cond = 0xb
	CondLE Cond = 0xd
	CondGT Cond = 0xc
	CondGE Cond = 0xa
	CondLO Cond = 0x3 // unsigned <
	CondLS Cond = 0x9 // unsigned <=
	CondHI Cond = 0x8 // unsigned >
	CondHS Cond = 0x2 // unsigned >=
	CondAL Cond = 0xe
)

func reg(r int) uint32 { return uint32(r) & 0x1f }

// MOVZ Xd, #imm16, LSL #(shift*16). 64-bit form (sf=1).
func MOVZ(rd int, imm16 uint16, shift uint8) uint32 {
	return 1<<31 | 0b10<<29 | 0b100101<<23 | uint32(shift&0x3)<<21 | uint32(imm16)<<5 | reg(rd)
}

// MOVK Xd, #imm16, LSL #(shift*16).
func MOVK(rd int, imm16 uint16, shift uint8) uint32 {
	return 1<<31 | 0b11<<29 | 0b100101<<23 | uint32(shift&0x3)<<21 | uint32(imm16)<<5 | reg(rd)
}

// LoadImm64 returns the MOVZ/MOVK sequence that materializes v into rd,
// skipping all-zero 16-bit chunks above the first (so small constants
// cost one instruction), per the same chunked-immediate strategy
// wazero's load64bitConst follows.
func LoadImm64(rd int, v uint64) []uint32 {
	var words []uint32
	first := true
	for shift := uint8(0); shift < 4; shift++ {
		chunk := uint16(v >> (16 * shift))
		if chunk == 0 {
			continue
		}
		if first {
			words = append(words, MOVZ(rd, chunk, shift))
			first = false
		} else {
			words = append(words, MOVK(rd, chunk, shift))
		}
	}
	if first {
		// v == 0: MOVZ Xd, #0
		words = append(words, MOVZ(rd, 0, 0))
	}
	return words
}

// LoadAbs always emits exactly four instructions (MOVZ + 3×MOVK), unlike
// LoadImm64's variable-length compression. Callers that embed a constant
// whose final value depends on the size of the code it sits in — a
// Mach-O virtual address, computed only after the rest of the function
// body is laid out — use this instead of LoadImm64, so the code's total
// size is fixed before the constant value is known, and the four words
// can be overwritten in place once it is.
func LoadAbs(rd int, v uint64) []uint32 {
	return []uint32{
		MOVZ(rd, uint16(v), 0),
		MOVK(rd, uint16(v>>16), 1),
		MOVK(rd, uint16(v>>32), 2),
		MOVK(rd, uint16(v>>48), 3),
	}
}

// ADD Xd, Xn, Xm (shifted register, shift amount 0).
func ADD(rd, rn, rm int) uint32 { return addSub(0, 0, rd, rn, rm) }

// SUB Xd, Xn, Xm.
func SUB(rd, rn, rm int) uint32 { return addSub(1, 0, rd, rn, rm) }

// SUBS Xd, Xn, Xm (sets flags; CMP Xn,Xm is SUBS XZR,Xn,Xm).
func SUBS(rd, rn, rm int) uint32 { return addSub(1, 1, rd, rn, rm) }

func addSub(op, s uint32, rd, rn, rm int) uint32 {
	return 1<<31 | op<<30 | s<<29 | 0b01011<<24 | reg(rm)<<16 | reg(rn)<<5 | reg(rd)
}

// CMP Xn, Xm.
func CMP(rn, rm int) uint32 { return SUBS(XZR, rn, rm) }

// NEG Xd, Xm (alias for SUB Xd, XZR, Xm).
func NEG(rd, rm int) uint32 { return SUB(rd, XZR, rm) }

// ADDImm Xd, Xn, #imm12 (unshifted).
func ADDImm(rd, rn int, imm12 uint16) uint32 { return addSubImm(0, rd, rn, imm12) }

// SUBImm Xd, Xn, #imm12.
func SUBImm(rd, rn int, imm12 uint16) uint32 { return addSubImm(1, rd, rn, imm12) }

func addSubImm(op uint32, rd, rn int, imm12 uint16) uint32 {
	return 1<<31 | op<<30 | 0b10001<<24 | (uint32(imm12)&0xfff)<<10 | reg(rn)<<5 | reg(rd)
}

// MUL Xd, Xn, Xm (alias for MADD Xd, Xn, Xm, XZR).
func MUL(rd, rn, rm int) uint32 {
	return 0b10011011000<<21 | reg(rm)<<16 | reg(XZR)<<10 | reg(rn)<<5 | reg(rd)
}

// SDIV Xd, Xn, Xm.
func SDIV(rd, rn, rm int) uint32 { return divOp(0b000011, rd, rn, rm) }

// UDIV Xd, Xn, Xm.
func UDIV(rd, rn, rm int) uint32 { return divOp(0b000010, rd, rn, rm) }

func divOp(opcode uint32, rd, rn, rm int) uint32 {
	return 1<<31 | 0b0011010110<<21 | reg(rm)<<16 | opcode<<10 | reg(rn)<<5 | reg(rd)
}

// CSET Xd, cond (alias for CSINC Xd, XZR, XZR, invert(cond)).
func CSET(rd int, cond Cond) uint32 {
	inv := uint32(cond) ^ 1
	return 1<<31 | 0b11010100<<21 | reg(XZR)<<16 | inv<<12 | 1<<10 | reg(XZR)<<5 | reg(rd)
}

// STR Xt, [Xn, #imm] — unsigned-offset 64-bit store; imm must be a
// multiple of 8 in [0, 32760].
func STR(rt, rn int, imm uint16) uint32 { return loadStoreImm(0b00, rt, rn, imm) }

// LDR Xt, [Xn, #imm] — unsigned-offset 64-bit load.
func LDR(rt, rn int, imm uint16) uint32 { return loadStoreImm(0b01, rt, rn, imm) }

func loadStoreImm(opc uint32, rt, rn int, imm uint16) uint32 {
	imm12 := uint32(imm/8) & 0xfff
	return 0b11<<30 | 0b111<<27 | 0b01<<24 | opc<<22 | imm12<<10 | reg(rn)<<5 | reg(rt)
}

// B branches to a PC-relative word offset (target-here)/4.
func B(offsetWords int32) uint32 {
	return 0b000101<<26 | uint32(offsetWords)&0x3ffffff
}

// BL branches-with-link to a PC-relative word offset, setting X30.
func BL(offsetWords int32) uint32 {
	return 1<<31 | 0b00101<<26 | uint32(offsetWords)&0x3ffffff
}

// BCond branches to a PC-relative word offset if cond holds.
func BCond(cond Cond, offsetWords int32) uint32 {
	return 0b01010100<<24 | (uint32(offsetWords)&0x7ffff)<<5 | uint32(cond)
}

// CBZ Xt, offsetWords — branch if Xt == 0.
func CBZ(rt int, offsetWords int32) uint32 { return cbz(0, rt, offsetWords) }

// CBNZ Xt, offsetWords — branch if Xt != 0.
func CBNZ(rt int, offsetWords int32) uint32 { return cbz(1, rt, offsetWords) }

func cbz(op uint32, rt int, offsetWords int32) uint32 {
	return 1<<31 | 0b011010<<25 | op<<24 | (uint32(offsetWords)&0x7ffff)<<5 | reg(rt)
}

// RET returns to the address in X30.
func RET() uint32 { return 0xd65f03c0 }

// SVC #imm16 — supervisor call (macOS syscalls use #0x80).
func SVC(imm16 uint16) uint32 { return 0b1101_0100_000<<21 | uint32(imm16)<<5 | 0b00001 }

// MOV Xd, Xn (register-register move, alias for ADD Xd, Xn, XZR).
func MOV(rd, rn int) uint32 { return ADD(rd, rn, XZR) }

// SXTW Xd, Wn — sign-extend the low 32 bits of Xn into Xd (alias for
// SBFM Xd, Xn, #0, #31).
func SXTW(rd, rn int) uint32 {
	return 1<<31 | 0b100110<<23 | 1<<22 | 0b011111<<10 | reg(rn)<<5 | reg(rd)
}

// MSUB Xd, Xn, Xm, Xa (Xd = Xa - Xn*Xm).
func MSUB(rd, rn, rm, ra int) uint32 {
	return 0b10011011000<<21 | reg(rm)<<16 | 1<<15 | reg(ra)<<10 | reg(rn)<<5 | reg(rd)
}

// STRB Wt, [Xn, #imm] — unsigned-offset byte store, imm in [0,4095].
func STRB(rt, rn int, imm uint16) uint32 { return loadStoreByteImm(0b00, rt, rn, imm) }

// LDRB Wt, [Xn, #imm] — unsigned-offset byte load (zero-extended).
func LDRB(rt, rn int, imm uint16) uint32 { return loadStoreByteImm(0b01, rt, rn, imm) }

func loadStoreByteImm(opc uint32, rt, rn int, imm uint16) uint32 {
	return 0b111<<27 | 0b01<<24 | opc<<22 | (uint32(imm)&0xfff)<<10 | reg(rn)<<5 | reg(rt)
}

// LDR Xt, [Xn, Xm] — register-offset 64-bit load, unscaled (no shift).
func LDRReg(rt, rn, rm int) uint32 { return loadStoreRegOffset(0b01, rt, rn, rm) }

// STR Xt, [Xn, Xm] — register-offset 64-bit store, unscaled.
func STRReg(rt, rn, rm int) uint32 { return loadStoreRegOffset(0b00, rt, rn, rm) }

func loadStoreRegOffset(opc uint32, rt, rn, rm int) uint32 {
	return 0b11<<30 | 0b111<<27 | opc<<22 | 1<<21 | reg(rm)<<16 | 0b011<<13 | 0<<12 | 0b10<<10 | reg(rn)<<5 | reg(rt)
}

// LDRRegShifted Xt, [Xn, Xm, LSL #3] — register-offset 64-bit load scaled
// by 8, the addressing mode for indexing a pointer-sized array.
func LDRRegShifted(rt, rn, rm int) uint32 { return loadStoreRegOffsetShifted(0b01, rt, rn, rm) }

func loadStoreRegOffsetShifted(opc uint32, rt, rn, rm int) uint32 {
	return 0b11<<30 | 0b111<<27 | opc<<22 | 1<<21 | reg(rm)<<16 | 0b011<<13 | 1<<12 | 0b10<<10 | reg(rn)<<5 | reg(rt)
}
