// Package ir defines the bytecode data model shared by the lowerer, the
// VM, and the native emitter: the opcode set, the instruction/function/
// module structures, their little-endian binary codec, and a pseudo-
// assembly text form used by tests and the driver's `disasm` command.
//
// The opcode metadata table in this file (stack delta, immediate shape,
// terminator flag) drives the native emitter's stack-depth analysis and
// the text form's immediate handling. The VM's interpreter loop does not
// read it: vm.Execute's switch implements each opcode's stack effect
// directly.
package ir

import "fmt"

// Opcode is a closed, dense tag for one bytecode instruction kind.
type Opcode uint8

const ( //nolint:revive
	// Stack
	PushI32 Opcode = iota // - PushI32<imm32 sign-extended> v
	PushI64                // - PushI64<imm64>              v
	Dup                     // v Dup                         v v
	Pop                     // v Pop                         -

	// Locals
	LoadLocal      // -         LoadLocal<idx>      v
	StoreLocal     // v         StoreLocal<idx>      -
	AddressOfLocal // -         AddressOfLocal<idx>  addr

	// Indirect
	LoadIndirect  // addr       LoadIndirect   v
	StoreIndirect // addr v     StoreIndirect  -

	// Arithmetic, width-tagged
	AddI32
	SubI32
	MulI32
	DivI32
	NegI32
	AddI64
	SubI64
	MulI64
	DivI64
	NegI64
	DivU64

	// Comparisons, width/signedness-tagged (eq/ne are bit-pattern
	// comparisons, so they need no unsigned variant)
	CmpEqI32
	CmpNeI32
	CmpLtI32
	CmpLeI32
	CmpGtI32
	CmpGeI32
	CmpEqI64
	CmpNeI64
	CmpLtI64
	CmpLeI64
	CmpGtI64
	CmpGeI64
	CmpLtU64
	CmpLeU64
	CmpGtU64
	CmpGeU64

	// Control. Targets are indices into the instruction sequence of the
	// same function; instructionCount is the valid "one-past-end" target.
	Jump
	JumpIfZero

	// Return (terminators)
	ReturnVoid
	ReturnI32
	ReturnI64

	// I/O. PrintString's immediate packs two flag bits (newline, stderr)
	// in the low bits with a string-table index above them; the other
	// print opcodes carry the flag bits alone.
	PrintI32
	PrintI64
	PrintU64
	PrintString
	PrintArgv
	PrintArgvUnsafe
	LoadStringByte
	PushArgc

	opcodeCount
)

// Print flag bits: the low two bits of a print immediate, below the
// string-table index in a PrintString immediate.
const (
	PrintFlagNewline = 1 << 0
	PrintFlagStderr  = 1 << 1

	printFlagBits = 2
)

// PackPrintImm packs a string-table index and flags into one immediate.
func PackPrintImm(stringIndex uint32, flags uint8) uint64 {
	return uint64(stringIndex)<<printFlagBits | uint64(flags&0x3)
}

// UnpackPrintImm reverses PackPrintImm.
func UnpackPrintImm(imm uint64) (stringIndex uint32, flags uint8) {
	return uint32(imm >> printFlagBits), uint8(imm & 0x3)
}

var opcodeNames = [...]string{
	PushI32:         "push_i32",
	PushI64:         "push_i64",
	Dup:             "dup",
	Pop:             "pop",
	LoadLocal:       "load_local",
	StoreLocal:      "store_local",
	AddressOfLocal:  "address_of_local",
	LoadIndirect:    "load_indirect",
	StoreIndirect:   "store_indirect",
	AddI32:          "add_i32",
	SubI32:          "sub_i32",
	MulI32:          "mul_i32",
	DivI32:          "div_i32",
	NegI32:          "neg_i32",
	AddI64:          "add_i64",
	SubI64:          "sub_i64",
	MulI64:          "mul_i64",
	DivI64:          "div_i64",
	NegI64:          "neg_i64",
	DivU64:          "div_u64",
	CmpEqI32:        "cmp_eq_i32",
	CmpNeI32:        "cmp_ne_i32",
	CmpLtI32:        "cmp_lt_i32",
	CmpLeI32:        "cmp_le_i32",
	CmpGtI32:        "cmp_gt_i32",
	CmpGeI32:        "cmp_ge_i32",
	CmpEqI64:        "cmp_eq_i64",
	CmpNeI64:        "cmp_ne_i64",
	CmpLtI64:        "cmp_lt_i64",
	CmpLeI64:        "cmp_le_i64",
	CmpGtI64:        "cmp_gt_i64",
	CmpGeI64:        "cmp_ge_i64",
	CmpLtU64:        "cmp_lt_u64",
	CmpLeU64:        "cmp_le_u64",
	CmpGtU64:        "cmp_gt_u64",
	CmpGeU64:        "cmp_ge_u64",
	Jump:            "jump",
	JumpIfZero:      "jump_if_zero",
	ReturnVoid:      "return_void",
	ReturnI32:       "return_i32",
	ReturnI64:       "return_i64",
	PrintI32:        "print_i32",
	PrintI64:        "print_i64",
	PrintU64:        "print_u64",
	PrintString:     "print_string",
	PrintArgv:       "print_argv",
	PrintArgvUnsafe: "print_argv_unsafe",
	LoadStringByte:  "load_string_byte",
	PushArgc:        "push_argc",
}

var reverseOpcodeNames = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// ParseOpcode looks an opcode up by its text-assembly mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := reverseOpcodeNames[name]
	return op, ok
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

func (op Opcode) Valid() bool { return op < opcodeCount }

// ImmKind describes how to interpret an instruction's 64-bit immediate.
type ImmKind uint8

const (
	ImmNone        ImmKind = iota // opcode has no meaningful immediate
	ImmI32Sign                    // 32-bit immediate, sign-extended on push
	ImmI64                        // raw 64-bit immediate
	ImmLocalIndex                 // local slot index
	ImmJumpTarget                 // instruction index in [0, instructionCount]
	ImmStringFlags                // PackPrintImm(stringIndex, flags)
	ImmFlags                      // just the two print flag bits
	ImmStringIndex                // bare string-table index
)

// info is the per-opcode metadata record: the net operand-stack effect
// (in values, not bytes), the immediate's shape, and whether the opcode
// ends a function body. native.Emit's stack-depth worklist reads this
// table; vm.Execute does not, and keeps each opcode's stack effect in its
// own switch.
type info struct {
	stackDelta int8
	imm        ImmKind
	terminator bool
}

var opcodeInfo = [...]info{
	PushI32:         {stackDelta: +1, imm: ImmI32Sign},
	PushI64:         {stackDelta: +1, imm: ImmI64},
	Dup:             {stackDelta: +1},
	Pop:             {stackDelta: -1},
	LoadLocal:       {stackDelta: +1, imm: ImmLocalIndex},
	StoreLocal:      {stackDelta: -1, imm: ImmLocalIndex},
	AddressOfLocal:  {stackDelta: +1, imm: ImmLocalIndex},
	LoadIndirect:    {stackDelta: 0},
	StoreIndirect:   {stackDelta: -2},
	AddI32:          {stackDelta: -1},
	SubI32:          {stackDelta: -1},
	MulI32:          {stackDelta: -1},
	DivI32:          {stackDelta: -1},
	NegI32:          {stackDelta: 0},
	AddI64:          {stackDelta: -1},
	SubI64:          {stackDelta: -1},
	MulI64:          {stackDelta: -1},
	DivI64:          {stackDelta: -1},
	NegI64:          {stackDelta: 0},
	DivU64:          {stackDelta: -1},
	CmpEqI32:        {stackDelta: -1},
	CmpNeI32:        {stackDelta: -1},
	CmpLtI32:        {stackDelta: -1},
	CmpLeI32:        {stackDelta: -1},
	CmpGtI32:        {stackDelta: -1},
	CmpGeI32:        {stackDelta: -1},
	CmpEqI64:        {stackDelta: -1},
	CmpNeI64:        {stackDelta: -1},
	CmpLtI64:        {stackDelta: -1},
	CmpLeI64:        {stackDelta: -1},
	CmpGtI64:        {stackDelta: -1},
	CmpGeI64:        {stackDelta: -1},
	CmpLtU64:        {stackDelta: -1},
	CmpLeU64:        {stackDelta: -1},
	CmpGtU64:        {stackDelta: -1},
	CmpGeU64:        {stackDelta: -1},
	Jump:            {stackDelta: 0, imm: ImmJumpTarget},
	JumpIfZero:      {stackDelta: -1, imm: ImmJumpTarget},
	ReturnVoid:      {stackDelta: 0, terminator: true},
	ReturnI32:       {stackDelta: -1, terminator: true},
	ReturnI64:       {stackDelta: -1, terminator: true},
	PrintI32:        {stackDelta: -1, imm: ImmFlags},
	PrintI64:        {stackDelta: -1, imm: ImmFlags},
	PrintU64:        {stackDelta: -1, imm: ImmFlags},
	PrintString:     {stackDelta: 0, imm: ImmStringFlags},
	PrintArgv:       {stackDelta: -1, imm: ImmFlags},
	PrintArgvUnsafe: {stackDelta: -1, imm: ImmFlags},
	LoadStringByte:  {stackDelta: 0, imm: ImmStringIndex},
	PushArgc:        {stackDelta: +1},
}

// StackDelta returns op's net effect on the operand stack, in values.
func StackDelta(op Opcode) int { return int(opcodeInfo[op].stackDelta) }

// ImmediateKind returns how op's 64-bit immediate should be interpreted.
func ImmediateKind(op Opcode) ImmKind { return opcodeInfo[op].imm }

// IsTerminator reports whether op ends a function's control flow.
func IsTerminator(op Opcode) bool { return opcodeInfo[op].terminator }

// IsJump reports whether op carries a jump target.
func IsJump(op Opcode) bool { return opcodeInfo[op].imm == ImmJumpTarget }

// Pure reports whether op belongs to the pure-compute subset the VM
// supports (§9 open question, resolved per DESIGN.md: pure-compute vs.
// host-io opcodes are partitioned here rather than left for the VM to
// discover one unsupported opcode at a time).
func Pure(op Opcode) bool {
	switch op {
	case PrintI32, PrintI64, PrintU64, PrintString, PrintArgv, PrintArgvUnsafe,
		LoadStringByte, PushArgc:
		return false
	default:
		return op.Valid()
	}
}

// LocalOffset centralizes the "index*16+8" addressing rule (§4.2.2):
// the frame-relative byte offset of the idx'th local slot. The result
// only makes sense to the native backend (the VM addresses locals by
// index, never by byte offset), but keeping the arithmetic in one place
// forbids it from being reimplemented ad hoc elsewhere (§9).
func LocalOffset(idx int) int64 { return int64(idx)*16 + 8 }

// LocalSlotBytes is the fixed size of one local slot.
const LocalSlotBytes = 16
