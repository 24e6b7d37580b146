// Package native compiles a lowered ir.Module directly to arm64 machine
// code for macOS, with no call out to cc, as, or any other external
// assembler or linker (spec §2, §4.4). It is the second of the two
// program shapes Lower can feed (the other being vm.Execute): the
// testable claim in §8 is that native.Emit(program), run as a process,
// exits with vm.Execute(program)'s return value.
//
// The translation keeps the stack-machine shape of the IR instead of
// compiling it down to a register allocator: because every program is a
// single inlined function with statically deterministic control flow
// (§4.2.7 — no recursion, no indirect calls), the operand-stack depth at
// every instruction can be computed once, ahead of time (see depth.go),
// and each push/pop becomes a fixed-offset load/store against a
// reserved region of the stack frame. This mirrors vm.Execute's
// []uint64 stack almost exactly, just addressed at compile time instead
// of at run time.
package native

import (
	"fmt"

	"github.com/primec/primec/internal/ir"
	"github.com/primec/primec/internal/native/arm64"
	"github.com/primec/primec/internal/perr"
)

// Scratch / working registers. x27 and x28 are callee-effectively-fixed
// for the lifetime of the function body (never spilled, never reused for
// anything else): x27 anchors the locals region, x28 the operand-stack
// region built on top of it. x19/x20 hold argc/argv, captured before the
// frame is reserved (§ argv capture below). x9-x11 are scratch.
const (
	rFrame  = arm64.X27 // base of the locals region
	rStack  = arm64.X28 // base of the operand-stack region
	rArgc   = arm64.X19
	rArgv   = arm64.X20
	rTmp0 = arm64.X9
	rTmp1 = arm64.X10
)

const (
	sysExit  = 0x2000001
	sysWrite = 0x2000004
	svcMacOS = 0x80

	stdout = 1
	stderr = 2
)

// fixupKind tags a deferred absolute-address load that can only be
// resolved once the binary's final layout is known (§ LoadAbs doc).
type fixupKind int

const (
	fixupStringAddr fixupKind = iota
	fixupScratchAddr
)

// AbsFixup records one arm64.LoadAbs sequence (four words, at WordIndex)
// whose value is a virtual address only known after Mach-O layout.
type AbsFixup struct {
	WordIndex int
	Reg       int
	Kind      fixupKind
	// StringIndex is the index into Artifact.Strings when Kind is
	// fixupStringAddr.
	StringIndex int
}

// Artifact is the output of Emit: a flat stream of code words, the
// (possibly extended, see Emit's newline synthesis) string table the
// code references by byte offset, and the deferred address fixups the
// Mach-O writer must patch once section addresses are fixed.
type Artifact struct {
	Code          []uint32
	Strings       [][]byte
	Fixups        []AbsFixup
	ScratchBytes  int // size of the RW scratch buffer printInt needs
	EntryWordIdx  int // first instruction to execute (the body, ahead of traps and subroutines)
}

// label/fixup-based local assembler for relative branches. IR
// instructions get one label each ("ir:<pc>"), so Jump/JumpIfZero, and
// the fixed set of subroutine calls (printInt, writeBuf, printArgv, traps), all
// resolve through the same flat namespace and the same patch pass.
type branchKind int

const (
	branchB branchKind = iota
	branchBCond
	branchCBZ
	branchCBNZ
	branchBL
)

type branchFixup struct {
	wordIdx int
	kind    branchKind
	cond    arm64.Cond
	reg     int
	label   string
}

type asm struct {
	words   []uint32
	labels  map[string]int
	pending []branchFixup
	abs     []AbsFixup
}

func newAsm() *asm {
	return &asm{labels: make(map[string]int)}
}

func (a *asm) here() int { return len(a.words) }

func (a *asm) emit(w uint32) { a.words = append(a.words, w) }

func (a *asm) emitAll(ws []uint32) {
	a.words = append(a.words, ws...)
}

func (a *asm) setLabel(name string) { a.labels[name] = a.here() }

func (a *asm) b(label string) {
	a.pending = append(a.pending, branchFixup{wordIdx: a.here(), kind: branchB, label: label})
	a.emit(0)
}

func (a *asm) bCond(cond arm64.Cond, label string) {
	a.pending = append(a.pending, branchFixup{wordIdx: a.here(), kind: branchBCond, cond: cond, label: label})
	a.emit(0)
}

func (a *asm) cbz(reg int, label string) {
	a.pending = append(a.pending, branchFixup{wordIdx: a.here(), kind: branchCBZ, reg: reg, label: label})
	a.emit(0)
}

func (a *asm) cbnz(reg int, label string) {
	a.pending = append(a.pending, branchFixup{wordIdx: a.here(), kind: branchCBNZ, reg: reg, label: label})
	a.emit(0)
}

func (a *asm) bl(label string) {
	a.pending = append(a.pending, branchFixup{wordIdx: a.here(), kind: branchBL, label: label})
	a.emit(0)
}

// loadAbs emits a fixed four-word LoadAbs placeholder and records a
// fixup to patch it once the real address is known.
func (a *asm) loadAbs(reg int, kind fixupKind, stringIndex int) {
	idx := a.here()
	a.emitAll(arm64.LoadAbs(reg, 0))
	a.abs = append(a.abs, AbsFixup{WordIndex: idx, Reg: reg, Kind: kind, StringIndex: stringIndex})
}

func (a *asm) resolve(fnName string) error {
	for _, fx := range a.pending {
		target, ok := a.labels[fx.label]
		if !ok {
			return perr.Withf(perr.KindNative, fnName, "unresolved label %q", fx.label)
		}
		offset := int32(target - fx.wordIdx)
		switch fx.kind {
		case branchB:
			a.words[fx.wordIdx] = arm64.B(offset)
		case branchBL:
			a.words[fx.wordIdx] = arm64.BL(offset)
		case branchBCond:
			a.words[fx.wordIdx] = arm64.BCond(fx.cond, offset)
		case branchCBZ:
			a.words[fx.wordIdx] = arm64.CBZ(fx.reg, offset)
		case branchCBNZ:
			a.words[fx.wordIdx] = arm64.CBNZ(fx.reg, offset)
		}
	}
	return nil
}

// condFor maps a comparison opcode to the arm64 condition code that
// holds after CMP rA, rB (i.e. rA-rB), matching vm.Execute's cmpOp,
// which always computes f(a, b) with a popped second and b popped top.
func condFor(op ir.Opcode) (arm64.Cond, bool) {
	switch op {
	case ir.CmpEqI32, ir.CmpEqI64:
		return arm64.CondEQ, true
	case ir.CmpNeI32, ir.CmpNeI64:
		return arm64.CondNE, true
	case ir.CmpLtI32, ir.CmpLtI64:
		return arm64.CondLT, true
	case ir.CmpLeI32, ir.CmpLeI64:
		return arm64.CondLE, true
	case ir.CmpGtI32, ir.CmpGtI64:
		return arm64.CondGT, true
	case ir.CmpGeI32, ir.CmpGeI64:
		return arm64.CondGE, true
	case ir.CmpLtU64:
		return arm64.CondLO, true
	case ir.CmpLeU64:
		return arm64.CondLS, true
	case ir.CmpGtU64:
		return arm64.CondHI, true
	case ir.CmpGeU64:
		return arm64.CondHS, true
	default:
		return 0, false
	}
}

func align16(n int) int { return (n + 15) &^ 15 }

// Emit translates m's entry function (the only function Lower ever
// produces, per §4.2's contract) into a standalone arm64 code stream.
func Emit(m *ir.Module) (*Artifact, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	fn := m.EntryFunction()
	depths, err := computeDepths(fn)
	if err != nil {
		return nil, err
	}
	for _, inst := range fn.Instructions {
		switch inst.Op {
		case ir.AddressOfLocal:
			if off := ir.LocalOffset(int(inst.Imm)); off > 4095 {
				return nil, perr.Withf(perr.KindNative, fn.Name, "local offset %d exceeds addressing range", off)
			}
		}
	}

	nlocals := fn.LocalCount()
	localsBytes := nlocals * ir.LocalSlotBytes
	stackBytes := maxDepth(depths) * 8
	frameBytes := align16(localsBytes + stackBytes)
	if frameBytes == 0 {
		frameBytes = 16
	}
	if frameBytes > 4095 {
		return nil, perr.Withf(perr.KindNative, fn.Name, "stack frame of %d bytes exceeds native addressing range", frameBytes)
	}

	a := newAsm()

	// Capture argc/argv from the initial process stack before SP moves:
	// the kernel hands control over with [sp]=argc, [sp+8..]=argv, so this
	// must happen before SUBImm SP,SP,#frameBytes relocates it.
	a.emit(arm64.LDR(rArgc, arm64.XZR, 0)) // LDR Xargc,[SP,#0] (XZR encodes SP here)
	a.emit(arm64.ADDImm(rArgv, arm64.XZR, 8))

	a.emit(arm64.SUBImm(arm64.XZR, arm64.XZR, uint16(frameBytes))) // SUB SP,SP,#frameBytes
	a.emit(arm64.ADDImm(rFrame, arm64.XZR, 0))                     // ADD x27,SP,#0
	a.emit(arm64.ADDImm(rStack, rFrame, uint16(localsBytes)))

	for i := 0; i < nlocals; i++ {
		off := ir.LocalOffset(i)
		a.emit(arm64.STR(arm64.XZR, rFrame, uint16(off)))
	}

	strings := append([][]byte(nil), m.Strings...)

	insts := fn.Instructions
	for pc, inst := range insts {
		a.setLabel(fmt.Sprintf("ir:%d", pc))
		d := depths[pc]
		op := inst.Op

		switch op {
		case ir.PushI32:
			v := uint64(int64(int32(uint32(inst.Imm))))
			a.emitAll(arm64.LoadImm64(rTmp0, v))
			a.emit(arm64.STR(rTmp0, rStack, uint16(d*8)))
		case ir.PushI64:
			a.emitAll(arm64.LoadImm64(rTmp0, inst.Imm))
			a.emit(arm64.STR(rTmp0, rStack, uint16(d*8)))
		case ir.Dup:
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-1)*8)))
			a.emit(arm64.STR(rTmp0, rStack, uint16(d*8)))
		case ir.Pop:
			// No physical pop: the operand-stack region is addressed by
			// compile-time depth, not a moving pointer.
		case ir.LoadLocal:
			off := ir.LocalOffset(int(inst.Imm))
			a.emit(arm64.LDR(rTmp0, rFrame, uint16(off)))
			a.emit(arm64.STR(rTmp0, rStack, uint16(d*8)))
		case ir.StoreLocal:
			off := ir.LocalOffset(int(inst.Imm))
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-1)*8)))
			a.emit(arm64.STR(rTmp0, rFrame, uint16(off)))
		case ir.AddressOfLocal:
			off := ir.LocalOffset(int(inst.Imm))
			a.emit(arm64.ADDImm(rTmp0, rFrame, uint16(off)))
			a.emit(arm64.STR(rTmp0, rStack, uint16(d*8)))
		case ir.LoadIndirect:
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-1)*8)))
			a.emit(arm64.LDR(rTmp1, rTmp0, 0))
			a.emit(arm64.STR(rTmp1, rStack, uint16((d-1)*8)))
		case ir.StoreIndirect:
			a.emit(arm64.LDR(rTmp1, rStack, uint16((d-1)*8))) // value
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-2)*8))) // addr
			a.emit(arm64.STR(rTmp1, rTmp0, 0))
		case ir.AddI32, ir.AddI64:
			emitBin(a, d, arm64.ADD)
		case ir.SubI32, ir.SubI64:
			emitBin(a, d, arm64.SUB)
		case ir.MulI32, ir.MulI64:
			emitBin(a, d, arm64.MUL)
		case ir.DivI32, ir.DivI64:
			a.emit(arm64.LDR(rTmp1, rStack, uint16((d-1)*8)))
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-2)*8)))
			a.cbz(rTmp1, "trap:divzero")
			a.emit(arm64.SDIV(rTmp0, rTmp0, rTmp1))
			a.emit(arm64.STR(rTmp0, rStack, uint16((d-2)*8)))
		case ir.DivU64:
			a.emit(arm64.LDR(rTmp1, rStack, uint16((d-1)*8)))
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-2)*8)))
			a.cbz(rTmp1, "trap:divzero")
			a.emit(arm64.UDIV(rTmp0, rTmp0, rTmp1))
			a.emit(arm64.STR(rTmp0, rStack, uint16((d-2)*8)))
		case ir.NegI32, ir.NegI64:
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-1)*8)))
			a.emit(arm64.NEG(rTmp0, rTmp0))
			a.emit(arm64.STR(rTmp0, rStack, uint16((d-1)*8)))
		case ir.CmpEqI32, ir.CmpNeI32, ir.CmpLtI32, ir.CmpLeI32, ir.CmpGtI32, ir.CmpGeI32,
			ir.CmpEqI64, ir.CmpNeI64, ir.CmpLtI64, ir.CmpLeI64, ir.CmpGtI64, ir.CmpGeI64,
			ir.CmpLtU64, ir.CmpLeU64, ir.CmpGtU64, ir.CmpGeU64:
			cond, ok := condFor(op)
			if !ok {
				return nil, perr.Withf(perr.KindUnsupportedOpcode, fn.Name, "%s", op)
			}
			a.emit(arm64.LDR(rTmp1, rStack, uint16((d-1)*8))) // b
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-2)*8))) // a
			a.emit(arm64.CMP(rTmp0, rTmp1))
			a.emit(arm64.CSET(rTmp0, cond))
			a.emit(arm64.STR(rTmp0, rStack, uint16((d-2)*8)))
		case ir.Jump:
			a.b(fmt.Sprintf("ir:%d", inst.Imm))
		case ir.JumpIfZero:
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-1)*8)))
			a.cbz(rTmp0, fmt.Sprintf("ir:%d", inst.Imm))
		case ir.ReturnVoid:
			a.emitAll(arm64.LoadImm64(arm64.X0, 0))
			emitExit(a)
		case ir.ReturnI32:
			a.emit(arm64.LDR(rTmp0, rStack, uint16((d-1)*8)))
			a.emit(arm64.SXTW(rTmp0, rTmp0))
			a.emit(arm64.MOV(arm64.X0, rTmp0))
			emitExit(a)
		case ir.ReturnI64:
			a.emit(arm64.LDR(arm64.X0, rStack, uint16((d-1)*8)))
			emitExit(a)
		case ir.PrintI32, ir.PrintI64, ir.PrintU64:
			_, flags := ir.UnpackPrintImm(inst.Imm)
			a.emit(arm64.LDR(arm64.X0, rStack, uint16((d-1)*8)))
			signed := op != ir.PrintU64
			emitImm32(a, arm64.X1, boolImm(signed))
			fd := stdout
			if flags&ir.PrintFlagStderr != 0 {
				fd = stderr
			}
			emitImm32(a, arm64.X2, uint64(fd))
			emitImm32(a, arm64.X3, boolImm(flags&ir.PrintFlagNewline != 0))
			a.bl("sub:printInt")
		case ir.PrintString:
			strIdx, flags := ir.UnpackPrintImm(inst.Imm)
			a.loadAbs(arm64.X0, fixupStringAddr, int(strIdx))
			fd := stdout
			if flags&ir.PrintFlagStderr != 0 {
				fd = stderr
			}
			emitImm32(a, arm64.X1, uint64(fd))
			emitImm32(a, arm64.X2, uint64(len(strings[strIdx])))
			emitImm32(a, arm64.X3, boolImm(flags&ir.PrintFlagNewline != 0))
			a.bl("sub:writeBuf")
		case ir.PrintArgv, ir.PrintArgvUnsafe:
			_, flags := ir.UnpackPrintImm(inst.Imm)
			a.emit(arm64.LDR(arm64.X0, rStack, uint16((d-1)*8))) // index
			if op == ir.PrintArgv {
				a.emit(arm64.CMP(arm64.X0, rArgc))
				a.bCond(arm64.CondHS, "trap:argvrange")
			}
			fd := stdout
			if flags&ir.PrintFlagStderr != 0 {
				fd = stderr
			}
			emitImm32(a, arm64.X2, uint64(fd))
			emitImm32(a, arm64.X3, boolImm(flags&ir.PrintFlagNewline != 0))
			a.bl("sub:printArgv")
		case ir.LoadStringByte:
			return nil, perr.Withf(perr.KindUnsupportedOpcode, fn.Name, "%s is not reachable from surface lowering yet", op)
		case ir.PushArgc:
			a.emit(arm64.STR(rArgc, rStack, uint16(d*8)))
		default:
			return nil, perr.Withf(perr.KindUnsupportedOpcode, fn.Name, "%s", op)
		}
	}

	// Fallthrough past the last instruction means the IR had no terminal
	// return on some path (Validate lets this through since it only checks
	// jump targets, not reachability-to-terminator); trap like the VM does
	// for "ran off the end".
	a.setLabel(fmt.Sprintf("ir:%d", len(insts)))
	a.b("trap:missingreturn")

	emitTraps(a)
	if _, err := emitSubroutines(a, &strings); err != nil {
		return nil, err
	}

	if err := a.resolve(fn.Name); err != nil {
		return nil, err
	}

	return &Artifact{
		Code:         a.words,
		Strings:      strings,
		Fixups:       a.abs,
		ScratchBytes: 32,
		EntryWordIdx: 0,
	}, nil
}

func boolImm(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func emitImm32(a *asm, reg int, v uint64) {
	a.emitAll(arm64.LoadImm64(reg, v))
}

func emitBin(a *asm, d int, op func(rd, rn, rm int) uint32) {
	a.emit(arm64.LDR(rTmp1, rStack, uint16((d-1)*8))) // b
	a.emit(arm64.LDR(rTmp0, rStack, uint16((d-2)*8))) // a
	a.emit(op(rTmp0, rTmp0, rTmp1))
	a.emit(arm64.STR(rTmp0, rStack, uint16((d-2)*8)))
}

func emitExit(a *asm) {
	a.emitAll(arm64.LoadImm64(arm64.X16, sysExit))
	a.emit(arm64.SVC(svcMacOS))
}

// emitTraps appends the three native-only trap paths, each exiting with
// its own fixed, distinct status code so a failing program is
// distinguishable from one that legitimately returned that value only by
// running it under the VM side by side — acceptable since traps are a
// backend-internal diagnostic, not part of the language's observable
// return-value contract.
func emitTraps(a *asm) {
	a.setLabel("trap:divzero")
	emitImm32(a, arm64.X0, 2)
	emitExit(a)

	a.setLabel("trap:missingreturn")
	emitImm32(a, arm64.X0, 3)
	emitExit(a)

	a.setLabel("trap:argvrange")
	emitImm32(a, arm64.X0, 4)
	emitExit(a)
}

// emitSubroutines appends the runtime helper routines the print family
// calls into: printInt (decimal rendering of a register value),
// writeBuf (a raw string-table write(2)), and printArgv (NUL-terminated
// argv[index] write(2)). It returns the string-table index of the
// synthetic single-byte "\n" literal appended for printInt/printArgv's
// newline suffix, reusing the same rodata mechanism ordinary string
// literals use instead of a one-off code path.
func emitSubroutines(a *asm, strings *[][]byte) (int, error) {
	newlineIdx := len(*strings)
	*strings = append(*strings, []byte("\n"))

	// writeBuf(x0=ptr, x1=fd, x2=len, x3=newline): write(fd, ptr, len);
	// if newline, also write(fd, "\n", 1).
	a.setLabel("sub:writeBuf")
	a.emit(arm64.MOV(arm64.X5, arm64.X1)) // save fd
	a.emit(arm64.MOV(arm64.X6, arm64.X3)) // save newline flag
	a.emit(arm64.MOV(arm64.X1, arm64.X0)) // write's buffer argument
	a.emit(arm64.MOV(arm64.X0, arm64.X5)) // write's fd argument
	emitImm32(a, arm64.X16, sysWrite)
	a.emit(arm64.SVC(svcMacOS))
	a.cbz(arm64.X6, "sub:writeBuf.done")
	a.loadAbs(arm64.X1, fixupStringAddr, newlineIdx)
	a.emit(arm64.MOV(arm64.X0, arm64.X5))
	emitImm32(a, arm64.X2, 1)
	emitImm32(a, arm64.X16, sysWrite)
	a.emit(arm64.SVC(svcMacOS))
	a.setLabel("sub:writeBuf.done")
	a.emit(arm64.RET())

	// printInt(x0=value, x1=signedFlag, x2=fd, x3=newline): render x0 in
	// decimal into the scratch buffer, back to front, then hand off to
	// writeBuf. x5=fd, x6=newline saved across the digit loop; x11=negFlag.
	a.setLabel("sub:printInt")
	a.emit(arm64.MOV(arm64.X5, arm64.X2))
	a.emit(arm64.MOV(arm64.X6, arm64.X3))
	a.emit(arm64.MOVZ(arm64.X11, 0, 0)) // negFlag = 0
	doneSign := "sub:printInt.unsigned"
	a.cbz(arm64.X1, doneSign)
	a.emit(arm64.CMP(arm64.X0, arm64.XZR))
	a.bCond(arm64.CondGE, "sub:printInt.nonneg")
	a.emit(arm64.NEG(arm64.X0, arm64.X0))
	a.emit(arm64.MOVZ(arm64.X11, 1, 0))
	a.setLabel("sub:printInt.nonneg")
	a.setLabel(doneSign)

	a.loadAbs(arm64.X7, fixupScratchAddr, 0) // scratch buffer base
	emitImm32(a, arm64.X8, 32)
	a.emit(arm64.ADD(arm64.X9, arm64.X7, arm64.X8)) // x9 = cursor, starts at end

	a.setLabel("sub:printInt.loop")
	emitImm32(a, arm64.X10, 10)
	a.emit(arm64.UDIV(arm64.X12, arm64.X0, arm64.X10)) // q = v/10
	a.emit(arm64.MSUB(arm64.X13, arm64.X12, arm64.X10, arm64.X0)) // rem = v - q*10
	a.emit(arm64.SUBImm(arm64.X9, arm64.X9, 1))
	a.emit(arm64.ADDImm(arm64.X13, arm64.X13, '0'))
	a.emit(arm64.STRB(arm64.X13, arm64.X9, 0))
	a.emit(arm64.MOV(arm64.X0, arm64.X12))
	a.cbnz(arm64.X0, "sub:printInt.loop")

	a.cbz(arm64.X11, "sub:printInt.writelen")
	a.emit(arm64.SUBImm(arm64.X9, arm64.X9, 1))
	a.emit(arm64.MOVZ(arm64.X13, '-', 0))
	a.emit(arm64.STRB(arm64.X13, arm64.X9, 0))

	a.setLabel("sub:printInt.writelen")
	a.emit(arm64.ADD(arm64.X2, arm64.X7, arm64.X8)) // end of buffer
	a.emit(arm64.SUB(arm64.X2, arm64.X2, arm64.X9)) // len = end - cursor
	a.emit(arm64.MOV(arm64.X0, arm64.X9))
	a.emit(arm64.MOV(arm64.X1, arm64.X5))
	a.emit(arm64.MOV(arm64.X3, arm64.X6))
	a.b("sub:writeBuf")

	// printArgv(x0=index, x2=fd, x3=newline): argv[index] is a
	// NUL-terminated C string; find its length with a strlen loop, then
	// hand off to writeBuf.
	a.setLabel("sub:printArgv")
	a.emit(arm64.MOV(arm64.X5, arm64.X2))
	a.emit(arm64.MOV(arm64.X6, arm64.X3))
	a.emit(arm64.LDRRegShifted(arm64.X7, rArgv, arm64.X0)) // x7 = argv[index]
	a.emit(arm64.MOV(arm64.X9, arm64.X7))
	a.setLabel("sub:printArgv.strlen")
	a.emit(arm64.LDRB(arm64.X12, arm64.X9, 0))
	a.cbz(arm64.X12, "sub:printArgv.done")
	a.emit(arm64.ADDImm(arm64.X9, arm64.X9, 1))
	a.b("sub:printArgv.strlen")
	a.setLabel("sub:printArgv.done")
	a.emit(arm64.SUB(arm64.X2, arm64.X9, arm64.X7)) // len
	a.emit(arm64.MOV(arm64.X0, arm64.X7))
	a.emit(arm64.MOV(arm64.X1, arm64.X5))
	a.emit(arm64.MOV(arm64.X3, arm64.X6))
	a.b("sub:writeBuf")

	return newlineIdx, nil
}
