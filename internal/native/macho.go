package native

import (
	"bytes"
	"encoding/binary"

	"github.com/primec/primec/internal/native/arm64"
	"github.com/primec/primec/internal/perr"
)

// Mach-O constants, trimmed to the subset a syscall-only arm64
// executable needs (no LC_LOAD_DYLIB/LC_SYMTAB/LC_DYSYMTAB/chained
// fixups: every external effect goes through a raw SVC, so there is no
// dynamic symbol to bind). Names and values are standard Mach-O, as
// catalogued across the struct layouts of both the flapc and vibe67
// Mach-O writers and the fq/go-macho format readers in the retrieval
// pack; this file keeps only what LC_LOAD_DYLINKER, LC_UNIXTHREAD,
// LC_UUID, and LC_CODE_SIGNATURE need.
const (
	machHeaderMagic64 = 0xfeedfacf
	cpuTypeARM64       = 0x0100000c
	cpuSubtypeARM64All = 0x00000000
	fileTypeExecute    = 0x2

	flagNoUndefs = 0x1
	flagPIE      = 0x200000

	lcSegment64     = 0x19
	lcUnixThread    = 0x5
	lcLoadDylinker  = 0xe
	lcUUID          = 0x1b
	lcCodeSignature = 0x1d

	vmProtNone  = 0x0
	vmProtRead  = 0x1
	vmProtWrite = 0x2
	vmProtExec  = 0x4

	armThreadState64Flavor = 6
	armThreadState64Words  = 68 // 29 general regs + fp/lr/sp/pc + cpsr/pad, in uint32s

	pageSize   = uint64(0x4000) // 16KB, ARM64 macOS page size
	pageZero   = uint64(0x100000000)
	dyldPath   = "/usr/lib/dyld"
)

type machHeader64 struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

type segmentCommand64 struct {
	Cmd      uint32
	CmdSize  uint32
	SegName  [16]byte
	VMAddr   uint64
	VMSize   uint64
	FileOff  uint64
	FileSize uint64
	MaxProt  uint32
	InitProt uint32
	NSects   uint32
	Flags    uint32
}

type section64 struct {
	SectName  [16]byte
	SegName   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

type dylinkerCommand struct {
	Cmd     uint32
	CmdSize uint32
	Offset  uint32
}

type uuidCommand struct {
	Cmd     uint32
	CmdSize uint32
	UUID    [16]byte
}

type linkeditDataCommand struct {
	Cmd      uint32
	CmdSize  uint32
	DataOff  uint32
	DataSize uint32
}

func setName16(dst *[16]byte, name string) {
	copy(dst[:], name)
}

func alignUp(v, align uint64) uint64 { return (v + align - 1) &^ (align - 1) }

// layout is the page/address/offset bookkeeping Write computes;
// patchFixups reads the section addresses from it.
type layout struct {
	textFileOff   uint64
	textVMAddr    uint64
	textFileSize  uint64
	dataFileOff   uint64
	dataVMAddr    uint64
	dataFileSize  uint64
	linkeditOff   uint64
	linkeditVM    uint64
	signOff       uint64
	signCapacity  uint64
	codeStartAddr uint64 // VM address of Artifact.Code[0]
	stringsAddr   uint64
	scratchAddr   uint64
}

// Write lays out art as a standalone arm64 Mach-O executable for macOS:
// __PAGEZERO (unmapped guard), __TEXT (code + interned strings,
// read+execute), __DATA (the printInt scratch buffer, read+write), and
// __LINKEDIT (the ad hoc code signature). It patches art's Fixups in
// place once addresses are known, then signs the result (§ codesign.go)
// since an unsigned arm64 binary will not run under macOS's mandatory
// code-signing enforcement.
func Write(art *Artifact, signIdentifier string) ([]byte, error) {
	codeBytes := make([]byte, len(art.Code)*4)
	for i, w := range art.Code {
		binary.LittleEndian.PutUint32(codeBytes[i*4:], w)
	}

	var stringsBlob []byte
	stringOffsets := make([]int, len(art.Strings))
	for i, s := range art.Strings {
		stringOffsets[i] = len(stringsBlob)
		stringsBlob = append(stringsBlob, s...)
	}

	headerSize := uint64(binary.Size(machHeader64{}))
	var loadCmdsSize uint64
	loadCmdsSize += uint64(binary.Size(segmentCommand64{})) // __PAGEZERO
	loadCmdsSize += uint64(binary.Size(segmentCommand64{}) + binary.Size(section64{})*2) // __TEXT: __text, __cstring
	loadCmdsSize += uint64(binary.Size(segmentCommand64{}) + binary.Size(section64{}))   // __DATA: __bss
	loadCmdsSize += uint64(binary.Size(segmentCommand64{}))                              // __LINKEDIT
	dylinkerCmdSize := alignUp(uint64(binary.Size(dylinkerCommand{})+len(dyldPath)+1), 8)
	loadCmdsSize += dylinkerCmdSize
	loadCmdsSize += uint64(binary.Size(uuidCommand{}))
	threadCmdSize := uint64(4*4 + armThreadState64Words*4) // cmd,cmdsize,flavor,count,state
	loadCmdsSize += threadCmdSize
	loadCmdsSize += uint64(binary.Size(linkeditDataCommand{})) // LC_CODE_SIGNATURE

	fileHeaderSize := headerSize + loadCmdsSize
	textFileOff := uint64(0)
	textVMAddr := pageZero
	codeOff := alignUp(fileHeaderSize, 8)
	stringsOff := codeOff + uint64(len(codeBytes))
	textContentSize := stringsOff + uint64(len(stringsBlob)) - textFileOff
	textFileSize := alignUp(textContentSize, pageSize)

	dataFileOff := alignUp(textFileOff+textFileSize, pageSize)
	dataVMAddr := textVMAddr + textFileSize
	scratchOff := dataFileOff
	dataFileSize := alignUp(uint64(art.ScratchBytes), pageSize)
	if dataFileSize == 0 {
		dataFileSize = pageSize
	}

	linkeditFileOff := alignUp(dataFileOff+dataFileSize, pageSize)
	linkeditVMAddr := dataVMAddr + dataFileSize

	signOff := linkeditFileOff
	signCapacity := signatureCapacity(signOff, signIdentifier)
	linkeditFileSize := alignUp(signCapacity, pageSize)

	l := layout{
		textFileOff:   textFileOff,
		textVMAddr:    textVMAddr,
		textFileSize:  textFileSize,
		dataFileOff:   dataFileOff,
		dataVMAddr:    dataVMAddr,
		dataFileSize:  dataFileSize,
		linkeditOff:   linkeditFileOff,
		linkeditVM:    linkeditVMAddr,
		signOff:       signOff,
		signCapacity:  signCapacity,
		codeStartAddr: textVMAddr + codeOff,
		stringsAddr:   textVMAddr + stringsOff,
		scratchAddr:   dataVMAddr + (scratchOff - dataFileOff),
	}

	if err := patchFixups(art, &l, stringOffsets); err != nil {
		return nil, err
	}
	for i, w := range art.Code {
		binary.LittleEndian.PutUint32(codeBytes[i*4:], w)
	}

	var buf bytes.Buffer

	header := machHeader64{
		Magic:      machHeaderMagic64,
		CPUType:    cpuTypeARM64,
		CPUSubtype: cpuSubtypeARM64All,
		FileType:   fileTypeExecute,
		NCmds:      8,
		SizeOfCmds: uint32(loadCmdsSize),
		Flags:      flagNoUndefs | flagPIE,
	}
	binary.Write(&buf, binary.LittleEndian, &header)

	pageZeroSeg := segmentCommand64{
		Cmd:      lcSegment64,
		CmdSize:  uint32(binary.Size(segmentCommand64{})),
		VMAddr:   0,
		VMSize:   pageZero,
		MaxProt:  vmProtNone,
		InitProt: vmProtNone,
	}
	setName16(&pageZeroSeg.SegName, "__PAGEZERO")
	binary.Write(&buf, binary.LittleEndian, &pageZeroSeg)

	textSeg := segmentCommand64{
		Cmd:      lcSegment64,
		CmdSize:  uint32(binary.Size(segmentCommand64{}) + binary.Size(section64{})*2),
		VMAddr:   textVMAddr,
		VMSize:   textFileSize,
		FileOff:  textFileOff,
		FileSize: textFileSize,
		MaxProt:  vmProtRead | vmProtExec,
		InitProt: vmProtRead | vmProtExec,
		NSects:   2,
	}
	setName16(&textSeg.SegName, "__TEXT")
	binary.Write(&buf, binary.LittleEndian, &textSeg)

	textSect := section64{
		Addr:   textVMAddr + codeOff,
		Size:   uint64(len(codeBytes)),
		Offset: uint32(codeOff),
		Align:  2,
	}
	setName16(&textSect.SectName, "__text")
	setName16(&textSect.SegName, "__TEXT")
	binary.Write(&buf, binary.LittleEndian, &textSect)

	cstringSect := section64{
		Addr:   textVMAddr + stringsOff,
		Size:   uint64(len(stringsBlob)),
		Offset: uint32(stringsOff),
		Align:  0,
		Flags:  0x2, // S_CSTRING_LITERALS
	}
	setName16(&cstringSect.SectName, "__cstring")
	setName16(&cstringSect.SegName, "__TEXT")
	binary.Write(&buf, binary.LittleEndian, &cstringSect)

	dataSeg := segmentCommand64{
		Cmd:      lcSegment64,
		CmdSize:  uint32(binary.Size(segmentCommand64{}) + binary.Size(section64{})),
		VMAddr:   dataVMAddr,
		VMSize:   dataFileSize,
		FileOff:  dataFileOff,
		FileSize: dataFileSize,
		MaxProt:  vmProtRead | vmProtWrite,
		InitProt: vmProtRead | vmProtWrite,
		NSects:   1,
	}
	setName16(&dataSeg.SegName, "__DATA")
	binary.Write(&buf, binary.LittleEndian, &dataSeg)

	scratchSect := section64{
		Addr:   l.scratchAddr,
		Size:   uint64(art.ScratchBytes),
		Offset: uint32(scratchOff),
		Align:  3,
	}
	setName16(&scratchSect.SectName, "__bss")
	setName16(&scratchSect.SegName, "__DATA")
	binary.Write(&buf, binary.LittleEndian, &scratchSect)

	linkeditSeg := segmentCommand64{
		Cmd:      lcSegment64,
		CmdSize:  uint32(binary.Size(segmentCommand64{})),
		VMAddr:   linkeditVMAddr,
		VMSize:   alignUp(linkeditFileSize, pageSize),
		FileOff:  linkeditFileOff,
		FileSize: linkeditFileSize,
		MaxProt:  vmProtRead,
		InitProt: vmProtRead,
	}
	setName16(&linkeditSeg.SegName, "__LINKEDIT")
	binary.Write(&buf, binary.LittleEndian, &linkeditSeg)

	dylinker := dylinkerCommand{Cmd: lcLoadDylinker, CmdSize: uint32(dylinkerCmdSize), Offset: uint32(binary.Size(dylinkerCommand{}))}
	binary.Write(&buf, binary.LittleEndian, &dylinker)
	pathBytes := make([]byte, dylinkerCmdSize-uint64(binary.Size(dylinkerCommand{})))
	copy(pathBytes, dyldPath)
	buf.Write(pathBytes)

	uuid := uuidCommand{Cmd: lcUUID, CmdSize: uint32(binary.Size(uuidCommand{}))}
	copy(uuid.UUID[:], deterministicUUID(codeBytes))
	binary.Write(&buf, binary.LittleEndian, &uuid)

	binary.Write(&buf, binary.LittleEndian, uint32(lcUnixThread))
	binary.Write(&buf, binary.LittleEndian, uint32(threadCmdSize))
	binary.Write(&buf, binary.LittleEndian, uint32(armThreadState64Flavor))
	binary.Write(&buf, binary.LittleEndian, uint32(armThreadState64Words))
	state := make([]byte, armThreadState64Words*4)
	binary.LittleEndian.PutUint64(state[29*8+3*8:], l.codeStartAddr) // pc is the 33rd uint64 (x0..x28, fp, lr, sp, pc)
	buf.Write(state)

	signCmd := linkeditDataCommand{Cmd: lcCodeSignature, CmdSize: uint32(binary.Size(linkeditDataCommand{})), DataOff: uint32(signOff), DataSize: uint32(signCapacity)}
	binary.Write(&buf, binary.LittleEndian, &signCmd)

	for uint64(buf.Len()) < codeOff {
		buf.WriteByte(0)
	}
	buf.Write(codeBytes)
	buf.Write(stringsBlob)
	for uint64(buf.Len()) < dataFileOff {
		buf.WriteByte(0)
	}
	for uint64(buf.Len()) < dataFileOff+dataFileSize {
		buf.WriteByte(0)
	}
	for uint64(buf.Len()) < linkeditFileOff {
		buf.WriteByte(0)
	}

	out := buf.Bytes()
	sig, err := adHocSign(out[:signOff], uint64(signOff), signIdentifier)
	if err != nil {
		return nil, err
	}
	out = append(out, sig...)
	for uint64(len(out)) < linkeditFileOff+linkeditFileSize {
		out = append(out, 0)
	}
	return out, nil
}

// patchFixups overwrites every four-word LoadAbs placeholder art.Emit
// recorded with the real address it stands for, now that layout l has
// fixed section addresses.
func patchFixups(art *Artifact, l *layout, stringOffsets []int) error {
	for _, fx := range art.Fixups {
		var addr uint64
		switch fx.Kind {
		case fixupStringAddr:
			if fx.StringIndex < 0 || fx.StringIndex >= len(stringOffsets) {
				return perr.WithDetail(perr.KindNative, "string fixup index out of range")
			}
			addr = l.stringsAddr + uint64(stringOffsets[fx.StringIndex])
		case fixupScratchAddr:
			addr = l.scratchAddr
		}
		words := arm64.LoadAbs(fx.Reg, addr)
		copy(art.Code[fx.WordIndex:fx.WordIndex+4], words)
	}
	return nil
}
