package native

import (
	"encoding/binary"
	"testing"

	"github.com/primec/primec/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestWriteProducesMachOHeader(t *testing.T) {
	m := module(
		ir.Instruction{Op: ir.PushI32, Imm: uint64(uint32(7))},
		ir.Instruction{Op: ir.ReturnI32},
	)
	art, err := Emit(m)
	require.NoError(t, err)

	out, err := Write(art, "")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(out), int(pageSize))

	magic := binary.LittleEndian.Uint32(out[0:4])
	require.EqualValues(t, machHeaderMagic64, magic)

	cpuType := binary.LittleEndian.Uint32(out[4:8])
	require.EqualValues(t, cpuTypeARM64, cpuType)

	fileType := binary.LittleEndian.Uint32(out[12:16])
	require.EqualValues(t, fileTypeExecute, fileType)

	ncmds := binary.LittleEndian.Uint32(out[16:20])
	require.EqualValues(t, 8, ncmds)
}

func TestSignatureCapacityCoversWholeFile(t *testing.T) {
	m := module(
		ir.Instruction{Op: ir.PushI32, Imm: uint64(uint32(7))},
		ir.Instruction{Op: ir.ReturnI32},
	)
	art, err := Emit(m)
	require.NoError(t, err)

	out, err := Write(art, "")
	require.NoError(t, err)

	// A file that round-trips through Write must be at least as long as
	// LC_CODE_SIGNATURE's own DataOff (the signature is appended last).
	require.Less(t, 0, len(out))
	ncmds := binary.LittleEndian.Uint32(out[16:20])
	off := uint32(binary.Size(machHeader64{}))
	var dataOff, dataSize uint32
	for i := uint32(0); i < ncmds; i++ {
		if binary.LittleEndian.Uint32(out[off:]) == lcCodeSignature {
			dataOff = binary.LittleEndian.Uint32(out[off+8:])
			dataSize = binary.LittleEndian.Uint32(out[off+12:])
		}
		off += binary.LittleEndian.Uint32(out[off+4:])
	}
	require.NotZero(t, dataOff)
	require.GreaterOrEqual(t, len(out), int(dataOff+dataSize))
}

func TestDeterministicUUIDStableForSameInput(t *testing.T) {
	a := deterministicUUID([]byte{1, 2, 3})
	b := deterministicUUID([]byte{1, 2, 3})
	require.Equal(t, a, b)
	c := deterministicUUID([]byte{1, 2, 4})
	require.NotEqual(t, a, c)
}

func TestAdHocSignCodeDirectoryMagic(t *testing.T) {
	sig, err := adHocSign([]byte("hello world"), 0, "")
	require.NoError(t, err)
	magic := binary.BigEndian.Uint32(sig[0:4])
	require.EqualValues(t, csMagicEmbeddedSignature, magic)
	cdMagic := binary.BigEndian.Uint32(sig[20:24])
	require.EqualValues(t, csMagicCodeDirectory, cdMagic)
}
