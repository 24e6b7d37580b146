package native

import (
	"crypto/sha256"
	"encoding/binary"
)

// Ad hoc Mach-O code signing: macOS's kernel code-signing enforcement
// refuses to exec an arm64 binary with no signature at all (unlike
// x86_64, where an unsigned binary merely runs unverified), so every
// binary native.Write produces needs at least the minimal "ad hoc"
// signature — a CodeDirectory with no identity certificate behind it,
// the same kind `codesign -s -` or a bare `ldid -S` attaches.
//
// No struct layout for this in the retrieval pack has a concrete body
// (cc183fcb_blacktop-go-macho's CodeSignature type is a wrapper around
// an external types package never shown), so this is built from the
// public CS_SuperBlob/CS_CodeDirectory wire format directly, hashing
// with the standard library's crypto/sha256 — no third-party signing or
// hashing library appears anywhere in the retrieval pack.
const (
	csMagicEmbeddedSignature = 0xfade0cc0
	csMagicCodeDirectory     = 0xfade0c02

	cdVersionBaseline = 0x20000
	cdHashTypeSHA256  = 2
	cdHashSizeSHA256  = 32
	cdPageSizeLog2    = 12 // signing pages are always 4096 bytes, independent of the Mach-O VM page size
	cdPageSize        = 1 << cdPageSizeLog2

	cdHeaderSize = 44 // CS_CodeDirectory through spare2, version 0x20000 has no fields past this

	// defaultSignIdent is used when Write's caller doesn't override it via
	// PRIMEC_SIGN_IDENTIFIER.
	defaultSignIdent = "primec-native"
)

func codeSlotCount(n uint64) uint64 {
	return (n + cdPageSize - 1) / cdPageSize
}

func nulTerminated(ident string) string {
	if ident == "" {
		ident = defaultSignIdent
	}
	return ident + "\x00"
}

// signatureCapacity returns the exact byte size the SuperBlob occupies
// for a code region of signedLen bytes, so the Mach-O layout can reserve
// LC_CODE_SIGNATURE's DataSize before the hashes themselves are computed
// (the capacity depends only on signedLen and the identifier's length,
// not on the hash values).
func signatureCapacity(signedLen uint64, ident string) uint64 {
	nSlots := codeSlotCount(signedLen)
	cdLen := uint64(cdHeaderSize) + uint64(len(nulTerminated(ident))) + nSlots*cdHashSizeSHA256
	const superBlobHeader = 12
	const blobIndexSize = 8
	return superBlobHeader + blobIndexSize + cdLen
}

// adHocSign builds the SuperBlob covering data (everything in the file
// before LC_CODE_SIGNATURE's own bytes), at file offset signOff, under
// the given signing identifier (PRIMEC_SIGN_IDENTIFIER, or
// defaultSignIdent if empty).
func adHocSign(data []byte, signOff uint64, ident string) ([]byte, error) {
	signIdent := nulTerminated(ident)
	nSlots := codeSlotCount(uint64(len(data)))
	hashes := make([]byte, nSlots*cdHashSizeSHA256)
	for i := uint64(0); i < nSlots; i++ {
		start := i * cdPageSize
		end := start + cdPageSize
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		sum := sha256.Sum256(data[start:end])
		copy(hashes[i*cdHashSizeSHA256:], sum[:])
	}

	identOffset := uint32(cdHeaderSize)
	hashOffset := identOffset + uint32(len(signIdent))
	cdLen := hashOffset + uint32(len(hashes))

	cd := make([]byte, cdLen)
	putBE32(cd[0:], csMagicCodeDirectory)
	putBE32(cd[4:], cdLen)
	putBE32(cd[8:], cdVersionBaseline)
	putBE32(cd[12:], 0) // flags: none (plain ad hoc)
	putBE32(cd[16:], hashOffset)
	putBE32(cd[20:], identOffset)
	putBE32(cd[24:], 0) // nSpecialSlots
	putBE32(cd[28:], uint32(nSlots))
	putBE32(cd[32:], uint32(len(data))) // codeLimit
	cd[36] = cdHashSizeSHA256
	cd[37] = cdHashTypeSHA256
	cd[38] = 0 // platform
	cd[39] = cdPageSizeLog2
	putBE32(cd[40:], 0) // spare2
	copy(cd[identOffset:], signIdent)
	copy(cd[hashOffset:], hashes)

	const superBlobHeader = 12
	const blobIndexSize = 8
	total := superBlobHeader + blobIndexSize + len(cd)
	out := make([]byte, total)
	putBE32(out[0:], csMagicEmbeddedSignature)
	putBE32(out[4:], uint32(total))
	putBE32(out[8:], 1) // one blob: the CodeDirectory
	putBE32(out[12:], 0) // slot index: CSSLOT_CODEDIRECTORY
	putBE32(out[16:], superBlobHeader+blobIndexSize)
	copy(out[superBlobHeader+blobIndexSize:], cd)

	_ = signOff // offset is informational: the blob's own content is offset-independent
	return out, nil
}

func putBE32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// deterministicUUID derives a stable LC_UUID value from the code stream,
// so two builds of the same program produce byte-identical output
// instead of depending on an unavailable time/random source (Emit/Write
// cannot call into time or crypto/rand and stay reproducible, since this
// backend's own contract (§8) is that native output is a deterministic
// function of the IR).
func deterministicUUID(code []byte) []byte {
	sum := sha256.Sum256(code)
	uuid := make([]byte, 16)
	copy(uuid, sum[:16])
	uuid[6] = (uuid[6] & 0x0f) | 0x30 // version 3 (name-based, closest fit for a hash-derived id)
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // RFC 4122 variant
	return uuid
}
