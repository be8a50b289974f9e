package cgcef

import (
	"encoding/binary"
	"fmt"

	"github.com/kyleseneker/cgcefverify/internal/image"
)

// Ident is the identification block at the start of a CGCEF file.
type Ident struct {
	Magic      [4]byte
	Class      Class
	Data       Data
	Version    uint8
	OSABI      OSABI
	ABIVersion uint8
}

// HasMagic reports whether the block starts with the CGCEF signature.
func (id Ident) HasMagic() bool {
	return id.Magic == Magic
}

// Header is the primary header that follows the identification block.
// Fields are always decoded with the CGCEF32 little-endian layout.
type Header struct {
	Type      Type    // Object file type.
	Machine   Machine // Target architecture.
	Version   uint32  // Format version, repeated from the ident block.
	Entry     uint32  // Entry point virtual address.
	Phoff     uint32  // Program header table file offset.
	Shoff     uint32  // Section header table file offset.
	Flags     uint32  // Processor-specific flags.
	Ehsize    uint16  // Size of this header.
	Phentsize uint16  // Size of one program header entry.
	Phnum     uint16  // Number of program header entries.
	Shentsize uint16  // Size of one section header entry.
	Shnum     uint16  // Number of section header entries.
	Shstrndx  uint16  // Section name string table index.
}

// Prog is one program header table entry.
type Prog struct {
	Type   ProgType
	Off    uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  ProgFlag
	Align  uint32
}

// DecodeIdent reads the identification block from img.
func DecodeIdent(img *image.Image) (Ident, error) {
	b, err := img.Bytes(0, EI_NIDENT)
	if err != nil {
		return Ident{}, fmt.Errorf("identification block: %w", err)
	}
	var id Ident
	copy(id.Magic[:], b[EI_MAG0:EI_MAG0+4])
	id.Class = Class(b[EI_CLASS])
	id.Data = Data(b[EI_DATA])
	id.Version = b[EI_VERSION]
	id.OSABI = OSABI(b[EI_OSABI])
	id.ABIVersion = b[EI_ABIVERSION]
	return id, nil
}

// DecodeHeader reads the primary header from img.
func DecodeHeader(img *image.Image) (Header, error) {
	b, err := img.Bytes(0, HeaderSize)
	if err != nil {
		return Header{}, fmt.Errorf("primary header: %w", err)
	}
	le := binary.LittleEndian
	return Header{
		Type:      Type(le.Uint16(b[16:18])),
		Machine:   Machine(le.Uint16(b[18:20])),
		Version:   le.Uint32(b[20:24]),
		Entry:     le.Uint32(b[24:28]),
		Phoff:     le.Uint32(b[28:32]),
		Shoff:     le.Uint32(b[32:36]),
		Flags:     le.Uint32(b[36:40]),
		Ehsize:    le.Uint16(b[40:42]),
		Phentsize: le.Uint16(b[42:44]),
		Phnum:     le.Uint16(b[44:46]),
		Shentsize: le.Uint16(b[46:48]),
		Shnum:     le.Uint16(b[48:50]),
		Shstrndx:  le.Uint16(b[50:52]),
	}, nil
}

// DecodeProg reads the program header entry at off.
func DecodeProg(img *image.Image, off uint64) (Prog, error) {
	b, err := img.Bytes(off, ProgHeaderSize)
	if err != nil {
		return Prog{}, fmt.Errorf("program header at %#x: %w", off, err)
	}
	le := binary.LittleEndian
	return Prog{
		Type:   ProgType(le.Uint32(b[0:4])),
		Off:    le.Uint32(b[4:8]),
		Vaddr:  le.Uint32(b[8:12]),
		Paddr:  le.Uint32(b[12:16]),
		Filesz: le.Uint32(b[16:20]),
		Memsz:  le.Uint32(b[20:24]),
		Flags:  ProgFlag(le.Uint32(b[24:28])),
		Align:  le.Uint32(b[28:32]),
	}, nil
}
