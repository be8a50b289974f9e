// Package cgcef defines the on-disk layout of CGC Executable Format (CGCEF)
// files: the identification block, the 32-bit little-endian primary header,
// and program header entries.
package cgcef

import "fmt"

// Identification block layout.
const (
	EI_MAG0       = 0
	EI_CLASS      = 4
	EI_DATA       = 5
	EI_VERSION    = 6
	EI_OSABI      = 7
	EI_ABIVERSION = 8
	EI_NIDENT     = 16
)

// Magic is the four-byte signature at the start of every CGCEF file.
var Magic = [4]byte{0x7f, 'C', 'G', 'C'}

// Structure sizes for the only supported class.
const (
	HeaderSize     = 52
	ProgHeaderSize = 32
	SectHeaderSize = 40
	ABIVersionV1   = 1
	CurrentVersion = 1
)

// Class is the EI_CLASS identification byte.
type Class uint8

const (
	ClassNone Class = 0
	Class32   Class = 1
	Class64   Class = 2
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "CLASSNONE"
	case Class32:
		return "CLASS32"
	case Class64:
		return "CLASS64"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Data is the EI_DATA encoding byte.
type Data uint8

const (
	DataNone Data = 0
	Data2LSB Data = 1
	Data2MSB Data = 2
)

func (d Data) String() string {
	switch d {
	case DataNone:
		return "DATANONE"
	case Data2LSB:
		return "DATA2LSB"
	case Data2MSB:
		return "DATA2MSB"
	}
	return fmt.Sprintf("data(%d)", uint8(d))
}

// OSABI is the EI_OSABI tag byte.
type OSABI uint8

const (
	OSABINone  OSABI = 0
	OSABILinux OSABI = 3
	OSABICGCOS OSABI = 0x43
)

func (o OSABI) String() string {
	switch o {
	case OSABINone:
		return "OSABI_NONE"
	case OSABILinux:
		return "OSABI_LINUX"
	case OSABICGCOS:
		return "OSABI_CGCOS"
	}
	return fmt.Sprintf("osabi(%#x)", uint8(o))
}

// Type is the e_type object file type.
type Type uint16

const (
	TypeNone Type = 0
	TypeRel  Type = 1
	TypeExec Type = 2
	TypeDyn  Type = 3
	TypeCore Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "ET_NONE"
	case TypeRel:
		return "ET_REL"
	case TypeExec:
		return "ET_EXEC"
	case TypeDyn:
		return "ET_DYN"
	case TypeCore:
		return "ET_CORE"
	}
	return fmt.Sprintf("type(%#x)", uint16(t))
}

// Machine is the e_machine architecture identifier.
type Machine uint16

const (
	MachineNone Machine = 0
	Machine386  Machine = 3
	Machine68K  Machine = 4
	MachineARM  Machine = 40
	MachineAMD  Machine = 62
)

func (m Machine) String() string {
	switch m {
	case MachineNone:
		return "EM_NONE"
	case Machine386:
		return "EM_386"
	case Machine68K:
		return "EM_68K"
	case MachineARM:
		return "EM_ARM"
	case MachineAMD:
		return "EM_X86_64"
	}
	return fmt.Sprintf("machine(%d)", uint16(m))
}

// ProgType is the p_type of a program header entry.
type ProgType uint32

const (
	PT_NULL      ProgType = 0
	PT_LOAD      ProgType = 1
	PT_DYNAMIC   ProgType = 2
	PT_INTERP    ProgType = 3
	PT_NOTE      ProgType = 4
	PT_PHDR      ProgType = 6
	PT_CGCPOV2   ProgType = 0x6ccccccc
	PT_GNU_STACK ProgType = 0x6474e551
)

func (p ProgType) String() string {
	switch p {
	case PT_NULL:
		return "PT_NULL"
	case PT_LOAD:
		return "PT_LOAD"
	case PT_DYNAMIC:
		return "PT_DYNAMIC"
	case PT_INTERP:
		return "PT_INTERP"
	case PT_NOTE:
		return "PT_NOTE"
	case PT_PHDR:
		return "PT_PHDR"
	case PT_CGCPOV2:
		return "PT_CGCPOV2"
	case PT_GNU_STACK:
		return "PT_GNU_STACK"
	}
	return fmt.Sprintf("%#x", uint32(p))
}

// ProgFlag is the p_flags permission bitfield.
type ProgFlag uint32

const (
	PF_X ProgFlag = 0x1
	PF_W ProgFlag = 0x2
	PF_R ProgFlag = 0x4
)

func (f ProgFlag) String() string {
	b := []byte("---")
	if f&PF_R != 0 {
		b[0] = 'r'
	}
	if f&PF_W != 0 {
		b[1] = 'w'
	}
	if f&PF_X != 0 {
		b[2] = 'x'
	}
	if rest := f &^ (PF_R | PF_W | PF_X); rest != 0 {
		return fmt.Sprintf("%s+%#x", b, uint32(rest))
	}
	return string(b)
}
