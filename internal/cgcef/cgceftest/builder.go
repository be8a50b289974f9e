// Package cgceftest builds CGCEF images in memory for tests.
package cgceftest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/kyleseneker/cgcefverify/internal/cgcef"
)

type segment struct {
	prog    cgcef.Prog
	payload []byte
}

// Builder assembles a CGCEF32 image: header, program header table, segment
// payloads, then an optional section header table.
type Builder struct {
	hdr      []byte
	segments []segment
	shnum    int
}

// New returns a builder for a well-formed executable with no program or
// section headers.
func New() *Builder {
	hdr := make([]byte, cgcef.HeaderSize)
	copy(hdr[0:4], cgcef.Magic[:])
	hdr[cgcef.EI_CLASS] = byte(cgcef.Class32)
	hdr[cgcef.EI_DATA] = byte(cgcef.Data2LSB)
	hdr[cgcef.EI_VERSION] = cgcef.CurrentVersion
	hdr[cgcef.EI_OSABI] = byte(cgcef.OSABICGCOS)
	hdr[cgcef.EI_ABIVERSION] = cgcef.ABIVersionV1
	le := binary.LittleEndian
	le.PutUint16(hdr[16:18], uint16(cgcef.TypeExec))
	le.PutUint16(hdr[18:20], uint16(cgcef.Machine386))
	le.PutUint32(hdr[20:24], cgcef.CurrentVersion)
	le.PutUint32(hdr[24:28], 0x08048000)
	le.PutUint16(hdr[40:42], cgcef.HeaderSize)
	le.PutUint16(hdr[42:44], cgcef.ProgHeaderSize)
	le.PutUint16(hdr[46:48], cgcef.SectHeaderSize)
	return &Builder{hdr: hdr}
}

// AddProg appends a program header entry exactly as given.
func (b *Builder) AddProg(p cgcef.Prog) *Builder {
	b.segments = append(b.segments, segment{prog: p})
	return b
}

// AddSegment appends a program header of type t whose contents are payload.
// The file offset and size are filled in when the image is assembled.
func (b *Builder) AddSegment(t cgcef.ProgType, payload []byte) *Builder {
	n := uint32(len(payload))
	b.segments = append(b.segments, segment{
		prog: cgcef.Prog{
			Type:   t,
			Vaddr:  0x08048000,
			Paddr:  0x08048000,
			Filesz: n,
			Memsz:  n,
			Flags:  cgcef.PF_R | cgcef.PF_X,
			Align:  0x1000,
		},
		payload: payload,
	})
	return b
}

// WithSectionHeaders appends n zeroed section header entries.
func (b *Builder) WithSectionHeaders(n int) *Builder {
	b.shnum = n
	return b
}

// Bytes assembles the image.
func (b *Builder) Bytes() []byte {
	le := binary.LittleEndian
	out := append([]byte(nil), b.hdr...)

	if len(b.segments) > 0 {
		le.PutUint32(out[28:32], cgcef.HeaderSize)
		le.PutUint16(out[44:46], uint16(len(b.segments)))
	}

	dataOff := cgcef.HeaderSize + len(b.segments)*cgcef.ProgHeaderSize
	var payloads []byte
	for _, s := range b.segments {
		p := s.prog
		if s.payload != nil {
			p.Off = uint32(dataOff + len(payloads))
			payloads = append(payloads, s.payload...)
		}
		out = append(out, EncodeProg(p)...)
	}
	out = append(out, payloads...)

	if b.shnum > 0 {
		le.PutUint32(out[32:36], uint32(len(out)))
		le.PutUint16(out[48:50], uint16(b.shnum))
		out = append(out, make([]byte, b.shnum*cgcef.SectHeaderSize)...)
	}
	return out
}

// EncodeProg serializes a program header entry.
func EncodeProg(p cgcef.Prog) []byte {
	le := binary.LittleEndian
	e := make([]byte, cgcef.ProgHeaderSize)
	le.PutUint32(e[0:4], uint32(p.Type))
	le.PutUint32(e[4:8], p.Off)
	le.PutUint32(e[8:12], p.Vaddr)
	le.PutUint32(e[12:16], p.Paddr)
	le.PutUint32(e[16:20], p.Filesz)
	le.PutUint32(e[20:24], p.Memsz)
	le.PutUint32(e[24:28], uint32(p.Flags))
	le.PutUint32(e[28:32], p.Align)
	return e
}

// Patch returns a copy of data with vals written starting at off.
func Patch(data []byte, off int, vals ...byte) []byte {
	out := append([]byte(nil), data...)
	copy(out[off:], vals)
	return out
}

// PatchUint16 returns a copy of data with v written little-endian at off.
func PatchUint16(data []byte, off int, v uint16) []byte {
	out := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(out[off:], v)
	return out
}

// PatchUint32 returns a copy of data with v written little-endian at off.
func PatchUint32(data []byte, off int, v uint32) []byte {
	out := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(out[off:], v)
	return out
}

// Write stores data under a fresh temporary directory and returns its path.
func Write(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ELF returns a minimal stock ELF executable header of the given class
// (1 for 32-bit, 2 for 64-bit).
func ELF(class byte) []byte {
	size := 52
	if class == 2 {
		size = 64
	}
	hdr := make([]byte, size)
	copy(hdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	hdr[4] = class
	hdr[5] = 1
	hdr[6] = 1
	binary.LittleEndian.PutUint16(hdr[16:18], 2)
	if class == 2 {
		binary.LittleEndian.PutUint16(hdr[18:20], 62)
	} else {
		binary.LittleEndian.PutUint16(hdr[18:20], 3)
	}
	binary.LittleEndian.PutUint32(hdr[20:24], 1)
	return hdr
}
