package elfcheck

import (
	"github.com/kyleseneker/cgcefverify/internal/cgcef"
	"github.com/kyleseneker/cgcefverify/internal/diag"
	"github.com/kyleseneker/cgcefverify/internal/image"
	"github.com/kyleseneker/cgcefverify/internal/log"
)

// segmentKind is the policy classification of a program header type.
type segmentKind int

const (
	segmentRecognized segmentKind = iota
	segmentStack
	segmentUnknown
)

// classifySegment maps a p_type onto the segment kinds the loader accepts.
func classifySegment(t cgcef.ProgType) segmentKind {
	switch t {
	case cgcef.PT_NULL, cgcef.PT_LOAD, cgcef.PT_PHDR, cgcef.PT_CGCPOV2:
		return segmentRecognized
	case cgcef.PT_GNU_STACK:
		return segmentStack
	default:
		return segmentUnknown
	}
}

// walkProgramHeaders checks every declared program header entry. A table
// with the wrong entry size or one that does not fit in the file is fatal
// and ends the walk; per-entry problems are reported at policy severity.
func (r *run) walkProgramHeaders(h cgcef.Header) {
	if h.Phnum == 0 {
		log.WithField("path", r.img.Path()).Debugf("no program headers")
		return
	}
	if h.Phentsize != cgcef.ProgHeaderSize {
		r.fatalf(diag.StageProgram, "Invalid program header size %d, expected %d", h.Phentsize, cgcef.ProgHeaderSize)
		return
	}

	size, okSize := image.Mul(uint64(h.Phnum), cgcef.ProgHeaderSize)
	if !okSize || !r.img.Contains(uint64(h.Phoff), size) {
		r.fatalf(diag.StageProgram, "truncated program header table: %d entries at offset %#x exceed %d-byte file",
			h.Phnum, h.Phoff, r.img.Len())
		return
	}

	for i := 0; i < int(h.Phnum); i++ {
		off := uint64(h.Phoff) + uint64(i)*cgcef.ProgHeaderSize
		p, err := cgcef.DecodeProg(r.img, off)
		if err != nil {
			r.fatalf(diag.StageProgram, "truncated program header table: %v", err)
			return
		}
		r.checkSegment(i, p)
	}
}

func (r *run) checkSegment(i int, p cgcef.Prog) {
	sev := r.pol.ProgramHeaderSeverity()

	switch classifySegment(p.Type) {
	case segmentRecognized:
	case segmentStack:
		r.report(diag.StageProgram, r.pol.GNUStackSeverity(),
			"PT_GNU_STACK program header was detected. These will be considered invalid prior to CQE.")
	case segmentUnknown:
		r.report(diag.StageProgram, sev, "Invalid program header #%d %s", i, p.Type)
	}

	if p.Type == cgcef.PT_NULL {
		return
	}
	if !r.img.Contains(uint64(p.Off), uint64(p.Filesz)) {
		r.report(diag.StageProgram, sev, "program header #%d extends past end of file (offset %#x, size %#x, file %d bytes)",
			i, p.Off, p.Filesz, r.img.Len())
	}
	if p.Memsz < p.Filesz {
		r.report(diag.StageProgram, sev, "program header #%d has p_memsz %#x smaller than p_filesz %#x",
			i, p.Memsz, p.Filesz)
	}
}
