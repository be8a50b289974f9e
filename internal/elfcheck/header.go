package elfcheck

import (
	"github.com/kyleseneker/cgcefverify/internal/cgcef"
	"github.com/kyleseneker/cgcefverify/internal/diag"
)

// checkHeader validates the primary header fields. Table offsets and counts
// are left to the table walkers.
func (r *run) checkHeader(h cgcef.Header) {
	if h.Ehsize != cgcef.HeaderSize {
		r.fatalf(diag.StageHeader, "invalid header size %d, expected %d", h.Ehsize, cgcef.HeaderSize)
	}

	switch h.Type {
	case cgcef.TypeExec:
	default:
		r.fatalf(diag.StageHeader, "did not identify as an executable (type %s)", h.Type)
	}

	switch h.Machine {
	case cgcef.Machine386:
	default:
		r.fatalf(diag.StageHeader, "did not identify as i386 (machine %s)", h.Machine)
	}

	if h.Version != cgcef.CurrentVersion {
		r.fatalf(diag.StageHeader, "did not identify as a version 1 binary (e_version %d)", h.Version)
	}

	if bad := r.pol.UnsupportedFlags(h.Flags); bad != 0 {
		r.fatalf(diag.StageHeader, "contained unsupported flag %#x", bad)
	}

	if h.Shnum != 0 && h.Shentsize != cgcef.SectHeaderSize {
		r.fatalf(diag.StageHeader, "bad e_shentsize %d, expected %d", h.Shentsize, cgcef.SectHeaderSize)
	}
}
