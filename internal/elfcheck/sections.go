package elfcheck

import (
	"github.com/kyleseneker/cgcefverify/internal/cgcef"
	"github.com/kyleseneker/cgcefverify/internal/diag"
	"github.com/kyleseneker/cgcefverify/internal/image"
)

// checkSectionHeaders reports optional section headers. The loader ignores
// them, so only their presence and placement are examined.
func (r *run) checkSectionHeaders(h cgcef.Header) {
	if h.Shnum == 0 {
		return
	}
	sev := r.pol.SectionHeaderSeverity()
	r.report(diag.StageSection, sev, "CGC Executable contained optional section headers (%d entries)", h.Shnum)

	if h.Shentsize != cgcef.SectHeaderSize {
		return
	}
	size, _ := image.Mul(uint64(h.Shnum), cgcef.SectHeaderSize)
	if !r.img.Contains(uint64(h.Shoff), size) {
		r.report(diag.StageSection, sev, "section header table extends past end of file (%d entries at offset %#x, file %d bytes)",
			h.Shnum, h.Shoff, r.img.Len())
	}
}
