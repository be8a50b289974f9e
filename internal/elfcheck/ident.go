package elfcheck

import (
	"fmt"
	"strings"

	"github.com/kyleseneker/cgcefverify/internal/cgcef"
	"github.com/kyleseneker/cgcefverify/internal/diag"
)

// checkIdent validates the identification block. It returns false when the
// block is missing or the magic is wrong, since nothing after it can be
// interpreted.
func (r *run) checkIdent() bool {
	id, err := cgcef.DecodeIdent(r.img)
	if err != nil {
		r.fatalf(diag.StageIdent, "short CGCEF identifier: file is %d bytes", r.img.Len())
		return false
	}
	if !id.HasMagic() {
		r.fatalf(diag.StageIdent, "did not identify as a CGC binary (ident %s)", identTag(id.Magic))
		return false
	}

	switch id.Class {
	case cgcef.Class32:
	default:
		r.fatalf(diag.StageIdent, "did not identify as a 32bit binary (unsupported class %s)", id.Class)
	}

	switch id.Data {
	case cgcef.Data2LSB:
	default:
		r.fatalf(diag.StageIdent, "did not identify as a little endian binary (unsupported encoding %s)", id.Data)
	}

	if id.Version != cgcef.CurrentVersion {
		r.fatalf(diag.StageIdent, "unknown CGCEF version %d", id.Version)
	}

	switch id.OSABI {
	case cgcef.OSABICGCOS:
	default:
		r.fatalf(diag.StageIdent, "did not identify as a CGC OS ABI binary (%s)", id.OSABI)
	}

	if id.ABIVersion != cgcef.ABIVersionV1 {
		r.fatalf(diag.StageIdent, "did not identify as a v1 CGC OS ABI binary (abi version %d)", id.ABIVersion)
	}
	return true
}

// identTag renders bytes 1..3 of the magic, escaping anything unprintable.
func identTag(magic [4]byte) string {
	var b strings.Builder
	for _, c := range magic[1:] {
		if c >= 0x20 && c < 0x7f {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "\\x%02x", c)
	}
	return b.String()
}
