// Package image loads a candidate file into memory and provides bounds-checked,
// offset-based access to its bytes.
package image

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/kyleseneker/cgcefverify/internal/diag"
	"github.com/kyleseneker/cgcefverify/internal/log"
)

// MinSize is the smallest image that can hold an identification block.
const MinSize = 16

// ErrOutOfRange is returned by reads that fall outside the image, including
// reads whose offset plus length overflows.
var ErrOutOfRange = errors.New("read out of range")

// Image is the immutable byte content of one candidate file.
type Image struct {
	path string
	data []byte
}

// Load reads path from fsys in full. Missing, unopenable, and empty files fail
// with diag.KindUnreadable; files shorter than MinSize fail with
// diag.KindTruncated.
func Load(fsys afero.Fs, path string) (*Image, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, &diag.Error{Stage: diag.StageLoad, Kind: diag.KindUnreadable, Path: path,
			Err:  errors.Wrap(err, "reading input"),
			Hint: "check that the file exists and is readable"}
	}
	if len(data) == 0 {
		return nil, &diag.Error{Stage: diag.StageLoad, Kind: diag.KindUnreadable, Path: path,
			Err:  errors.New("file is empty"),
			Hint: "an executable must contain at least an identification block"}
	}
	if len(data) < MinSize {
		return nil, &diag.Error{Stage: diag.StageLoad, Kind: diag.KindTruncated, Path: path,
			Err:  errors.Errorf("file is %d bytes, identification block needs %d", len(data), MinSize),
			Hint: "the file is too short to be an executable"}
	}
	log.WithField("path", path).Debugf("loaded %s", humanize.Bytes(uint64(len(data))))
	return &Image{path: path, data: data}, nil
}

// New wraps data as an image without touching the file system.
func New(path string, data []byte) *Image {
	return &Image{path: path, data: data}
}

// Path returns the path the image was loaded from.
func (img *Image) Path() string { return img.path }

// Len returns the image size in bytes.
func (img *Image) Len() uint64 { return uint64(len(img.data)) }

// Contains reports whether [off, off+n) lies inside the image.
func (img *Image) Contains(off, n uint64) bool {
	end, ok := Add(off, n)
	return ok && end <= img.Len()
}

// Bytes returns the n bytes at off. The returned slice aliases the image and
// must not be modified.
func (img *Image) Bytes(off, n uint64) ([]byte, error) {
	if !img.Contains(off, n) {
		return nil, fmt.Errorf("%w: %d bytes at offset %#x in %d-byte image", ErrOutOfRange, n, off, img.Len())
	}
	return img.data[off : off+n : off+n], nil
}

// Add returns a+b and whether the sum did not overflow.
func Add(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// Mul returns a*b and whether the product did not overflow.
func Mul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}
