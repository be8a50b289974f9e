package image

import (
	"errors"
	"math"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleseneker/cgcefverify/internal/diag"
)

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/empty", nil, 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/short", []byte{0x7f, 'C', 'G'}, 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/ident", make([]byte, MinSize), 0o644))
	require.NoError(t, fsys.Mkdir("/dir", 0o755))

	tests := []struct {
		name     string
		path     string
		wantKind diag.Kind
		wantLen  uint64
	}{
		{name: "missing", path: "/does/not/exist", wantKind: diag.KindUnreadable},
		{name: "directory", path: "/dir", wantKind: diag.KindUnreadable},
		{name: "empty", path: "/empty", wantKind: diag.KindUnreadable},
		{name: "shorter than ident", path: "/short", wantKind: diag.KindTruncated},
		{name: "exactly ident", path: "/ident", wantLen: MinSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Load(fsys, tt.path)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.True(t, diag.IsKind(err, tt.wantKind), "got %v", err)
				assert.True(t, diag.IsStage(err, diag.StageLoad))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, img.Len())
			assert.Equal(t, tt.path, img.Path())
		})
	}
}

func TestReads(t *testing.T) {
	img := New("mem", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})

	b, err := img.Bytes(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x04, 0x05}, b)
	assert.Equal(t, 3, cap(b))

	tests := []struct {
		name string
		off  uint64
		n    uint64
	}{
		{"past end", 6, 1},
		{"straddles end", 4, 4},
		{"overflowing offset", math.MaxUint64, 2},
		{"overflowing length", 1, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := img.Bytes(tt.off, tt.n)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfRange))
			assert.False(t, img.Contains(tt.off, tt.n))
		})
	}

	empty, err := img.Bytes(6, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestArithmetic(t *testing.T) {
	_, ok := Add(math.MaxUint64, 1)
	assert.False(t, ok)
	sum, ok := Add(40, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), sum)

	_, ok = Mul(math.MaxUint64/2, 3)
	assert.False(t, ok)
	prod, ok := Mul(0xffff, 32)
	assert.True(t, ok)
	assert.Equal(t, uint64(0xffff*32), prod)
	zero, ok := Mul(0, math.MaxUint64)
	assert.True(t, ok)
	assert.Zero(t, zero)
}
