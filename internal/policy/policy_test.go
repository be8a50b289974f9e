package policy

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleseneker/cgcefverify/internal/diag"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, diag.Advisory, p.ProgramHeaderSeverity())
	assert.Equal(t, diag.Advisory, p.GNUStackSeverity())
	assert.Equal(t, diag.Advisory, p.SectionHeaderSeverity())
	assert.Equal(t, uint32(0), p.UnsupportedFlags(0))
	assert.Equal(t, uint32(0x81), p.UnsupportedFlags(0x81))
}

func TestUnsupportedFlags(t *testing.T) {
	p := Policy{AllowedFlags: 0x3}
	assert.Equal(t, uint32(0), p.UnsupportedFlags(0x1))
	assert.Equal(t, uint32(0x4), p.UnsupportedFlags(0x7))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		noFile  bool
		wantErr string
		check   func(t *testing.T, p Policy)
	}{
		{
			name: "empty file keeps defaults",
			yaml: "",
			check: func(t *testing.T, p Policy) {
				t.Helper()
				assert.Equal(t, Default(), p)
			},
		},
		{
			name: "gnu stack promoted to fatal",
			yaml: "gnu_stack: fatal\n",
			check: func(t *testing.T, p Policy) {
				t.Helper()
				assert.Equal(t, diag.Fatal, p.GNUStackSeverity())
				assert.Equal(t, diag.Advisory, p.ProgramHeaderSeverity())
			},
		},
		{
			name: "all keys",
			yaml: "allowed_flags: 0x10\nprogram_headers: fatal\ngnu_stack: advisory\nsection_headers: error\n",
			check: func(t *testing.T, p Policy) {
				t.Helper()
				assert.Equal(t, Flags(0x10), p.AllowedFlags)
				assert.Equal(t, diag.Fatal, p.ProgramHeaderSeverity())
				assert.Equal(t, diag.Advisory, p.GNUStackSeverity())
				assert.Equal(t, diag.Fatal, p.SectionHeaderSeverity())
			},
		},
		{
			name:    "bad severity",
			yaml:    "gnu_stack: sometimes\n",
			wantErr: "unknown severity",
		},
		{
			name:    "bad flags",
			yaml:    "allowed_flags: lots\n",
			wantErr: "allowed_flags",
		},
		{
			name:    "unknown key",
			yaml:    "strict: true\n",
			wantErr: "parsing policy",
		},
		{
			name:    "missing file",
			noFile:  true,
			wantErr: "reading policy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			path := "/etc/cgcef/policy.yaml"
			if !tt.noFile {
				require.NoError(t, afero.WriteFile(fsys, path, []byte(tt.yaml), 0o644))
			}

			p, err := Load(fsys, path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, diag.IsKind(err, diag.KindInvalidPolicy))
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p := Default()
	p.AllowedFlags = 0x4
	p.GNUStack = Severity(diag.Fatal)

	out, err := p.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "allowed_flags:")
	assert.Contains(t, string(out), "0x4")
	assert.Contains(t, string(out), "gnu_stack: fatal")

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "p.yaml", out, 0o644))
	got, err := Load(fsys, "p.yaml")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
