// Package policy holds the tunable parts of CGCEF verification: which
// processor flags are allowed and how severe each class of structural
// anomaly is.
package policy

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/kyleseneker/cgcefverify/internal/diag"
)

// Severity is a diag.Severity that can be read from YAML.
type Severity diag.Severity

// UnmarshalYAML accepts "advisory" or "fatal".
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := diag.ParseSeverity(value.Value)
	if err != nil {
		return err
	}
	*s = Severity(parsed)
	return nil
}

// MarshalYAML writes the severity name.
func (s Severity) MarshalYAML() (interface{}, error) {
	return diag.Severity(s).String(), nil
}

// Flags is an e_flags mask that accepts decimal or 0x-prefixed YAML scalars.
type Flags uint32

// UnmarshalYAML parses the mask with base prefix detection.
func (f *Flags) UnmarshalYAML(value *yaml.Node) error {
	v, err := strconv.ParseUint(strings.TrimSpace(value.Value), 0, 32)
	if err != nil {
		return fmt.Errorf("allowed_flags: %w", err)
	}
	*f = Flags(v)
	return nil
}

// MarshalYAML writes the mask in hex.
func (f Flags) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("%#x", uint32(f)), nil
}

// Policy decides what a verifier run treats as fatal.
type Policy struct {
	// AllowedFlags is the set of e_flags bits that may be set.
	AllowedFlags Flags `yaml:"allowed_flags"`
	// ProgramHeaders is the severity of unrecognized or ill-sized segments.
	ProgramHeaders Severity `yaml:"program_headers"`
	// GNUStack is the severity of a PT_GNU_STACK segment.
	GNUStack Severity `yaml:"gnu_stack"`
	// SectionHeaders is the severity of optional section headers.
	SectionHeaders Severity `yaml:"section_headers"`
}

// Default returns the current CGCEF policy: no processor flags, and every
// program and section header anomaly advisory.
func Default() Policy {
	return Policy{
		AllowedFlags:   0,
		ProgramHeaders: Severity(diag.Advisory),
		GNUStack:       Severity(diag.Advisory),
		SectionHeaders: Severity(diag.Advisory),
	}
}

// UnsupportedFlags returns the e_flags bits outside the allow-set.
func (p Policy) UnsupportedFlags(flags uint32) uint32 {
	return flags &^ uint32(p.AllowedFlags)
}

// ProgramHeaderSeverity is the severity for unrecognized segment types and
// segment size anomalies.
func (p Policy) ProgramHeaderSeverity() diag.Severity {
	return diag.Severity(p.ProgramHeaders)
}

// GNUStackSeverity is the severity for PT_GNU_STACK segments.
func (p Policy) GNUStackSeverity() diag.Severity {
	return diag.Severity(p.GNUStack)
}

// SectionHeaderSeverity is the severity for optional section headers.
func (p Policy) SectionHeaderSeverity() diag.Severity {
	return diag.Severity(p.SectionHeaders)
}

// Load reads a YAML policy file from fsys. Keys missing from the file keep
// their Default values.
func Load(fsys afero.Fs, path string) (Policy, error) {
	p := Default()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return p, &diag.Error{Stage: diag.StagePolicy, Kind: diag.KindInvalidPolicy, Path: path,
			Err: errors.Wrap(err, "reading policy")}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Default(), &diag.Error{Stage: diag.StagePolicy, Kind: diag.KindInvalidPolicy, Path: path,
			Err:  errors.Wrap(err, "parsing policy"),
			Hint: "expected keys: allowed_flags, program_headers, gnu_stack, section_headers"}
	}
	return p, nil
}

// Marshal renders the policy as YAML.
func (p Policy) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
