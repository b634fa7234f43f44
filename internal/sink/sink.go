package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxNameLen bounds basenames and resolved output file names.
const MaxNameLen = 1024

// ErrNameTooLong reports a basename or resolved output name over
// MaxNameLen bytes.
var ErrNameTooLong = errors.New("sink: file name too long")

// Protocol selects the serialization of a sink.
type Protocol int

const (
	// ProtocolASCII writes human-readable text records.
	ProtocolASCII Protocol = iota

	// ProtocolBinary writes raw binary records.
	ProtocolBinary
)

func (p Protocol) String() string {
	switch p {
	case ProtocolASCII:
		return "ascii"
	case ProtocolBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Role identifies one output category.
type Role int

const (
	RoleFrames Role = iota
	RoleDescriptors
	RoleMeta
	RoleScaleSpace
	RolePlot

	numRoles
)

func (r Role) String() string {
	switch r {
	case RoleFrames:
		return "frames"
	case RoleDescriptors:
		return "descriptors"
	case RoleMeta:
		return "meta"
	case RoleScaleSpace:
		return "gss"
	case RolePlot:
		return "plot"
	default:
		return "unknown"
	}
}

// Meta is one configured output destination plus its per-image state.
type Meta struct {
	// Active gates all writes: an inactive sink is never opened.
	Active bool

	// Pattern is the naming pattern; '%' expands to the basename.
	Pattern string

	// Protocol selects text or binary serialization.
	Protocol Protocol

	// Name is the most recently resolved output path, empty until the
	// first successful Open.
	Name string

	opened bool
	file   *os.File
}

// Parse configures a sink from a command-line argument.
//
// An empty argument activates the sink with defaultPattern. Otherwise the
// argument is an optional "ascii://" or "binary://" prefix followed by a
// pattern.
func Parse(defaultPattern, arg string) (*Meta, error) {
	m := &Meta{Active: true, Pattern: defaultPattern, Protocol: ProtocolASCII}

	switch {
	case strings.HasPrefix(arg, "ascii://"):
		m.Protocol = ProtocolASCII
		arg = strings.TrimPrefix(arg, "ascii://")
	case strings.HasPrefix(arg, "binary://"):
		m.Protocol = ProtocolBinary
		arg = strings.TrimPrefix(arg, "binary://")
	}

	if arg != "" {
		m.Pattern = arg
	}
	if m.Pattern == "" {
		return nil, fmt.Errorf("sink: empty naming pattern")
	}
	return m, nil
}

// Resolve expands the sink's pattern against a basename.
func (m *Meta) Resolve(basename string) (string, error) {
	var name string
	if strings.Contains(m.Pattern, "%") {
		name = strings.ReplaceAll(m.Pattern, "%", basename)
	} else {
		name = m.Pattern
	}
	if len(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// Open resolves the output name for basename and marks the sink open.
// No-op for an inactive sink. A previously open handle is closed first,
// so one Meta can move through a sequence of files.
//
// The file itself is created (or truncated) on the first Writer call: a
// sink that is opened but never written leaves nothing on disk.
func (m *Meta) Open(basename string) error {
	if !m.Active {
		return nil
	}
	if err := m.Close(); err != nil {
		return err
	}

	name, err := m.Resolve(basename)
	if err != nil {
		return err
	}
	m.Name = name
	m.opened = true
	return nil
}

// Writer returns the sink's file handle, creating the file on first use.
func (m *Meta) Writer() (*os.File, error) {
	if !m.opened {
		return nil, fmt.Errorf("sink: '%s' sink is not open", m.Pattern)
	}
	if m.file == nil {
		f, err := os.Create(m.Name)
		if err != nil {
			return nil, fmt.Errorf("could not open '%s' for writing: %w", m.Name, err)
		}
		m.file = f
	}
	return m.file, nil
}

// Close releases the open handle if any. Idempotent.
func (m *Meta) Close() error {
	m.opened = false
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	if err != nil {
		return fmt.Errorf("could not close '%s': %w", m.Name, err)
	}
	return nil
}

// Set groups the sinks of one run, keyed by role, so lifecycle operations
// can iterate them uniformly.
type Set [numRoles]*Meta

// NewSet builds a Set with every role present but inactive.
func NewSet() *Set {
	var s Set
	for i := range s {
		s[i] = &Meta{}
	}
	return &s
}

// Get returns the sink for a role.
func (s *Set) Get(r Role) *Meta { return s[r] }

// Put replaces the sink for a role.
func (s *Set) Put(r Role, m *Meta) { s[r] = m }

// CloseAll closes every sink, keeping the first error. Safe to call on
// any mix of open, closed, and inactive sinks.
func (s *Set) CloseAll() error {
	var first error
	for _, m := range s {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Basename strips the directory and one extension from an input path.
func Basename(path string) (string, error) {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if len(base) > MaxNameLen {
		return "", fmt.Errorf("basename of '%s': %w", path, ErrNameTooLong)
	}
	return base, nil
}
