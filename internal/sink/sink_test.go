package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		arg          string
		wantPattern  string
		wantProtocol Protocol
	}{
		{"empty uses default", "", "%.frame", ProtocolASCII},
		{"custom pattern", "out/%.txt", "out/%.txt", ProtocolASCII},
		{"ascii prefix", "ascii://%.frame", "%.frame", ProtocolASCII},
		{"binary prefix", "binary://%.bin", "%.bin", ProtocolBinary},
		{"bare binary prefix uses default", "binary://", "%.frame", ProtocolBinary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse("%.frame", tt.arg)
			require.NoError(t, err)
			assert.True(t, m.Active)
			assert.Equal(t, tt.wantPattern, m.Pattern)
			assert.Equal(t, tt.wantProtocol, m.Protocol)
		})
	}
}

func TestParse_EmptyPattern(t *testing.T) {
	_, err := Parse("", "")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	m := &Meta{Active: true, Pattern: "%.descr"}
	name, err := m.Resolve("img")
	require.NoError(t, err)
	assert.Equal(t, "img.descr", name)

	m.Pattern = "fixed.out"
	name, err = m.Resolve("img")
	require.NoError(t, err)
	assert.Equal(t, "fixed.out", name)
}

func TestResolve_NameTooLong(t *testing.T) {
	m := &Meta{Active: true, Pattern: "%.descr"}
	_, err := m.Resolve(strings.Repeat("x", MaxNameLen))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestBasename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/images/lena.pgm", "lena"},
		{"lena.pgm", "lena"},
		{"lena", "lena"},
		{"archive.tar.gz", "archive.tar"},
		{"dir.with.dots/plain", "plain"},
	}

	for _, tt := range tests {
		got, err := Basename(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "path %q", tt.path)
	}
}

func TestBasename_TooLong(t *testing.T) {
	_, err := Basename(strings.Repeat("a", MaxNameLen+10) + ".pgm")
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestOpen_InactiveIsNoOp(t *testing.T) {
	m := &Meta{Active: false, Pattern: "%.frame"}
	require.NoError(t, m.Open("anything"))
	assert.Empty(t, m.Name)
	require.NoError(t, m.Close())
}

func TestWriter_CreatesLazily(t *testing.T) {
	dir := t.TempDir()
	m := &Meta{Active: true, Pattern: filepath.Join(dir, "%.frame")}

	require.NoError(t, m.Open("img"))
	want := filepath.Join(dir, "img.frame")
	assert.Equal(t, want, m.Name)

	// Nothing on disk until the first write.
	_, err := os.Stat(want)
	assert.True(t, os.IsNotExist(err))

	f, err := m.Writer()
	require.NoError(t, err)
	_, err = f.WriteString("hello\n")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestWriter_NotOpen(t *testing.T) {
	m := &Meta{Active: true, Pattern: "%.frame"}
	_, err := m.Writer()
	assert.Error(t, err)
}

func TestOpen_TruncatesOnReuse(t *testing.T) {
	dir := t.TempDir()
	m := &Meta{Active: true, Pattern: filepath.Join(dir, "%.frame")}

	for i := 0; i < 2; i++ {
		require.NoError(t, m.Open("img"))
		f, err := m.Writer()
		require.NoError(t, err)
		_, err = f.WriteString("one line\n")
		require.NoError(t, err)
		require.NoError(t, m.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, "img.frame"))
	require.NoError(t, err)
	assert.Equal(t, "one line\n", string(data), "rerun must overwrite, not append")
}

func TestClose_Idempotent(t *testing.T) {
	dir := t.TempDir()
	m := &Meta{Active: true, Pattern: filepath.Join(dir, "%.out")}

	require.NoError(t, m.Open("img"))
	_, err := m.Writer()
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestSet_CloseAll(t *testing.T) {
	dir := t.TempDir()
	s := NewSet()
	s.Get(RoleFrames).Active = true
	s.Get(RoleFrames).Pattern = filepath.Join(dir, "%.frame")

	require.NoError(t, s.Get(RoleFrames).Open("img"))
	_, err := s.Get(RoleFrames).Writer()
	require.NoError(t, err)

	// Mix of open, opened-but-unwritten, and inactive sinks.
	require.NoError(t, s.CloseAll())
	require.NoError(t, s.CloseAll())
}

func TestRoleAndProtocolStrings(t *testing.T) {
	assert.Equal(t, "frames", RoleFrames.String())
	assert.Equal(t, "gss", RoleScaleSpace.String())
	assert.Equal(t, "ascii", ProtocolASCII.String())
	assert.Equal(t, "binary", ProtocolBinary.String())
}
