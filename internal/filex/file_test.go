package filex

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "downloads", "nested")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "x")

	_, err := EnsureDir(dir)
	require.NoError(t, err)
	_, err = EnsureDir(dir)
	require.NoError(t, err)
}

func TestEnsureDir_FailsWhenPathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := EnsureDir(file)
	require.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{10 * 1024, "10 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{10 * 1024 * 1024, "10 MiB"},
		{10*1024*1024 + 1, "10 MiB"},
		{2304, "2.3 KiB"},
		{2560, "2.5 KiB"},
		{10189, "10.0 KiB"},
		{10752, "11 KiB"},
		{11010048, "11 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
		{2048 * 1024 * 1024 * 1024, "2048 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "FormatBytes(%d)", tt.in)
	}
}

func TestOpenLocal_ResolvesTypeAndSize(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.TXT")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))

	f, err := OpenLocal(txt)
	require.NoError(t, err)
	assert.Equal(t, "notes.TXT", f.Name())
	assert.Equal(t, int64(5), f.Size())
	assert.Equal(t, "text/plain", f.ContentType())

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestOpenLocal_SniffsWhenNoExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), 0o600))

	f, err := OpenLocal(path)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())
}

func TestOpenLocal_Errors(t *testing.T) {
	_, err := OpenLocal(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)

	_, err = OpenLocal(t.TempDir())
	require.Error(t, err)
}
