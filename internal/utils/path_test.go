package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty path", input: "", wantErr: true},
		{name: "absolute path", input: "/tmp/coremint/../coremint/out", want: filepath.Clean("/tmp/coremint/out")},
		{name: "home", input: "~", want: home},
		{name: "home relative", input: "~/wallets/id.json", want: filepath.Join(home, "wallets", "id.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	rel, err := ResolvePath("./out")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(rel))
}

func TestEnsureParentAndExists(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "a", "b", "report.json")

	require.NoError(t, EnsureParent(target))
	assert.True(t, DirExists(filepath.Dir(target)))
	assert.False(t, FileExists(target))

	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))
	assert.True(t, FileExists(target))
	assert.False(t, FileExists(filepath.Dir(target)))
}

func TestWriteFileAtomic(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "upload.json")

	require.NoError(t, WriteFileAtomic(target, []byte(`{"uploaded":[]}`), 0o644))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"uploaded":[]}`, string(data))

	// overwrite in place, no temp files left behind
	require.NoError(t, WriteFileAtomic(target, []byte(`{}`), 0o644))
	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
