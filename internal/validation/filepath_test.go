package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndSanitize(t *testing.T) {
	v := NewFilePathValidator()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "absolute", path: "/etc/newsd/feeds.toml", want: "/etc/newsd/feeds.toml"},
		{name: "home expansion", path: "~/feeds.toml", want: filepath.Join(home, "feeds.toml")},
		{name: "relative made absolute", path: "feeds.toml", want: filepath.Join(wd, "feeds.toml")},
		{name: "dot prefix", path: "./conf/feeds.toml", want: filepath.Join(wd, "conf", "feeds.toml")},
		{name: "redundant separators", path: "/var//log/newsd.log", want: "/var/log/newsd.log"},
		{name: "empty", path: "", wantErr: true},
		{name: "traversal", path: "/etc/newsd/../passwd", wantErr: true},
		{name: "leading traversal", path: "../feeds.toml", wantErr: true},
		{name: "null byte", path: "/tmp/feeds\x00.toml", wantErr: true},
		{name: "control character", path: "/tmp/feeds\n.toml", wantErr: true},
		{name: "other user home", path: "~root/feeds.toml", wantErr: true},
		{name: "too long", path: "/" + strings.Repeat("a", 5000), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndSanitize(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRestrictedFilePathValidator(t *testing.T) {
	base := t.TempDir()
	v := NewRestrictedFilePathValidator(base)

	got, err := v.ValidateAndSanitize(filepath.Join(base, "logs", "newsd.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "logs", "newsd.log"), got)

	_, err = v.ValidateAndSanitize(base)
	assert.NoError(t, err, "the base directory itself is allowed")

	_, err = v.ValidateAndSanitize("/etc/passwd")
	assert.ErrorContains(t, err, "not within allowed directories")

	// a sibling sharing the prefix is outside
	_, err = v.ValidateAndSanitize(base + "-other/file")
	assert.Error(t, err)
}

func TestValidateFile(t *testing.T) {
	v := NewFilePathValidator()
	dir := t.TempDir()

	existing := filepath.Join(dir, "feeds.toml")
	require.NoError(t, os.WriteFile(existing, []byte("[feeds]\n"), 0o600))

	got, err := v.ValidateFile(existing)
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	_, err = v.ValidateFile(filepath.Join(dir, "missing.toml"))
	assert.NoError(t, err, "missing files are the caller's concern")

	_, err = v.ValidateFile(dir)
	assert.ErrorContains(t, err, "is a directory")
}

func TestIsPathSafe(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/var/log/newsd.log", true},
		{"feeds.toml", true},
		{"~/feeds.toml", true},
		{"../feeds.toml", false},
		{"a/../../b", false},
		{"with\x00null", false},
		{strings.Repeat("a", 5000), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPathSafe(tt.path), "IsPathSafe(%q)", tt.path)
	}
}
