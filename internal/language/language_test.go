package language

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"test.py", "python"},
		{"test.js", "javascript"},
		{"test.java", "java"},
		{"test.cpp", "cpp"},
		{"test.sh", "bash"},
		{"test.md", "markdown"},
		{"Dockerfile", "dockerfile"},
		{"Makefile", "makefile"},
		{"src/deep/Main.JAVA", "java"},
		{"Dockerfile.prod", "dockerfile"},
		{".env.example", "bash"},
		{"CMakeLists.txt", "cmake"},
		{"notes.txt", "text"},
		{"unknown.xyz", ""},
		{"LICENSE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(tt.name))
		})
	}
}

func TestParseOverrides(t *testing.T) {
	table, err := Parse([]byte(`
cython:
  extensions: [".pyx", "PY"]
  filenames: ["SConstruct"]
starlark:
  extensions: [".pyx", ".bzl"]
  filenames: ["BUILD"]
`))
	require.NoError(t, err)

	assert.Equal(t, "cython", table.Tag("mod.pyx"), "first language in sorted order wins a shared extension")
	assert.Equal(t, "cython", table.Tag("main.py"), "overrides win over the built-in table")
	assert.Equal(t, "cython", table.Tag("SConstruct"))
	assert.Equal(t, "starlark", table.Tag("rules.bzl"))
	assert.Equal(t, "starlark", table.Tag("pkg/BUILD"))
	assert.Equal(t, "dockerfile", table.Tag("Dockerfile"), "built-in names still apply")
	assert.Equal(t, "", table.Tag("unknown.xyz"))
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "languages.yml")
	require.NoError(t, os.WriteFile(file, []byte("zig:\n  extensions: [\".zon\"]\n"), 0o644))

	table, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "zig", table.Tag("build.zig.zon"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("- not: a map\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestNilTableUsesBuiltins(t *testing.T) {
	var table *Table
	assert.Equal(t, "go", table.Tag("main.go"))
}
