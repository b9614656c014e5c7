package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zephyr-sh/zephyr/pkg/testutil"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(content), 0644))
}

func TestParseValidManifest(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, `
[module]
name = "git-tools"
version = "1.2.0"
description = "git helper aliases"

[dependencies]
required = ["core"]
optional = ["fzf-integration"]

[platforms]
os = ["linux", "darwin"]
shell = "zsh"

[load]
priority = 10
files = ["aliases.zsh", "functions.zsh"]

[hooks]
pre_load = "git_tools_pre"

[settings]
default_remote = "origin"
`)

	m, err := Parse(dir)
	require.NoError(t, err)
	assert.Equal(t, "git-tools", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, []string{"core"}, m.Required)
	assert.Equal(t, []string{"fzf-integration"}, m.Optional)
	assert.Equal(t, []string{"linux", "darwin"}, m.OS)
	assert.Equal(t, "zsh", m.Shell)
	assert.Equal(t, 10, m.Priority)
	assert.Equal(t, []string{"aliases.zsh", "functions.zsh"}, m.Files)
	assert.Equal(t, "git_tools_pre", m.PreLoad)
	assert.Equal(t, "origin", m.Settings["default_remote"])
}

func TestParseDefaultsPriority(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, "[module]\nname = \"bare\"\nversion = \"0.1\"\n")

	m, err := Parse(dir)
	require.NoError(t, err)
	assert.Equal(t, 100, m.Priority)
	assert.Empty(t, m.Required)
	assert.Empty(t, m.Files)
	assert.NotNil(t, m.Settings)
}

func TestParseMissingName(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, "[module]\nversion = \"1.0\"\n")

	_, err := Parse(dir)
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestParseMissingVersion(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, "[module]\nname = \"no-version\"\n")

	_, err := Parse(dir)
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestParseInvalidModuleName(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, "[module]\nname = \"1bad\"\nversion = \"1.0\"\n")

	_, err := Parse(dir)
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestParseMissingManifestFile(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")

	_, err := Parse(dir)
	require.Error(t, err)
	assert.Equal(t, zerr.NotFound, zerr.CodeOf(err))
}

func TestParseScalarWhereArrayExpected(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, `
[module]
name = "broken"
version = "1.0"

[dependencies]
required = "core"
`)

	_, err := Parse(dir)
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestParseNonStringSetting(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	writeManifest(t, dir, `
[module]
name = "broken"
version = "1.0"

[settings]
retries = 3
`)

	_, err := Parse(dir)
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestModuleCloneIsIndependent(t *testing.T) {
	m := &Module{
		Name:     "x",
		Required: []string{"a"},
		Settings: map[string]string{"k": "v"},
	}
	c := m.Clone()
	c.Required[0] = "mutated"
	c.Settings["k"] = "mutated"

	assert.Equal(t, "a", m.Required[0])
	assert.Equal(t, "v", m.Settings["k"])
}

func TestValidateFilesExist(t *testing.T) {
	dir := testutil.TempDir(t, "module-*")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.zsh"), []byte("# noop\n"), 0644))

	m := &Module{Name: "x", Path: dir, Files: []string{"init.zsh"}}
	assert.NoError(t, m.ValidateFilesExist())

	m.Files = append(m.Files, "missing.zsh")
	err := m.ValidateFilesExist()
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}
