package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zephyr-sh/zephyr/pkg/manifest"
)

func TestIsCompatibleEmptyFilterMatchesAll(t *testing.T) {
	m := &manifest.Module{}
	cur := Current{OS: "linux", Arch: "amd64", Shell: "zsh", ShellVersion: "5.9"}
	assert.True(t, IsCompatible(m, cur))
	assert.Equal(t, "", Reason(m, cur))
}

func TestOSMismatch(t *testing.T) {
	m := &manifest.Module{OS: []string{"darwin"}}
	cur := Current{OS: "linux"}
	assert.False(t, IsCompatible(m, cur))
	assert.Contains(t, Reason(m, cur), "OS mismatch")
}

func TestOSMatchCaseInsensitive(t *testing.T) {
	m := &manifest.Module{OS: []string{"Linux"}}
	cur := Current{OS: "linux"}
	assert.True(t, IsCompatible(m, cur))
}

func TestArchMismatch(t *testing.T) {
	m := &manifest.Module{Arch: []string{"arm64"}}
	cur := Current{Arch: "amd64"}
	assert.False(t, IsCompatible(m, cur))
	assert.Contains(t, Reason(m, cur), "Architecture mismatch")
}

func TestShellMismatch(t *testing.T) {
	m := &manifest.Module{Shell: "bash"}
	cur := Current{Shell: "zsh"}
	assert.False(t, IsCompatible(m, cur))
	assert.Contains(t, Reason(m, cur), "Shell mismatch")
}

func TestMinVersionSatisfied(t *testing.T) {
	m := &manifest.Module{MinVersion: "5.8"}
	cur := Current{ShellVersion: "5.9"}
	assert.True(t, IsCompatible(m, cur))
}

func TestMinVersionNotMet(t *testing.T) {
	m := &manifest.Module{MinVersion: "5.9"}
	cur := Current{ShellVersion: "5.8"}
	assert.False(t, IsCompatible(m, cur))
	assert.Contains(t, Reason(m, cur), "version requirement not met")
}

func TestMinVersionUnknownCurrent(t *testing.T) {
	m := &manifest.Module{MinVersion: "5.9"}
	cur := Current{}
	assert.False(t, IsCompatible(m, cur))
}

func TestCompareVersionsTruncatesSuffix(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"5.9", "5.9", 0},
		{"5.9.1", "5.9", 1},
		{"5.8", "5.9", -1},
		{"5.9-rc1", "5.9", 0},
		{"6", "5.99", 1},
		{"5", "5.0.1", -1},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDetectUsesShellEnv(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	cur := Detect("5.9")
	assert.Equal(t, "zsh", cur.Shell)
	assert.Equal(t, "5.9", cur.ShellVersion)
	assert.NotEmpty(t, cur.OS)
	assert.NotEmpty(t, cur.Arch)
}
