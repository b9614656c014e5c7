// Package platform evaluates a module's OS/arch/shell/min_version filter
// against the running system. Platform detection is pure
// stdlib territory (runtime.GOOS/GOARCH, $SHELL) — no pack library covers
// this concern, so it stays on the standard library by necessity (see
// DESIGN.md).
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/sliceutil"
)

// Current describes the platform Zephyr is running on.
type Current struct {
	OS           string
	Arch         string
	Shell        string
	ShellVersion string
}

// Detect builds a Current from runtime.GOOS/GOARCH and the environment.
func Detect(shellVersion string) Current {
	shell := "unknown"
	if path := os.Getenv("SHELL"); path != "" {
		shell = filepath.Base(path)
	}
	return Current{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		Shell:        shell,
		ShellVersion: shellVersion,
	}
}

// IsCompatible reports whether m's platform filter matches cur; an empty
// filter field matches everything.
func IsCompatible(m *manifest.Module, cur Current) bool {
	return Reason(m, cur) == ""
}

// Reason returns the empty string when m is compatible with cur, or a
// human-readable incompatibility reason otherwise.
func Reason(m *manifest.Module, cur Current) string {
	if len(m.OS) > 0 && !sliceutil.ContainsFold(m.OS, cur.OS) {
		return fmt.Sprintf("OS mismatch: module requires one of %v, running %s", m.OS, cur.OS)
	}
	if len(m.Arch) > 0 && !sliceutil.ContainsFold(m.Arch, cur.Arch) {
		return fmt.Sprintf("Architecture mismatch: module requires one of %v, running %s", m.Arch, cur.Arch)
	}
	if m.Shell != "" && !strings.EqualFold(m.Shell, cur.Shell) {
		return fmt.Sprintf("Shell mismatch: module requires %s, running %s", m.Shell, cur.Shell)
	}
	if m.MinVersion != "" {
		if cur.ShellVersion == "" || compareVersions(cur.ShellVersion, m.MinVersion) < 0 {
			return fmt.Sprintf("Shell version requirement not met: module requires >= %s, running %s", m.MinVersion, displayVersion(cur.ShellVersion))
		}
	}
	return ""
}

func displayVersion(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// compareVersions compares two dot-separated version strings component by
// component, as integers; a trailing non-digit suffix on any component is
// truncated before comparison. Returns -1, 0, or 1.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(as) {
			av = leadingInt(as[i])
		}
		if i < len(bs) {
			bv = leadingInt(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// leadingInt parses the leading run of ASCII digits in s as an integer,
// truncating any trailing non-digit suffix (e.g. "5-rc1" -> 5).
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
