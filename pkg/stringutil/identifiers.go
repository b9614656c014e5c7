// Package stringutil provides utility functions for working with strings.
package stringutil

import "strings"

// moduleNameMaxLen is the maximum length of a module name.
const moduleNameMaxLen = 50

// IsValidModuleName reports whether name satisfies a module's identity
// constraints: non-empty, starts with a letter, and contains only
// letters, digits, '-' and '_', up to moduleNameMaxLen characters.
func IsValidModuleName(name string) bool {
	if name == "" || len(name) > moduleNameMaxLen {
		return false
	}
	first := name[0]
	if !isLetter(first) {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isLetter(c) && !isDigit(c) && c != '-' && c != '_' {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// EnvKeySegment converts a module name or settings key into the
// upper-snake-case segment used inside a ZSH_MODULE_<NAME>_<KEY>
// environment variable name: dashes become underscores and letters are
// upper-cased.
//
// Examples:
//
//	EnvKeySegment("git-tools")   // returns "GIT_TOOLS"
//	EnvKeySegment("max_retries") // returns "MAX_RETRIES" (unchanged separators)
func EnvKeySegment(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}
