package scan

import "path/filepath"

// IsTrusted reports whether root matches an entry in the trusted-module
// allowlist. Entries are absolute paths
// or base names of well-known module directories, configured via
// security.toml.
func IsTrusted(root string, allowlist []string) bool {
	base := filepath.Base(root)
	for _, entry := range allowlist {
		if entry == root || entry == base {
			return true
		}
	}
	return false
}
