package stringutil

import (
	"regexp"

	"github.com/zephyr-sh/zephyr/pkg/logger"
)

var sanitizeLog = logger.New("stringutil:sanitize")

// Regex patterns for detecting potential secret key names
var (
	// Match uppercase snake_case identifiers that look like secret names (e.g., MY_SECRET_KEY, GITHUB_TOKEN, API_KEY)
	// Excludes known-safe shell/module environment variable names
	secretNamePattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]*_[A-Z0-9_]+)\b`)

	// Match PascalCase identifiers ending with security-related suffixes (e.g., GitHubToken, ApiKey, DeploySecret)
	pascalCaseSecretPattern = regexp.MustCompile(`\b([A-Z][a-z0-9]*(?:[A-Z][a-z0-9]*)*(?:Token|Key|Secret|Password|Credential|Auth))\b`)

	// Common non-sensitive identifiers to exclude from redaction
	commonSafeEnvNames = map[string]bool{
		"GITHUB":      true,
		"ZSH_MODULE":  true,
		"ZEPHYR":      true,
		"ENV":         true,
		"PATH":        true,
		"HOME":        true,
		"SHELL":       true,
		"TERM":        true,
		"NO_COLOR":    true,
		"MODULE_NAME": true,
		"MODULE_PATH": true,
	}
)

// SanitizeErrorMessage removes potential secret key names from error and audit
// messages before they are written to disk. The audit log (see pkg/audit) must
// never contain command arguments, file contents, or secrets; this is the last
// line of defense if a caller accidentally formats a raw environment value
// into a details string.
func SanitizeErrorMessage(message string) string {
	if message == "" {
		return message
	}

	sanitizeLog.Printf("Sanitizing error message: length=%d", len(message))

	// Redact uppercase snake_case patterns (e.g., MY_SECRET_KEY, API_TOKEN)
	sanitized := secretNamePattern.ReplaceAllStringFunc(message, func(match string) string {
		// Don't redact known-safe environment variable names
		if commonSafeEnvNames[match] {
			return match
		}
		sanitizeLog.Printf("Redacted snake_case secret pattern: %s", match)
		return "[REDACTED]"
	})

	// Redact PascalCase patterns ending with security suffixes (e.g., GitHubToken, ApiKey)
	sanitized = pascalCaseSecretPattern.ReplaceAllString(sanitized, "[REDACTED]")

	if sanitized != message {
		sanitizeLog.Print("Error message sanitization applied redactions")
	}

	return sanitized
}
