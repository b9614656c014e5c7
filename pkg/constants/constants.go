// Package constants holds small cross-package values that would otherwise
// be duplicated as magic numbers or strings across the manifest, cache,
// scanner, install, and permission packages.
package constants

import "time"

// CLIName is the prefix used in user-facing output to refer to the CLI.
const CLIName = "zephyr"

// DefaultModulesDirEnv is the environment variable that overrides the
// default modules directory.
const DefaultModulesDirEnv = "ZSH_MODULES_DIR"

// DefaultModulesDir is "$HOME/.zsh/modules" joined at runtime with $HOME.
const DefaultModulesDir = ".zsh/modules"

// DefaultCacheDir is "$HOME/.zsh/cache" joined at runtime with $HOME.
const DefaultCacheDir = ".zsh/cache"

// DefaultAuditDir is "$HOME/.zephyr/audit" joined at runtime with $HOME.
const DefaultAuditDir = ".zephyr/audit"

// SecurityConfigRelPath is "$HOME/.zephyr/security.toml" joined at runtime with $HOME.
const SecurityConfigRelPath = ".zephyr/security.toml"

// CacheSnapshotFile is the file name of the persisted module cache snapshot.
const CacheSnapshotFile = "zephyr_cache.json"

// DefaultMaxDiscoverDepth bounds the discoverer's recursive descent.
const DefaultMaxDiscoverDepth = 10

// DefaultMaxCacheEntries bounds the module cache's LRU size.
const DefaultMaxCacheEntries = 200

// DefaultMaxFileSize is the scanner's per-file size ceiling.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// DefaultMaxLineLength is the scanner's per-line length ceiling.
const DefaultMaxLineLength = 100 << 10 // 100 KiB

// DefaultMaxPatternBytes bounds total concatenated pattern source.
const DefaultMaxPatternBytes = 32 << 10 // 32 KiB

// CommandScannerOversizeThreshold is the single-command length above which
// a command is itself treated as Critical.
const CommandScannerOversizeThreshold = 10 << 10 // 10 KiB

// DefaultAuditRetentionDays is the default prune window for the audit log.
const DefaultAuditRetentionDays = 30

// DefaultPriority is a module's load priority when unset.
const DefaultPriority = 100

// SessionIDEnv is the environment variable carrying the per-shell session UUID.
const SessionIDEnv = "ZEPHYR_SESSION_ID"

// AgentIDEnv and AgentTypeEnv are the generic Zephyr agent-identity overrides.
const (
	AgentIDEnv   = "ZEPHYR_AGENT_ID"
	AgentTypeEnv = "ZEPHYR_AGENT_TYPE"
)

// AdminEnv, when set to a truthy value, promotes a session to the admin role
//, intended for CI/automation.
const AdminEnv = "ZEPHYR_ADMIN"

// HTTPRequestTimeout bounds any network call made by an external collaborator
// (e.g. fetching an issuer's public key for signature verification).
const HTTPRequestTimeout = 30 * time.Second
