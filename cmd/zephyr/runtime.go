package main

import (
	"os"
	"path/filepath"

	"github.com/zephyr-sh/zephyr/pkg/audit"
	"github.com/zephyr-sh/zephyr/pkg/cache"
	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/scan"
	"github.com/zephyr-sh/zephyr/pkg/sign"
)

// runtime bundles the process-wide collaborators every subcommand needs:
// the modules directory, a warm module cache, the audit logger, the
// session registry, and the security-config-derived scan options. Built
// once in init() and threaded through each newXCommand() factory function.
type runtime struct {
	home       string
	modulesDir string
	cacheDir   string
	auditDir   string

	cache    *cache.Cache
	audit    *audit.Logger
	sessions *permission.Registry
	security securityConfig
}

func newRuntime() *runtime {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	modulesDir := os.Getenv(constants.DefaultModulesDirEnv)
	if modulesDir == "" {
		modulesDir = filepath.Join(home, constants.DefaultModulesDir)
	}
	cacheDir := filepath.Join(home, constants.DefaultCacheDir)
	auditDir := filepath.Join(home, constants.DefaultAuditDir)

	sec := loadSecurityConfig(filepath.Join(home, constants.SecurityConfigRelPath))

	c := cache.New(constants.DefaultMaxCacheEntries, filepath.Join(cacheDir, constants.CacheSnapshotFile))
	c.Load()

	sessionsPath := filepath.Join(home, ".zephyr", "sessions.json")

	return &runtime{
		home:       home,
		modulesDir: modulesDir,
		cacheDir:   cacheDir,
		auditDir:   auditDir,
		cache:      c,
		audit:      audit.NewLogger(auditDir),
		sessions:   permission.NewFileRegistry(sessionsPath),
		security:   sec,
	}
}

// session resolves the current process's permission session: the
// registered session for ZEPHYR_SESSION_ID if one exists, otherwise a
// freshly detected one scoped to the role the registry fails open to.
func (r *runtime) session() permission.Session {
	sessionID := os.Getenv(constants.SessionIDEnv)
	if sessionID != "" {
		if s, ok := r.sessions.Lookup(sessionID); ok {
			return s
		}
	}
	return permission.NewSession()
}

// scanOptions merges the mandatory default pattern set with the
// security.toml trusted-module allowlist.
func (r *runtime) scanOptions() (scan.Options, error) {
	opts, err := scan.DefaultOptions()
	if err != nil {
		return scan.Options{}, err
	}
	opts.TrustedAllowlist = r.security.TrustedModules
	return opts, nil
}

// issuers returns the configured signature-verification issuers, parsed
// from security.toml's hex-encoded public keys.
func (r *runtime) issuers() []sign.Issuer {
	return r.security.issuers
}
