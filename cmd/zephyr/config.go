package main

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/zephyr-sh/zephyr/pkg/logger"
	"github.com/zephyr-sh/zephyr/pkg/sign"
)

var configLog = logger.New("config")

// rawSecurityConfig mirrors security.toml's layout, decoded the
// same way pkg/manifest decodes module.toml — through BurntSushi/toml into
// a typed staging struct before conversion.
type rawSecurityConfig struct {
	Security struct {
		TrustedModules []string `toml:"trusted_modules"`
	} `toml:"security"`

	Issuers []struct {
		Name      string `toml:"name"`
		PublicKey string `toml:"public_key"`
	} `toml:"issuer"`
}

// securityConfig is the parsed, ready-to-use form of security.toml.
type securityConfig struct {
	TrustedModules []string
	issuers        []sign.Issuer
}

// loadSecurityConfig reads path, if present, silently falling back to an
// empty configuration on a missing file (a freshly installed zephyr has no
// security.toml yet) or a malformed one (logged, never fatal — mirrors
// pkg/cache's "never reject a snapshot loudly" policy).
func loadSecurityConfig(path string) securityConfig {
	var raw rawSecurityConfig
	if _, err := os.Stat(path); err != nil {
		return securityConfig{}
	}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		configLog.Printf("failed to parse security config %s, ignoring: %v", path, err)
		return securityConfig{}
	}

	cfg := securityConfig{TrustedModules: raw.Security.TrustedModules}
	for _, iss := range raw.Issuers {
		issuer, err := sign.ParsePublicKeyHex(iss.PublicKey)
		if err != nil {
			configLog.Printf("skipping issuer %q: %v", iss.Name, err)
			continue
		}
		issuer.Name = iss.Name
		cfg.issuers = append(cfg.issuers, issuer)
	}
	return cfg
}
