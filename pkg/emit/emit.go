// Package emit generates the shell snippet that `eval "$(zephyr load)"`
// sources. Emission is deterministic given a resolved module
// order and a fixed session ID: identical inputs produce byte-identical
// output.
package emit

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/stringutil"
)

// Options configures emission.
type Options struct {
	SessionID   string
	AgentID     string
	AgentType   string
	RegisterCmd string // the CLI invocation used to register the session, e.g. "zephyr register-session"
}

// Modules emits the full shell snippet for the given resolver-ordered
// module list.
func Modules(modules []*manifest.Module, opts Options) string {
	var b strings.Builder

	b.WriteString("# generated by zephyr load — do not edit\n")
	fmt.Fprintf(&b, "export ZEPHYR_SESSION_ID=%s\n", shellQuote(opts.SessionID))
	if opts.AgentID != "" {
		fmt.Fprintf(&b, "export ZEPHYR_AGENT_ID=%s\n", shellQuote(opts.AgentID))
	}
	if opts.AgentType != "" {
		fmt.Fprintf(&b, "export ZEPHYR_AGENT_TYPE=%s\n", shellQuote(opts.AgentType))
	}

	registerCmd := opts.RegisterCmd
	if registerCmd == "" {
		registerCmd = "zephyr register-session"
	}
	fmt.Fprintf(&b, "%s --session-id %s\n", registerCmd, shellQuote(opts.SessionID))

	for _, m := range modules {
		emitModule(&b, m)
	}

	return b.String()
}

func emitModule(b *strings.Builder, m *manifest.Module) {
	fmt.Fprintf(b, "\n# module: %s@%s\n", m.Name, m.Version)

	for _, key := range sortedKeys(m.Settings) {
		envName := fmt.Sprintf("ZSH_MODULE_%s_%s", stringutil.EnvKeySegment(m.Name), stringutil.EnvKeySegment(key))
		fmt.Fprintf(b, "export %s=%s\n", envName, shellQuote(m.Settings[key]))
	}

	if m.PreLoad != "" {
		fmt.Fprintf(b, "%s\n", m.PreLoad)
	}

	for _, file := range m.Files {
		abs := filepath.Join(m.Path, file)
		fmt.Fprintf(b, "source %s\n", shellQuote(abs))
	}

	if m.PostLoad != "" {
		fmt.Fprintf(b, "%s\n", m.PostLoad)
	}
}

// sortedKeys returns m's keys sorted, for deterministic emission order
// over a Go map.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// shellQuote wraps s in single quotes, escaping any embedded single quote
// the POSIX-shell way ('"'"').
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
