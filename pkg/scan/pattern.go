package scan

import (
	"regexp"

	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

// Severity classifies a Pattern or Finding.
type Severity int

const (
	Info Severity = iota
	Warning
	Critical
)

func (s Severity) String() string {
	switch s {
	case Critical:
		return "critical"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Pattern is one scanner rule.
type Pattern struct {
	Severity    Severity
	Source      string
	Description string
	re          *regexp.Regexp
}

// compile compiles p.Source, caching the result on the Pattern.
func (p *Pattern) compile() (*regexp.Regexp, error) {
	if p.re != nil {
		return p.re, nil
	}
	re, err := regexp.Compile(p.Source)
	if err != nil {
		return nil, err
	}
	p.re = re
	return re, nil
}

// CompilePatterns compiles every pattern in patterns, rejecting the whole
// set if their concatenated source exceeds constants.DefaultMaxPatternBytes
// or any one pattern
// fails to compile.
func CompilePatterns(patterns []Pattern) ([]*Pattern, error) {
	total := 0
	for _, p := range patterns {
		total += len(p.Source)
	}
	if total > constants.DefaultMaxPatternBytes {
		return nil, zerr.Newf(zerr.Invalid, "pattern set exceeds max size: %d > %d bytes", total, constants.DefaultMaxPatternBytes)
	}

	out := make([]*Pattern, len(patterns))
	for i := range patterns {
		p := patterns[i]
		if _, err := p.compile(); err != nil {
			return nil, zerr.Wrapf(zerr.Internal, err, "failed to compile pattern %q", p.Source)
		}
		out[i] = &p
	}
	return out, nil
}

// DefaultPatterns returns the mandatory pattern coverage every scan runs.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Critical: remote download piped to a shell.
		{Critical, `curl\b[^|]*\|\s*(sudo\s+)?(ba)?sh\b`, "remote download piped to a shell via curl"},
		{Critical, `wget\b[^|]*\|\s*(sudo\s+)?(ba)?sh\b`, "remote download piped to a shell via wget"},
		{Critical, `eval\s+\$\(\s*(curl|wget)\b`, "eval of curl/wget output"},
		{Critical, `\$\([^)]*\b(curl|wget)\b[^)]*\)`, "command substitution over curl/wget"},
		{Critical, "<\\([^)]*\\b(curl|wget)\\b[^)]*\\)", "process substitution over curl/wget"},
		{Critical, `base64\s+(-d|--decode)\b[^|]*\|\s*(ba)?sh\b`, "base64-decoded payload piped to a shell"},
		{Critical, `printf\s+["'](\\\\x[0-9a-fA-F]{2}){3,}`, "hex-encoded payload built via printf"},
		{Critical, `xxd\s+-r\s+-p\b`, "hex-encoded payload decoded via xxd"},
		{Critical, `;\s*\$\(`, "chained command substitution after a semicolon"},
		{Critical, `\|\s*\$\(`, "chained command substitution after a pipe"},
		{Critical, `&&\s*curl\b`, "conditional chain into curl"},
		{Critical, `\|\|\s*wget\b`, "conditional chain into wget"},
		{Critical, `rm\s+-rf\s+/(\s|$)`, "recursive forced removal of the filesystem root"},
		{Critical, `\bdd\s+if=`, "raw block-device read via dd"},
		{Critical, `>\s*/dev/(sda|nvme\d*)\w*`, "raw write to a block device"},
		{Critical, `/dev/(tcp|udp)/`, "bash TCP/UDP device socket"},
		{Critical, `\bnc\b[^\n]*-e\b`, "netcat with command execution"},
		{Critical, `\bsocat\b[^\n]*\bexec:`, "socat with command execution"},
		{Critical, `\bptrace\b`, "ptrace-based process manipulation"},
		{Critical, `/proc/\d+/mem\b`, "direct access to another process's memory"},
		{Critical, `\bLD_PRELOAD=`, "dynamic linker preload injection"},
		{Critical, `\bDYLD_INSERT_LIBRARIES=`, "dynamic linker insert-libraries injection (macOS)"},
		{Critical, `/proc/self/exe\b`, "self-executable reference via /proc/self/exe"},
		{Critical, `/proc/\d+/root\b`, "process root filesystem escape via /proc/<pid>/root"},
		{Critical, `\bnsenter\b`, "namespace-entering via nsenter"},
		{Critical, `/sys/fs/cgroup\b`, "direct cgroup filesystem manipulation"},
		{Critical, `\|\s*sed\b[^|]*-e[^|]*\|`, "chained sed pipeline that may bypass validation"},
		{Critical, `sed\s+'s/\$\(`, "sed substitution embedding a command substitution"},
		{Critical, `~/\.aws/credentials\b`, "AWS credential file reference"},
		{Critical, `~/\.ssh/id_(rsa|dsa|ecdsa|ed25519)\b`, "SSH private key file reference"},

		// Warning.
		{Warning, `\bcurl\s+http://`, "plain-HTTP curl request"},
		{Warning, `\bchmod\s+([ugoa]*\+s|[0-7]*[4-7][0-7][0-7][0-7])\b`, "setuid/setgid bit change via chmod"},
		{Warning, `\bsudo\s+`, "privilege escalation via sudo"},
		{Warning, `>>\s*~?/?\.?(zshrc|bashrc)\b`, "append to the user's shell rc file"},
		{Warning, `/dev/tcp/[^\n]*0<&`, "possible reverse shell via /dev/tcp redirection"},
	}
}
