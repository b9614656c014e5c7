// Package scan implements the security scanner: a
// language-agnostic, regex-driven text scanner over a module's files, with
// source-line classification, symlink-escape detection, git-hook
// detection, and trusted-module allowlisting.
package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/logger"
)

var log = logger.New("scan")

// Finding is one pattern match.
type Finding struct {
	Pattern    *Pattern
	FilePath   string
	LineNumber int
	LineText   string
}

// Result is the aggregate outcome of scanning a module root.
type Result struct {
	Success              bool
	CriticalCount        int
	WarningCount         int
	Findings             []Finding
	CredentialFindings   []Finding
	ReverseShellFindings []Finding
	GitHooks             []string
	ErrorMessage         string
	TrustedModuleApplied bool
	FilesScanned         int
	LinesScanned         int
}

// EffectiveCriticalCount is the critical count the install gate should use:
// zero when the trusted-module allowlist applies, since trust suppresses
// the gate but never the recorded finding count.
func (r *Result) EffectiveCriticalCount() int {
	if r.TrustedModuleApplied {
		return 0
	}
	return r.CriticalCount
}

// Options configures a Module scan.
type Options struct {
	Patterns        []*Pattern
	MaxFileSize     int64
	MaxLineLength   int
	TrustedAllowlist []string
}

// DefaultOptions compiles the mandatory pattern set and applies the
// default size limits.
func DefaultOptions() (Options, error) {
	patterns, err := CompilePatterns(DefaultPatterns())
	if err != nil {
		return Options{}, err
	}
	return Options{
		Patterns:      patterns,
		MaxFileSize:   constants.DefaultMaxFileSize,
		MaxLineLength: constants.DefaultMaxLineLength,
	}, nil
}

// Module scans every file under root and returns the aggregate result.
// Scan failures that prevent the walk itself from completing set
// Success=false and ErrorMessage; per-file issues (oversize, binary,
// oversize line) are skipped with a logged warning and do not fail the
// whole scan.
func Module(root string, opts Options) *Result {
	result := &Result{Success: true}

	if IsTrusted(root, opts.TrustedAllowlist) {
		result.TrustedModuleApplied = true
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("walk error at %s: %v", path, err)
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			resolved, rerr := filepath.EvalSymlinks(path)
			if rerr != nil || !withinRoot(root, resolved) {
				result.Findings = append(result.Findings, Finding{
					Pattern:    &Pattern{Severity: Critical, Description: "symlink escape"},
					FilePath:   path,
					LineNumber: 1,
					LineText:   "symlink resolves outside module root",
				})
				result.CriticalCount++
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if isGitHook(root, path) {
			result.GitHooks = append(result.GitHooks, path)
			result.Findings = append(result.Findings, Finding{
				Pattern:    &Pattern{Severity: Critical, Description: "untrusted git hook"},
				FilePath:   path,
				LineNumber: 1,
				LineText:   "git hook file present without .sample suffix",
			})
			result.CriticalCount++
			return nil
		}

		scanFile(path, info, opts, result)
		return nil
	})
	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
	}

	for _, f := range result.Findings {
		switch f.Pattern.Severity {
		case Critical:
			if isCredentialFinding(f) {
				result.CredentialFindings = append(result.CredentialFindings, f)
			}
			if isReverseShellFinding(f) {
				result.ReverseShellFindings = append(result.ReverseShellFindings, f)
			}
		case Warning:
			if isReverseShellFinding(f) {
				result.ReverseShellFindings = append(result.ReverseShellFindings, f)
			}
		}
	}

	return result
}

func scanFile(path string, info os.FileInfo, opts Options, result *Result) {
	if info.Size() > opts.MaxFileSize {
		log.Printf("skipping oversize file: %s (%d bytes)", path, info.Size())
		return
	}

	if isBinary(path) && !hasShebang(path) {
		log.Printf("skipping binary file: %s", path)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("cannot open %s: %v", path, err)
		return
	}
	defer f.Close()

	result.FilesScanned++

	classifier := newClassifier()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), opts.MaxLineLength+1)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		result.LinesScanned++
		line := scanner.Text()
		if len(line) > opts.MaxLineLength {
			log.Printf("skipping oversize line %d in %s (%d bytes)", lineNo, path, len(line))
			continue
		}

		if classifier.Classify(line) != kindCode {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		for _, p := range opts.Patterns {
			re, cerr := p.compile()
			if cerr != nil {
				continue
			}
			if re.MatchString(line) {
				result.Findings = append(result.Findings, Finding{
					Pattern:    p,
					FilePath:   path,
					LineNumber: lineNo,
					LineText:   trimmed,
				})
				if p.Severity == Critical {
					result.CriticalCount++
				} else if p.Severity == Warning {
					result.WarningCount++
				}
			}
		}
	}
}

// isBinary uses the optional magic provider (gabriel-vasile/mimetype) to
// sniff the file's content type, falling back to a NUL-byte heuristic over
// the first 8 KiB when the magic provider reports an ambiguous
// application/octet-stream.
func isBinary(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nulHeuristic(path)
	}
	if mtype.Is("application/octet-stream") {
		return nulHeuristic(path)
	}
	return !strings.HasPrefix(mtype.String(), "text/") && !mtype.Is("application/json") && !mtype.Is("application/xml") && !mtype.Is("inode/x-empty")
}

func nulHeuristic(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	buf := make([]byte, 8192)
	n, _ := f.Read(buf)
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}

func hasShebang(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 2)
	n, _ := f.Read(buf)
	return n == 2 && buf[0] == '#' && buf[1] == '!'
}

func withinRoot(root, resolved string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isGitHook(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 3 || parts[0] != ".git" || parts[1] != "hooks" {
		return false
	}
	return !strings.HasSuffix(path, ".sample")
}

func isCredentialFinding(f Finding) bool {
	return strings.Contains(f.Pattern.Description, "credential") ||
		strings.Contains(f.Pattern.Description, "AWS") ||
		strings.Contains(f.Pattern.Description, "SSH private key")
}

func isReverseShellFinding(f Finding) bool {
	return strings.Contains(f.Pattern.Description, "reverse shell") ||
		strings.Contains(f.Pattern.Description, "TCP/UDP device socket") ||
		strings.Contains(f.Pattern.Description, "netcat") ||
		strings.Contains(f.Pattern.Description, "socat")
}
