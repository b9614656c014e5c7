// Package install implements the clone-scan-validate-move pipeline:
// Idle → Cloned → Scanned → Validated → Installed, with a rolled-back
// failure edge from every non-terminal state and guaranteed
// temp-directory cleanup on every failure path.
package install

import (
	"context"
	"os"
	"path/filepath"

	"github.com/zephyr-sh/zephyr/pkg/audit"
	"github.com/zephyr-sh/zephyr/pkg/gitutil"
	"github.com/zephyr-sh/zephyr/pkg/logger"
	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/platform"
	"github.com/zephyr-sh/zephyr/pkg/scan"
	"github.com/zephyr-sh/zephyr/pkg/sign"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

var log = logger.New("install")

// State is a step of the install state machine.
type State string

const (
	StateIdle       State = "idle"
	StateCloned     State = "cloned"
	StateScanned    State = "scanned"
	StateValidated  State = "validated"
	StateInstalled  State = "installed"
	StateRolledBack State = "rolled_back"
)

// Confirmer is asked to approve installation when the scan produced
// warnings but no criticals; a non-interactive agent session must abort
// instead of being asked.
type Confirmer interface {
	ConfirmWarnings(findings []scan.Finding) (bool, error)
}

// Options configures one install run.
type Options struct {
	Source        string // git URL, or a local path when AllowLocal is set
	ExpectName    string // expected module name, empty to accept any
	Ref           string // branch/tag/commit to install, empty for default branch
	TempRoot      string // parent directory for scratch clones
	ModulesDir    string // destination root, "<modules_dir>/<name>"
	AllowLocal    bool
	Unsafe        bool // caller requested --unsafe (bypasses hook-detected abort)
	Force         bool // caller requested --force (overwrite an existing target)
	SkipScan      bool
	AllowUnsigned bool // unsigned-install capability already checked by caller

	Git         gitutil.Provider
	ScanOptions scan.Options
	Issuers     []sign.Issuer
	Session     permission.Session
	AuditLogger *audit.Logger
	Confirm     Confirmer
	Platform    platform.Current
}

// Result is the outcome of a completed (or rolled-back) install.
type Result struct {
	State        State
	Module       *manifest.Module
	ScanResult   *scan.Result
	InstalledDir string
}

// Run executes the full pipeline and returns once the module lands at its
// final target directory, or an error describing which step failed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{State: StateIdle}

	if opts.Git == nil {
		opts.Git = gitutil.System
	}

	tempDir, err := os.MkdirTemp(opts.TempRoot, "zephyr-install-*")
	if err != nil {
		return nil, zerr.Wrap(zerr.IOFailure, "failed to create temp directory", err)
	}
	rollback := func(cause error) (*Result, error) {
		result.State = StateRolledBack
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			log.Printf("failed to remove temp dir %s during rollback: %v", tempDir, rmErr)
		}
		audited(opts, "install", audit.OutcomeFailure, map[string]string{
			"source": opts.Source,
			"error":  cause.Error(),
		})
		return result, cause
	}

	// Step 1-2: resolve source, clone without checkout.
	if !opts.AllowLocal || isRemoteSource(opts.Source) {
		if err := opts.Git.Clone(ctx, opts.Source, opts.Ref, tempDir); err != nil {
			return rollback(zerr.Wrap(zerr.IOFailure, "clone failed", err))
		}
	} else {
		if err := copyLocalSource(opts.Source, tempDir); err != nil {
			return rollback(zerr.Wrap(zerr.IOFailure, "local source copy failed", err))
		}
	}
	result.State = StateCloned

	// Step 3: explicit checkout, then hook detection.
	if err := opts.Git.Checkout(ctx, tempDir, opts.Ref); err != nil {
		return rollback(zerr.Wrap(zerr.IOFailure, "checkout failed", err))
	}

	hookFindings, err := detectHooks(tempDir)
	if err != nil {
		return rollback(zerr.Wrap(zerr.Internal, "hook detection failed", err))
	}
	if len(hookFindings) > 0 && !opts.Unsafe {
		return rollback(zerr.New(zerr.SecurityDenied, "untrusted git hook present, rerun with --unsafe"))
	}
	if len(hookFindings) > 0 && opts.Unsafe {
		if !permission.CheckAndAudit(opts.AuditLogger, opts.Session, permission.UseUnsafe, "git hooks present, --unsafe requested") {
			return rollback(zerr.New(zerr.PermissionDenied, "unsafe capability required to install with git hooks present"))
		}
	}

	// Step 4: security scan.
	var scanResult *scan.Result
	if !opts.SkipScan {
		scanResult = scan.Module(tempDir, opts.ScanOptions)
		if !scanResult.Success {
			return rollback(zerr.Newf(zerr.Internal, "scan failed: %s", scanResult.ErrorMessage))
		}
		if scanResult.EffectiveCriticalCount() > 0 {
			return rollback(zerr.New(zerr.SecurityDenied, "critical security findings detected, install aborted"))
		}
		if scanResult.WarningCount > 0 {
			approved, err := confirmWarnings(opts, scanResult.Findings)
			if err != nil {
				return rollback(zerr.Wrap(zerr.Internal, "confirmation failed", err))
			}
			if !approved {
				return rollback(zerr.New(zerr.SecurityDenied, "install aborted: warnings not confirmed"))
			}
		}
	}
	result.ScanResult = scanResult
	result.State = StateScanned

	// Step 5: manifest parse and validation.
	m, err := manifest.Parse(tempDir)
	if err != nil {
		return rollback(err)
	}
	m.Path = tempDir
	if opts.ExpectName != "" && m.Name != opts.ExpectName {
		return rollback(zerr.Newf(zerr.Invalid, "expected module %q, found %q", opts.ExpectName, m.Name))
	}
	if !platform.IsCompatible(m, opts.Platform) {
		return rollback(zerr.Newf(zerr.Invalid, "module incompatible with this platform: %s", platform.Reason(m, opts.Platform)))
	}
	if err := m.ValidateFilesExist(); err != nil {
		return rollback(err)
	}

	// Step 6: signature verification.
	signatureVerified := false
	if len(opts.Issuers) > 0 {
		sigPath := filepath.Join(tempDir, "module.toml.sig")
		if sigBytes, err := os.ReadFile(sigPath); err == nil {
			_, issuer, verr := sign.VerifyAny(sigBytes, opts.Issuers)
			if verr != nil {
				return rollback(zerr.Wrap(zerr.Internal, "signature verification failed", verr))
			}
			signatureVerified = issuer != nil
		}
	}
	if !signatureVerified && !opts.AllowUnsigned {
		return rollback(zerr.New(zerr.SecurityDenied, "unsigned-install capability required to install an unsigned module"))
	}
	result.State = StateValidated

	// Step 7: atomic move to target.
	target := filepath.Join(opts.ModulesDir, m.Name)
	if _, statErr := os.Stat(target); statErr == nil {
		if !opts.Force {
			return rollback(zerr.Newf(zerr.Conflict, "module %q already installed", m.Name))
		}
		if !permission.CheckAndAudit(opts.AuditLogger, opts.Session, permission.Uninstall, "overwriting existing install with --force") {
			return rollback(zerr.New(zerr.PermissionDenied, "uninstall capability required to overwrite an existing install with --force"))
		}
		if err := os.RemoveAll(target); err != nil {
			return rollback(zerr.Wrap(zerr.IOFailure, "failed to remove existing install", err))
		}
	}
	if err := os.MkdirAll(opts.ModulesDir, 0755); err != nil {
		return rollback(zerr.Wrap(zerr.IOFailure, "failed to create modules directory", err))
	}
	if err := os.Rename(tempDir, target); err != nil {
		return rollback(zerr.Wrap(zerr.IOFailure, "atomic move to target failed", err))
	}

	m.Path = target
	result.Module = m
	result.InstalledDir = target
	result.State = StateInstalled

	audited(opts, "install", audit.OutcomeSuccess, map[string]string{
		"module":              m.Name,
		"source":              opts.Source,
		"signature_verified":  boolString(signatureVerified),
	})

	return result, nil
}

func confirmWarnings(opts Options, findings []scan.Finding) (bool, error) {
	if opts.Confirm == nil {
		return false, nil
	}
	return opts.Confirm.ConfirmWarnings(findings)
}

func detectHooks(dir string) ([]string, error) {
	hooksDir := filepath.Join(dir, ".git", "hooks")
	entries, err := os.ReadDir(hooksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var hooks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == ".sample" {
			continue
		}
		hooks = append(hooks, e.Name())
	}
	return hooks, nil
}

func isRemoteSource(source string) bool {
	for _, prefix := range []string{"http://", "https://", "git://", "ssh://", "git@"} {
		if len(source) >= len(prefix) && source[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func copyLocalSource(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

func audited(opts Options, action string, outcome audit.Outcome, details map[string]string) {
	if opts.AuditLogger == nil {
		return
	}
	_ = opts.AuditLogger.Write(audit.Event{
		AgentID:   opts.Session.AgentID,
		AgentType: opts.Session.AgentType,
		SessionID: opts.Session.ID,
		Role:      string(opts.Session.Role),
		Category:  audit.CategoryOperation,
		Action:    action,
		Outcome:   outcome,
		Details:   details,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
