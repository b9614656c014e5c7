// Package update implements the update pipeline: fetch a module's new
// head, reuse the install pipeline's checkout/scan/validate steps against
// it, and roll back to the pre-fetch ref on any critical finding.
package update

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

var log = logger.New("update")

// Options configures one update run against an already-installed module
// directory.
type Options struct {
	InstalledDir string // the module's existing <modules_dir>/<name> directory
	Unsafe       bool
	SkipScan     bool
	Force        bool

	Git         gitutil.Provider
	ScanOptions scan.Options
	Issuers     []sign.Issuer
	Session     permission.Session
	AuditLogger *audit.Logger
	Confirm     confirmer
	Platform    platform.Current
}

// confirmer mirrors install.Confirmer's shape without importing
// pkg/install, so pkg/install can later call into pkg/update (e.g. for
// `zephyr update --check`) without a dependency cycle.
type confirmer interface {
	ConfirmWarnings(findings []scan.Finding) (bool, error)
}

// Result is the outcome of an update attempt.
type Result struct {
	Updated    bool
	FromCommit string
	ToCommit   string
	Module     *manifest.Module
	ScanResult *scan.Result
}

// CheckOnly fetches remote refs and reports whether a new head is
// available, without touching the working tree (`zephyr update --check`).
func CheckOnly(ctx context.Context, opts Options) (hasUpdate bool, currentCommit string, err error) {
	if opts.Git == nil {
		opts.Git = gitutil.System
	}
	currentCommit, err = opts.Git.HeadCommit(ctx, opts.InstalledDir)
	if err != nil {
		return false, "", zerr.Wrap(zerr.IOFailure, "failed to read current head commit", err)
	}
	if err := opts.Git.Fetch(ctx, opts.InstalledDir); err != nil {
		return false, "", zerr.Wrap(zerr.IOFailure, "fetch failed", err)
	}
	// A bare fetch only updates remote-tracking refs; determining whether
	// they differ from the checked-out HEAD is provider-specific beyond
	// what the Provider interface exposes (no "remote head" accessor), so
	// CheckOnly conservatively reports "has update" whenever the fetch
	// succeeds and leaves the precise diff to Run's fast-forward attempt.
	return true, currentCommit, nil
}

// Run fetches the module's new head and, if the scan/validate steps pass,
// fast-forwards the installed directory in place. On any failure the
// working tree is rolled back to the pre-fetch ref.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Git == nil {
		opts.Git = gitutil.System
	}

	preFetchRef, err := opts.Git.HeadCommit(ctx, opts.InstalledDir)
	if err != nil {
		return nil, zerr.Wrap(zerr.IOFailure, "failed to read pre-fetch head", err)
	}

	rollback := func(cause error) (*Result, error) {
		if err := opts.Git.Checkout(ctx, opts.InstalledDir, preFetchRef); err != nil {
			log.Printf("rollback checkout to %s failed: %v", preFetchRef, err)
		}
		audited(opts, audit.OutcomeFailure, map[string]string{
			"from_commit": preFetchRef,
			"error":       cause.Error(),
		})
		return &Result{Updated: false, FromCommit: preFetchRef}, cause
	}

	if err := opts.Git.Fetch(ctx, opts.InstalledDir); err != nil {
		return rollback(zerr.Wrap(zerr.IOFailure, "fetch failed", err))
	}
	if err := opts.Git.Checkout(ctx, opts.InstalledDir, ""); err != nil {
		return rollback(zerr.Wrap(zerr.IOFailure, "checkout of fetched head failed", err))
	}

	newRef, err := opts.Git.HeadCommit(ctx, opts.InstalledDir)
	if err != nil {
		return rollback(zerr.Wrap(zerr.IOFailure, "failed to read post-fetch head", err))
	}

	hooks, err := detectHooks(opts.InstalledDir)
	if err != nil {
		return rollback(zerr.Wrap(zerr.Internal, "hook detection failed", err))
	}
	if len(hooks) > 0 && !opts.Unsafe {
		return rollback(zerr.New(zerr.SecurityDenied, "untrusted git hook present, rerun with --unsafe"))
	}

	var scanResult *scan.Result
	if !opts.SkipScan {
		scanResult = scan.Module(opts.InstalledDir, opts.ScanOptions)
		if !scanResult.Success {
			return rollback(zerr.Newf(zerr.Internal, "scan failed: %s", scanResult.ErrorMessage))
		}
		if scanResult.EffectiveCriticalCount() > 0 {
			return rollback(zerr.New(zerr.SecurityDenied, "critical security findings at new head, update rolled back"))
		}
		if scanResult.WarningCount > 0 {
			if opts.Confirm == nil {
				return rollback(zerr.New(zerr.SecurityDenied, "update aborted: warnings require confirmation in a non-interactive session"))
			}
			approved, err := opts.Confirm.ConfirmWarnings(scanResult.Findings)
			if err != nil {
				return rollback(zerr.Wrap(zerr.Internal, "confirmation failed", err))
			}
			if !approved {
				return rollback(zerr.New(zerr.SecurityDenied, "update aborted: warnings not confirmed"))
			}
		}
	}

	m, err := manifest.Parse(opts.InstalledDir)
	if err != nil {
		return rollback(err)
	}
	m.Path = opts.InstalledDir

	if !platform.IsCompatible(m, opts.Platform) {
		return rollback(zerr.Newf(zerr.Invalid, "module incompatible with this platform: %s", platform.Reason(m, opts.Platform)))
	}
	if err := m.ValidateFilesExist(); err != nil {
		return rollback(err)
	}

	audited(opts, audit.OutcomeSuccess, map[string]string{
		"module":      m.Name,
		"from_commit": preFetchRef,
		"to_commit":   newRef,
	})

	return &Result{
		Updated:    preFetchRef != newRef,
		FromCommit: preFetchRef,
		ToCommit:   newRef,
		Module:     m,
		ScanResult: scanResult,
	}, nil
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
		if e.IsDir() || filepath.Ext(e.Name()) == ".sample" {
			continue
		}
		hooks = append(hooks, e.Name())
	}
	return hooks, nil
}

func audited(opts Options, outcome audit.Outcome, details map[string]string) {
	if opts.AuditLogger == nil {
		return
	}
	_ = opts.AuditLogger.Write(audit.Event{
		AgentID:   opts.Session.AgentID,
		AgentType: opts.Session.AgentType,
		SessionID: opts.Session.ID,
		Role:      string(opts.Session.Role),
		Category:  audit.CategoryOperation,
		Action:    "update",
		Outcome:   outcome,
		Details:   details,
	})
}
