// Package gitutil wraps the git binary behind a small Provider interface so
// the install and update pipelines never shell out directly. All of Zephyr's
// git usage is read-only clone/fetch/checkout of a module's repository.
package gitutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/cli/safeexec"
	"github.com/zephyr-sh/zephyr/pkg/logger"
)

var log = logger.New("gitutil")

// Provider is the opaque git transport a module source resolves through.
// Implementations must never execute arbitrary module content; every method
// here maps to a single well-known git subcommand.
type Provider interface {
	// Clone clones ref (a branch, tag, or empty for the default branch) of
	// repoURL into dir without checking out a working tree, so the caller
	// can scan the object database before any file lands on disk.
	Clone(ctx context.Context, repoURL, ref, dir string) error

	// Checkout materializes the working tree at the given ref inside an
	// already-cloned dir.
	Checkout(ctx context.Context, dir, ref string) error

	// Fetch updates an existing clone's remote refs without touching the
	// working tree.
	Fetch(ctx context.Context, dir string) error

	// HeadCommit returns the current HEAD commit SHA of dir.
	HeadCommit(ctx context.Context, dir string) (string, error)
}

// execProvider shells out to the system git binary, resolved once via
// safeexec to avoid PATH-relative lookup surprises.
type execProvider struct {
	once sync.Once
	path string
	err  error
}

// System is the default Provider, backed by the git binary on PATH.
var System Provider = &execProvider{}

func (p *execProvider) binary() (string, error) {
	p.once.Do(func() {
		p.path, p.err = safeexec.LookPath("git")
	})
	if p.err != nil {
		return "", fmt.Errorf("gitutil: git not found: %w", p.err)
	}
	return p.path, nil
}

func (p *execProvider) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin, err := p.binary()
	if err != nil {
		return "", err
	}
	log.Printf("run: git %s (dir=%s)", strings.Join(args, " "), dir)
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

func (p *execProvider) Clone(ctx context.Context, repoURL, ref, dir string) error {
	args := []string{"clone", "--no-checkout", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, repoURL, dir)
	_, err := p.run(ctx, "", args...)
	return err
}

func (p *execProvider) Checkout(ctx context.Context, dir, ref string) error {
	if ref == "" {
		ref = "HEAD"
	}
	_, err := p.run(ctx, dir, "checkout", ref, "--", ".")
	return err
}

func (p *execProvider) Fetch(ctx context.Context, dir string) error {
	_, err := p.run(ctx, dir, "fetch", "--depth", "1", "origin")
	return err
}

func (p *execProvider) HeadCommit(ctx context.Context, dir string) (string, error) {
	out, err := p.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsAuthError reports whether an error message indicates a git authentication
// failure (missing credentials, expired token, access denied), used to
// render a clearer diagnostic than the raw git stderr.
func IsAuthError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "authentication") ||
		strings.Contains(lowerMsg, "could not read username") ||
		strings.Contains(lowerMsg, "not logged into") ||
		strings.Contains(lowerMsg, "unauthorized") ||
		strings.Contains(lowerMsg, "forbidden") ||
		strings.Contains(lowerMsg, "permission denied")
}

// IsHexString reports whether s is non-empty and contains only hexadecimal
// characters, the form of a full or abbreviated git commit SHA.
func IsHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
