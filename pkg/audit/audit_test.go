package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zephyr-sh/zephyr/pkg/testutil"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestWriteCreatesDatedLogFile(t *testing.T) {
	base := testutil.TempDir(t, "audit-*")
	logger := NewLogger(base)

	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	err := logger.Write(Event{
		Timestamp: ts,
		Category:  CategoryOperation,
		Action:    "install",
		Outcome:   OutcomeSuccess,
		Details:   map[string]string{"module": "git-tools"},
	})
	require.NoError(t, err)

	path := filepath.Join(base, "operation", "2026-07-30", "operation.log")
	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "install", decoded.Action)
	assert.Equal(t, OutcomeSuccess, decoded.Outcome)
}

func TestWriteAppendsMultipleEvents(t *testing.T) {
	base := testutil.TempDir(t, "audit-*")
	logger := NewLogger(base)
	ts := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, logger.Write(Event{Timestamp: ts, Category: CategoryCommand, Action: "scan", Outcome: OutcomeSuccess}))
	}

	path := filepath.Join(base, "command", "2026-07-30", "command.log")
	lines := readLines(t, path)
	assert.Len(t, lines, 3)
}

func TestWriteSanitizesDetails(t *testing.T) {
	base := testutil.TempDir(t, "audit-*")
	logger := NewLogger(base)
	ts := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	err := logger.Write(Event{
		Timestamp: ts,
		Category:  CategoryPermission,
		Action:    "permission_denied",
		Outcome:   OutcomeDenied,
		Details:   map[string]string{"reason": "token is GITHUB_TOKEN leaked"},
	})
	require.NoError(t, err)

	path := filepath.Join(base, "permission", "2026-07-30", "permission.log")
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "GITHUB_TOKEN")
	assert.Contains(t, lines[0], "REDACTED")
}

func TestWriteDefaultsTimestampWhenZero(t *testing.T) {
	base := testutil.TempDir(t, "audit-*")
	logger := NewLogger(base)

	err := logger.Write(Event{Category: CategorySession, Action: "register", Outcome: OutcomeSuccess})
	require.NoError(t, err)

	today := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(base, "session", today, "session.log")
	lines := readLines(t, path)
	require.Len(t, lines, 1)
}

func TestPruneRemovesOldDirectories(t *testing.T) {
	base := testutil.TempDir(t, "audit-*")

	oldDir := filepath.Join(base, "operation", "2020-01-01")
	newDir := filepath.Join(base, "operation", time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, os.MkdirAll(oldDir, 0755))
	require.NoError(t, os.MkdirAll(newDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "operation.log"), []byte("{}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "operation.log"), []byte("{}\n"), 0644))

	logger := NewLogger(base)
	require.NoError(t, logger.Prune(30))

	_, err := os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newDir)
	assert.NoError(t, err)
}

func TestPruneOnMissingBaseDirIsNoOp(t *testing.T) {
	logger := NewLogger(filepath.Join(testutil.TempDir(t, "audit-*"), "does-not-exist"))
	assert.NoError(t, logger.Prune(30))
}
