// Package audit implements the append-only JSONL audit log:
// one event per line under <home>/.zephyr/audit/<category>/<YYYY-MM-DD>/<category>.log,
// opened append+create and flushed before returning from every write.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/logger"
	"github.com/zephyr-sh/zephyr/pkg/stringutil"
)

var log = logger.New("audit")

// Category is the audit event category.
type Category string

const (
	CategoryOperation Category = "operation"
	CategoryCommand   Category = "command"
	CategorySession   Category = "session"
	CategoryPermission Category = "permission"
)

// Outcome is the result of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Event is one audit record. Details must never
// contain command arguments, file contents, or secrets; every string
// value is passed through stringutil.SanitizeErrorMessage before being
// written as a last line of defense.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	AgentID   string            `json:"agent_id,omitempty"`
	AgentType string            `json:"agent_type,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	Category  Category          `json:"event_category"`
	Action    string            `json:"event_action"`
	Outcome   Outcome           `json:"event_outcome"`
	Details   map[string]string `json:"details,omitempty"`
}

// Logger writes audit events to the per-category, per-day JSONL log.
type Logger struct {
	mu      sync.Mutex
	baseDir string
}

// NewLogger returns a Logger rooted at baseDir (normally
// "<home>/.zephyr/audit", see constants.DefaultAuditDir).
func NewLogger(baseDir string) *Logger {
	return &Logger{baseDir: baseDir}
}

// Write appends ev to today's log file for its category, sanitizing every
// detail value, creating the dated directory if needed, and flushing
// before returning.
func (l *Logger) Write(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Details = sanitizeDetails(ev.Details)

	dir := filepath.Join(l.baseDir, string(ev.Category), ev.Timestamp.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("failed to create audit directory %s: %v", dir, err)
		return err
	}

	path := filepath.Join(dir, string(ev.Category)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open audit log %s: %v", path, err)
		return err
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to marshal audit event: %v", err)
		return err
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		log.Printf("failed to write audit event to %s: %v", path, err)
		return err
	}
	return f.Sync()
}

func sanitizeDetails(details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	clean := make(map[string]string, len(details))
	for k, v := range details {
		clean[k] = stringutil.SanitizeErrorMessage(v)
	}
	return clean
}

// Prune removes dated category directories older than retentionDays
// (default constants.DefaultAuditRetentionDays) retention
// policy.
func (l *Logger) Prune(retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = constants.DefaultAuditRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	categories, err := os.ReadDir(l.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, categoryEntry := range categories {
		if !categoryEntry.IsDir() {
			continue
		}
		categoryDir := filepath.Join(l.baseDir, categoryEntry.Name())
		days, err := os.ReadDir(categoryDir)
		if err != nil {
			log.Printf("failed to read category dir %s: %v", categoryDir, err)
			continue
		}
		for _, dayEntry := range days {
			if !dayEntry.IsDir() {
				continue
			}
			day, err := time.Parse("2006-01-02", dayEntry.Name())
			if err != nil {
				continue
			}
			if day.Before(cutoff) {
				full := filepath.Join(categoryDir, dayEntry.Name())
				if err := os.RemoveAll(full); err != nil {
					log.Printf("failed to prune %s: %v", full, err)
				}
			}
		}
	}
	return nil
}
