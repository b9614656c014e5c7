package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/audit"
	"github.com/zephyr-sh/zephyr/pkg/console"
)

var auditTypeToCategory = map[string]audit.Category{
	"operations": audit.CategoryOperation,
	"commands":   audit.CategoryCommand,
	"sessions":   audit.CategorySession,
	"permission": audit.CategoryPermission,
}

func newAuditCommand(rt *runtime) *cobra.Command {
	var (
		eventType string
		since     string
		agent     string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the append-only audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sinceTime time.Time
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q: must be YYYY-MM-DD", since)
				}
				sinceTime = t
			}

			var categories []audit.Category
			if eventType != "" {
				cat, ok := auditTypeToCategory[eventType]
				if !ok {
					return fmt.Errorf("unknown --type %q", eventType)
				}
				categories = []audit.Category{cat}
			} else {
				categories = []audit.Category{audit.CategoryOperation, audit.CategoryCommand, audit.CategorySession, audit.CategoryPermission}
			}

			events, err := readAuditEvents(rt.auditDir, categories, sinceTime, agent)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println(console.FormatInfoMessage("no matching audit events"))
				return nil
			}
			for _, ev := range events {
				fmt.Printf("%s [%s] %s %s outcome=%s agent=%s role=%s\n",
					ev.Timestamp.Format(time.RFC3339), ev.Category, ev.Action,
					ev.SessionID, ev.Outcome, orDash(ev.AgentID), orDash(ev.Role))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "filter by category: operations|commands|sessions|permission")
	cmd.Flags().StringVar(&since, "since", "", "only events on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&agent, "agent", "", "only events from this agent id")
	return cmd
}

// readAuditEvents walks <auditDir>/<category>/<date>/<category>.log for
// every requested category, parsing each JSONL line and applying the since/agent filters.
func readAuditEvents(auditDir string, categories []audit.Category, since time.Time, agent string) ([]audit.Event, error) {
	var events []audit.Event

	for _, cat := range categories {
		catDir := filepath.Join(auditDir, string(cat))
		dateDirs, err := os.ReadDir(catDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, dd := range dateDirs {
			if !dd.IsDir() {
				continue
			}
			if !since.IsZero() {
				if dayTime, err := time.Parse("2006-01-02", dd.Name()); err == nil && dayTime.Before(since) {
					continue
				}
			}
			logPath := filepath.Join(catDir, dd.Name(), string(cat)+".log")
			parsed, err := parseAuditLog(logPath)
			if err != nil {
				continue
			}
			for _, ev := range parsed {
				if agent != "" && ev.AgentID != agent {
					continue
				}
				if !since.IsZero() && ev.Timestamp.Before(since) {
					continue
				}
				events = append(events, ev)
			}
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func parseAuditLog(path string) ([]audit.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []audit.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var ev audit.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
