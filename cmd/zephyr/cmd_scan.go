package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/scan"
)

// scanSchemaVersion is the stable-within-a-major-version JSON report
// format.
const scanSchemaVersion = 1

type scanReport struct {
	SchemaVersion int               `json:"schema_version"`
	Source        scanSource        `json:"source"`
	Summary       scanSummary       `json:"scan_summary"`
	Recommend     string            `json:"policy_recommendation"`
	ExitCodeHint  int               `json:"exit_code_hint"`
	Findings      []scanFindingJSON `json:"findings"`
}

type scanSource struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Commit string `json:"commit,omitempty"`
}

type scanSummary struct {
	FilesScanned     int   `json:"files_scanned"`
	LinesScanned     int   `json:"lines_scanned"`
	DurationMs       int64 `json:"duration_ms"`
	CriticalFindings int   `json:"critical_findings"`
	WarningFindings  int   `json:"warning_findings"`
}

type scanFindingJSON struct {
	Severity       string `json:"severity"`
	Pattern        string `json:"pattern"`
	Description    string `json:"description"`
	File           string `json:"file"`
	Line           int    `json:"line"`
	Snippet        string `json:"snippet"`
	BypassRequired bool   `json:"bypass_required"`
}

func newScanCommand(rt *runtime) *cobra.Command {
	var (
		asJSON    bool
		isCommand bool
	)

	cmd := &cobra.Command{
		Use:   "scan <source|command>",
		Short: "Run the security scanner standalone against a module directory or a single command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rt.scanOptions()
			if err != nil {
				return err
			}

			target := args[0]
			started := time.Now()

			var report scanReport
			report.SchemaVersion = scanSchemaVersion

			if isCommand || !looksLikePath(target) {
				result := scan.Command(target, opts)
				report.Source = scanSource{Type: "command", URL: target}
				lines := strings.Count(target, "\n") + 1
				report.Summary = scanSummary{
					FilesScanned: 1,
					LinesScanned: lines,
					DurationMs:   time.Since(started).Milliseconds(),
				}
				for _, f := range result.Findings {
					report.Findings = append(report.Findings, toFindingJSON(f))
					if f.Pattern.Severity == scan.Critical {
						report.Summary.CriticalFindings++
					} else if f.Pattern.Severity == scan.Warning {
						report.Summary.WarningFindings++
					}
				}
			} else {
				result := scan.Module(target, opts)
				if !result.Success {
					return fmt.Errorf("scan failed: %s", result.ErrorMessage)
				}
				report.Source = scanSource{Type: "path", URL: target}
				report.Summary = scanSummary{
					FilesScanned:     result.FilesScanned,
					LinesScanned:     result.LinesScanned,
					DurationMs:       time.Since(started).Milliseconds(),
					CriticalFindings: result.EffectiveCriticalCount(),
					WarningFindings:  result.WarningCount,
				}
				for _, f := range result.Findings {
					fj := toFindingJSON(f)
					fj.BypassRequired = result.TrustedModuleApplied && f.Pattern.Severity == scan.Critical
					report.Findings = append(report.Findings, fj)
				}
			}

			switch {
			case report.Summary.CriticalFindings > 0:
				report.Recommend = "reject"
				report.ExitCodeHint = 2
			case report.Summary.WarningFindings > 0:
				report.Recommend = "confirm"
				report.ExitCodeHint = 1
			default:
				report.Recommend = "allow"
				report.ExitCodeHint = 0
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			printScanReport(report)
			if report.ExitCodeHint == 2 {
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as structured JSON")
	cmd.Flags().BoolVar(&isCommand, "command", false, "force treating the argument as a literal command rather than a path")
	return cmd
}

func toFindingJSON(f scan.Finding) scanFindingJSON {
	return scanFindingJSON{
		Severity:    f.Pattern.Severity.String(),
		Pattern:     f.Pattern.Source,
		Description: f.Pattern.Description,
		File:        f.FilePath,
		Line:        f.LineNumber,
		Snippet:     f.LineText,
	}
}

func looksLikePath(s string) bool {
	if strings.ContainsAny(s, "\n|&;$") {
		return false
	}
	if _, err := os.Stat(s); err == nil {
		return true
	}
	return filepath.IsAbs(s) || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

func printScanReport(r scanReport) {
	switch r.Recommend {
	case "reject":
		fmt.Println(console.FormatErrorMessage(fmt.Sprintf("%d critical finding(s)", r.Summary.CriticalFindings)))
	case "confirm":
		fmt.Println(console.FormatWarningMessage(fmt.Sprintf("%d warning finding(s)", r.Summary.WarningFindings)))
	default:
		fmt.Println(console.FormatSuccessMessage("no findings"))
	}
	for _, f := range r.Findings {
		fmt.Print(console.FormatError(console.ScanIssue{
			Position: console.ErrorPosition{File: f.File, Line: f.Line},
			Type:     severityToIssueType(f.Severity),
			Message:  fmt.Sprintf("%s (%s)", f.Description, f.Pattern),
			Context:  []string{f.Snippet},
		}))
	}
}

func severityToIssueType(severity string) string {
	switch severity {
	case scan.Critical.String():
		return "critical"
	case scan.Warning.String():
		return "warning"
	default:
		return "info"
	}
}
