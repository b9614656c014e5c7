package scan

import (
	"bufio"
	"strings"

	"github.com/zephyr-sh/zephyr/pkg/constants"
)

// CommandResult is the outcome of scanning a single shell command string
//.
type CommandResult struct {
	HasFindings bool
	Severity    Severity
	Findings    []Finding
}

// Command applies opts.Patterns to a single multi-line command string:
// empty input carries no findings; an oversized command (beyond
// constants.CommandScannerOversizeThreshold) is itself treated as critical,
// since legitimate shell-hook commands never run that long. Otherwise the
// same line-classifier used by Module is applied per line.
func Command(command string, opts Options) *CommandResult {
	result := &CommandResult{Severity: Info}

	if strings.TrimSpace(command) == "" {
		return result
	}

	if len(command) > constants.CommandScannerOversizeThreshold {
		result.HasFindings = true
		result.Severity = Critical
		result.Findings = append(result.Findings, Finding{
			Pattern:    &Pattern{Severity: Critical, Description: "oversized command"},
			FilePath:   "<command>",
			LineNumber: 1,
			LineText:   "command exceeds maximum scannable length",
		})
		return result
	}

	classifier := newClassifier()
	scanner := bufio.NewScanner(strings.NewReader(command))
	scanner.Buffer(make([]byte, 0, 64*1024), opts.MaxLineLength+1)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) > opts.MaxLineLength {
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
			re, err := p.compile()
			if err != nil {
				continue
			}
			if re.MatchString(line) {
				f := Finding{
					Pattern:    p,
					FilePath:   "<command>",
					LineNumber: lineNo,
					LineText:   trimmed,
				}
				result.Findings = append(result.Findings, f)
				result.HasFindings = true
				if p.Severity > result.Severity {
					result.Severity = p.Severity
				}
			}
		}
	}

	return result
}
