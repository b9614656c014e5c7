package scan

import "strings"

// lineKind is the classification of one source line.
type lineKind int

const (
	kindCode lineKind = iota
	kindComment
	kindHeredoc
	kindStringLiteral
)

// classifier folds across a file's lines, tracking heredoc state between
// lines. Only a single-line, balanced-quote approximation is attempted for
// string literals — multi-line single-quoted strings may leak findings
// across lines, an acknowledged false-negative class.
type classifier struct {
	inHeredoc    bool
	heredocTag   string
}

func newClassifier() *classifier {
	return &classifier{}
}

// Classify returns the kind of line, updating heredoc state as a side
// effect for the next call.
func (c *classifier) Classify(line string) lineKind {
	if c.inHeredoc {
		if strings.TrimSpace(line) == c.heredocTag {
			c.inHeredoc = false
			c.heredocTag = ""
		}
		return kindHeredoc
	}

	trimmed := strings.TrimSpace(line)

	if tag, ok := heredocOpener(trimmed); ok {
		c.inHeredoc = true
		c.heredocTag = tag
		return kindCode // the opener line itself is still code
	}

	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
		return kindComment
	}

	if isBalancedStringLiteralLine(trimmed) {
		return kindStringLiteral
	}

	return kindCode
}

// heredocOpener detects a `<<EOF`, `<<'EOF'`, `<<"EOF"`, or `<<-EOF` opener
// anywhere on the line and returns its terminating tag.
func heredocOpener(line string) (string, bool) {
	idx := strings.Index(line, "<<")
	if idx == -1 {
		return "", false
	}
	rest := line[idx+2:]
	rest = strings.TrimPrefix(rest, "-")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}

	end := 0
	for end < len(rest) {
		c := rest[end]
		if c == ' ' || c == '\t' || c == ';' || c == '|' || c == '&' {
			break
		}
		end++
	}
	tag := rest[:end]
	tag = strings.Trim(tag, `"'`)
	if tag == "" {
		return "", false
	}
	return tag, true
}

// isBalancedStringLiteralLine reports whether line consists entirely of a
// single quoted string (possibly with leading assignment syntax like
// `x = "..."`), with matching open/close quotes on the same line. This is
// deliberately conservative: it only suppresses lines that are *wholly*
// literal text, not lines that merely contain a quoted substring alongside
// other code.
func isBalancedStringLiteralLine(line string) bool {
	if line == "" {
		return false
	}
	for _, quote := range []byte{'"', '\''} {
		start := strings.IndexByte(line, quote)
		if start == -1 {
			continue
		}
		end := strings.LastIndexByte(line, quote)
		if end <= start {
			continue
		}
		prefix := strings.TrimSpace(line[:start])
		suffix := strings.TrimSpace(line[end+1:])
		if suffix != "" {
			continue
		}
		if prefix == "" || isAssignmentPrefix(prefix) || isEchoPrefix(prefix) {
			return true
		}
	}
	return false
}

func isAssignmentPrefix(prefix string) bool {
	eq := strings.IndexByte(prefix, '=')
	if eq <= 0 {
		return false
	}
	name := strings.TrimSpace(prefix[:eq])
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func isEchoPrefix(prefix string) bool {
	return prefix == "echo" || prefix == "print" || prefix == "printf"
}
