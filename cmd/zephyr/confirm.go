package main

import (
	"fmt"
	"strings"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/scan"
)

// interactiveConfirmer renders scan warnings and asks the operator to
// approve them via console.ConfirmAction's huh-backed prompt. It satisfies
// both install.Confirmer and update.confirmer by structural typing — one
// adapter, no import coupling between those two pipeline packages.
type interactiveConfirmer struct{}

func (interactiveConfirmer) ConfirmWarnings(findings []scan.Finding) (bool, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d warning finding(s) detected:\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.FilePath, f.LineNumber, f.Pattern.Description)
	}
	b.WriteString("Proceed anyway?")
	return console.ConfirmAction(b.String(), "Proceed", "Abort")
}

// confirmerFor returns an interactive confirmer unless the session belongs
// to a non-interactive agent step 4: a non-interactive
// session must abort on warnings rather than be prompted.
func confirmerFor(agentType string) interface {
	ConfirmWarnings(findings []scan.Finding) (bool, error)
} {
	if agentType == "" || agentType == "human" {
		return interactiveConfirmer{}
	}
	return nil
}
