package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/stringutil"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

const moduleTemplate = `[module]
name = "%s"
version = "0.1.0"
description = ""

[dependencies]
required = []
optional = []

[platforms]
os = []
arch = []

[load]
priority = 100
files = ["%s.sh"]

[hooks]
pre_load = ""
post_load = ""

[settings]
`

const scriptTemplate = `# %s — add your aliases, functions, and exports below.
`

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Scaffold a new module directory with a starter module.toml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !stringutil.IsValidModuleName(name) {
				return zerr.Newf(zerr.Invalid, "invalid module name %q: must start with a letter, contain only letters, digits, '-' or '_', and be at most 50 characters", name)
			}
			if _, err := os.Stat(name); err == nil {
				return zerr.Newf(zerr.Conflict, "directory %q already exists", name)
			}
			if err := os.MkdirAll(name, 0755); err != nil {
				return zerr.Wrap(zerr.IOFailure, "failed to create module directory", err)
			}

			manifestPath := filepath.Join(name, "module.toml")
			if err := os.WriteFile(manifestPath, []byte(fmt.Sprintf(moduleTemplate, name, name)), 0644); err != nil {
				return zerr.Wrap(zerr.IOFailure, "failed to write module.toml", err)
			}

			scriptPath := filepath.Join(name, name+".sh")
			if err := os.WriteFile(scriptPath, []byte(fmt.Sprintf(scriptTemplate, name)), 0644); err != nil {
				return zerr.Wrap(zerr.IOFailure, "failed to write starter script", err)
			}

			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("scaffolded module %q in ./%s", name, name)))
			return nil
		},
	}
	return cmd
}
