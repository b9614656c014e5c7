package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/platform"
)

func newValidateCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a module.toml and its declared load files without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			m, err := manifest.Parse(path)
			if err != nil {
				return err
			}
			if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
				path = dirOf(path)
			}
			m.Path = path

			if err := m.ValidateFilesExist(); err != nil {
				return err
			}

			cur := platform.Detect(os.Getenv("SHELL_VERSION"))
			if !platform.IsCompatible(m, cur) {
				fmt.Println(console.FormatWarningMessage(platform.Reason(m, cur)))
			}

			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("%s is valid", m.String())))
			return nil
		},
	}
	return cmd
}
