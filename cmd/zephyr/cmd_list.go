package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/discover"
	"github.com/zephyr-sh/zephyr/pkg/platform"
)

func newListCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered modules and their platform compatibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := discover.Discover(rt.modulesDir, discover.DefaultMaxDepth, rt.cache)
			if err != nil {
				return err
			}
			rt.cache.Save()

			if len(result.Modules) == 0 {
				fmt.Println(console.FormatInfoMessage("no modules found in " + rt.modulesDir))
				return nil
			}

			cur := platform.Detect(os.Getenv("SHELL_VERSION"))
			var items []string
			for _, m := range result.Modules {
				status := "compatible"
				if !platform.IsCompatible(m, cur) {
					status = platform.Reason(m, cur)
				}
				items = append(items, fmt.Sprintf("%s — %s (%s)", m.String(), status, m.Path))
			}
			fmt.Println(console.RenderList(items, "•"))

			for _, skipped := range result.Skipped {
				fmt.Fprintln(os.Stderr, console.FormatWarningMessage(formatSkipped(skipped.Path, skipped.Err)))
			}
			return nil
		},
	}
	return cmd
}
