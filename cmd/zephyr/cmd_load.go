package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/discover"
	"github.com/zephyr-sh/zephyr/pkg/emit"
	"github.com/zephyr-sh/zephyr/pkg/platform"
	"github.com/zephyr-sh/zephyr/pkg/resolve"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

func newLoadCommand(rt *runtime) *cobra.Command {
	var skipIncompatible bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Emit the shell snippet that loads every resolvable module",
		Long: `load discovers every installed module, drops those incompatible with the
running platform, resolves the dependency order, and writes a shell
snippet to stdout. Shells source it with:

  eval "$(zephyr load)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := discover.Discover(rt.modulesDir, discover.DefaultMaxDepth, rt.cache)
			if err != nil {
				return err
			}
			for _, skipped := range result.Skipped {
				fmt.Fprintln(os.Stderr, formatSkipped(skipped.Path, skipped.Err))
			}

			cur := platform.Detect(os.Getenv("SHELL_VERSION"))
			filtered := result.Modules[:0]
			for _, m := range result.Modules {
				if platform.IsCompatible(m, cur) {
					filtered = append(filtered, m)
				} else if !skipIncompatible {
					fmt.Fprintln(os.Stderr, formatSkipped(m.Path, zerr.Newf(zerr.Invalid, "%s", platform.Reason(m, cur))))
				}
			}

			ordered, err := resolve.Resolve(filtered)
			if err != nil {
				return err
			}

			rt.cache.Save()

			sess := rt.session()
			out := emit.Modules(ordered, emit.Options{
				SessionID:   sess.ID,
				AgentID:     sess.AgentID,
				AgentType:   sess.AgentType,
				RegisterCmd: "zephyr register-session",
			})
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipIncompatible, "quiet-incompatible", false, "don't warn about platform-incompatible modules")
	return cmd
}

func formatSkipped(path string, err error) string {
	return fmt.Sprintf("skip %s: %v", path, err)
}
