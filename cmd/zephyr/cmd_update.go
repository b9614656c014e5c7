package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/discover"
	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/platform"
	"github.com/zephyr-sh/zephyr/pkg/update"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

func newUpdateCommand(rt *runtime) *cobra.Command {
	var (
		checkOnly bool
		unsafe    bool
		force     bool
		skipScan  bool
	)

	cmd := &cobra.Command{
		Use:   "update [module]",
		Short: "Fetch and apply available updates, or --check to report without applying",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := rt.session()
			if unsafe && !permission.CheckAndAudit(rt.audit, sess, permission.UseUnsafe, "update --unsafe requested") {
				return zerr.New(zerr.PermissionDenied, "unsafe capability required for --unsafe")
			}

			names, err := targetModules(rt, args)
			if err != nil {
				return err
			}

			scanOpts, err := rt.scanOptions()
			if err != nil {
				return err
			}
			cur := platform.Detect(os.Getenv("SHELL_VERSION"))

			for _, name := range names {
				dir := filepath.Join(rt.modulesDir, name)
				opts := update.Options{
					InstalledDir: dir,
					Unsafe:       unsafe,
					Force:        force,
					SkipScan:     skipScan,
					ScanOptions:  scanOpts,
					Issuers:      rt.issuers(),
					Session:      sess,
					AuditLogger:  rt.audit,
					Confirm:      confirmerFor(sess.AgentType),
					Platform:     cur,
				}

				if checkOnly {
					hasUpdate, current, err := update.CheckOnly(cmd.Context(), opts)
					if err != nil {
						return err
					}
					status := "up to date"
					if hasUpdate {
						status = "update available"
					}
					fmt.Println(console.FormatInfoMessage(fmt.Sprintf("%s (%s): %s", name, current, status)))
					continue
				}

				result, err := update.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if result.Updated {
					fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("%s: %s -> %s", name, result.FromCommit, result.ToCommit)))
				} else {
					fmt.Println(console.FormatInfoMessage(fmt.Sprintf("%s: already up to date", name)))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "report available updates without applying them")
	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "proceed even if a git hook is detected")
	cmd.Flags().BoolVar(&force, "force", false, "accepted but has no effect: updates always check out the fetched head over local changes to tracked files")
	cmd.Flags().BoolVar(&skipScan, "skip-scan", false, "skip the security scanner")
	return cmd
}

// targetModules returns args as-is when a module name is given, or every
// installed module's name otherwise.
func targetModules(rt *runtime, args []string) ([]string, error) {
	if len(args) == 1 {
		return args, nil
	}
	result, err := discover.Discover(rt.modulesDir, discover.DefaultMaxDepth, rt.cache)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Modules))
	for _, m := range result.Modules {
		names = append(names, m.Name)
	}
	return names, nil
}
