package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/audit"
	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

func newUninstallCommand(rt *runtime) *cobra.Command {
	var (
		force bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			sess := rt.session()

			if !permission.CheckAndAudit(rt.audit, sess, permission.Uninstall, "uninstall requested") {
				return zerr.New(zerr.PermissionDenied, "Uninstall capability required")
			}

			target := filepath.Join(rt.modulesDir, name)
			if _, err := os.Stat(target); err != nil {
				if os.IsNotExist(err) {
					return zerr.Newf(zerr.NotFound, "module %q is not installed", name)
				}
				return zerr.Wrap(zerr.IOFailure, "failed to stat module directory", err)
			}

			if !yes && !force {
				approved, err := console.ConfirmAction(fmt.Sprintf("Remove %s at %s?", name, target), "Remove", "Cancel")
				if err != nil {
					return zerr.Wrap(zerr.Internal, "confirmation failed", err)
				}
				if !approved {
					return zerr.New(zerr.Internal, "uninstall aborted: not confirmed")
				}
			}

			if err := os.RemoveAll(target); err != nil {
				return zerr.Wrap(zerr.IOFailure, "failed to remove module directory", err)
			}

			_ = rt.audit.Write(audit.Event{
				AgentID:   sess.AgentID,
				AgentType: sess.AgentType,
				SessionID: sess.ID,
				Role:      string(sess.Role),
				Category:  audit.CategoryOperation,
				Action:    "uninstall",
				Outcome:   audit.OutcomeSuccess,
				Details:   map[string]string{"module": name},
			})

			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("removed %s", name)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip confirmation")
	return cmd
}
