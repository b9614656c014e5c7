package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/install"
	"github.com/zephyr-sh/zephyr/pkg/permission"
	"github.com/zephyr-sh/zephyr/pkg/platform"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

func newInstallCommand(rt *runtime) *cobra.Command {
	var (
		unsafe        bool
		force         bool
		skipScan      bool
		local         bool
		ref           string
		expectName    string
		allowUnsigned bool
	)

	cmd := &cobra.Command{
		Use:   "install <source>",
		Short: "Install a module from a git source (or a local path with --local)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := rt.session()

			if unsafe && !permission.CheckAndAudit(rt.audit, sess, permission.UseUnsafe, "install --unsafe requested") {
				return zerr.New(zerr.PermissionDenied, "unsafe capability required for --unsafe")
			}
			if allowUnsigned && !permission.CheckAndAudit(rt.audit, sess, permission.InstallUnsigned, "install --allow-unsigned requested") {
				return zerr.New(zerr.PermissionDenied, "unsigned-install capability required for --allow-unsigned")
			}
			if !permission.CheckAndAudit(rt.audit, sess, permission.Install, "install requested") {
				return zerr.New(zerr.PermissionDenied, "Install capability required")
			}

			scanOpts, err := rt.scanOptions()
			if err != nil {
				return err
			}

			result, err := install.Run(cmd.Context(), install.Options{
				Source:        args[0],
				ExpectName:    expectName,
				Ref:           ref,
				ModulesDir:    rt.modulesDir,
				AllowLocal:    local,
				Unsafe:        unsafe,
				Force:         force,
				SkipScan:      skipScan,
				AllowUnsigned: allowUnsigned,
				ScanOptions:   scanOpts,
				Issuers:       rt.issuers(),
				Session:       sess,
				AuditLogger:   rt.audit,
				Confirm:       confirmerFor(sess.AgentType),
				Platform:      platform.Detect(os.Getenv("SHELL_VERSION")),
			})
			if err != nil {
				return err
			}

			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("installed %s to %s", result.Module.String(), result.InstalledDir)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&unsafe, "unsafe", false, "proceed even if a git hook is detected")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing install of the same module")
	cmd.Flags().BoolVar(&skipScan, "skip-scan", false, "skip the security scanner")
	cmd.Flags().BoolVar(&local, "local", false, "treat <source> as a local filesystem path")
	cmd.Flags().StringVar(&ref, "ref", "", "branch, tag, or commit to install")
	cmd.Flags().StringVar(&expectName, "expect-name", "", "fail unless the installed module's name matches")
	cmd.Flags().BoolVar(&allowUnsigned, "allow-unsigned", false, "allow installing a module with no valid signature")
	return cmd
}
