package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

// Build-time version, set by the release pipeline; "dev" for local builds.
var version = "dev"

var (
	verboseFlag bool
	debugFlag   bool
	traceFlag   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:     constants.CLIName,
	Short:   "Zephyr — a shell-module package manager",
	Version: version,
	Long: `Zephyr manages shell modules: portable, versioned bundles of aliases,
functions, and environment settings that install, update, and load the
same way across machines and agent sessions.

Common tasks:
  zephyr install <source>      # install a module from a git source
  zephyr load                  # emit the shell snippet to eval
  zephyr list                  # list installed modules
  zephyr scan <source>         # run the security scanner standalone
  zephyr update                # fetch and apply available updates

For detailed help on any command, use:
  zephyr [command] --help`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "lifecycle", Title: "Module Lifecycle:"})
	rootCmd.AddGroup(&cobra.Group{ID: "security", Title: "Security & Sessions:"})

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "enable trace-level output (implies --debug)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	rootCmd.SetOut(os.Stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n",
		console.FormatInfoMessage(fmt.Sprintf("%s version {{.Version}}", constants.CLIName))))

	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		for _, sub := range cmd.Commands() {
			if sub.Name() == "completion" {
				sub.Hidden = true
			}
		}
		originalHelpFunc(cmd, args)
	})

	rt := newRuntime()

	loadCmd := newLoadCommand(rt)
	loadCmd.GroupID = "core"
	listCmd := newListCommand(rt)
	listCmd.GroupID = "core"
	validateCmd := newValidateCommand(rt)
	validateCmd.GroupID = "core"
	initModCmd := newInitCommand()
	initModCmd.GroupID = "core"

	installCmd := newInstallCommand(rt)
	installCmd.GroupID = "lifecycle"
	updateCmd := newUpdateCommand(rt)
	updateCmd.GroupID = "lifecycle"
	uninstallCmd := newUninstallCommand(rt)
	uninstallCmd.GroupID = "lifecycle"
	scanCmd := newScanCommand(rt)
	scanCmd.GroupID = "lifecycle"

	sessionCmd := newSessionCommand(rt)
	sessionCmd.GroupID = "security"
	sessionsCmd := newSessionsCommand(rt)
	sessionsCmd.GroupID = "security"
	registerSessionCmd := newRegisterSessionCommand(rt)
	registerSessionCmd.GroupID = "security"
	auditCmd := newAuditCommand(rt)
	auditCmd.GroupID = "security"

	rootCmd.AddCommand(
		loadCmd, listCmd, validateCmd, initModCmd,
		installCmd, updateCmd, uninstallCmd, scanCmd,
		sessionCmd, sessionsCmd, registerSessionCmd, auditCmd,
		newVersionCommand(),
	)
}

func main() {
	cobra.EnableCommandSorting = false

	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		noColorFlag = true
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(zerr.ExitCode(err))
	}
}
