package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
)

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the zephyr version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Println(version)
				return nil
			}
			fmt.Println(console.FormatInfoMessage(fmt.Sprintf("zephyr version %s", version)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
