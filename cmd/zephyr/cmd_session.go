package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
)

func newSessionCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session's identity and resolved role",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := rt.session()
			fmt.Println(console.FormatInfoMessage(fmt.Sprintf(
				"session=%s agent_id=%s agent_type=%s role=%s",
				sess.ID, orDash(sess.AgentID), orDash(sess.AgentType), sess.Role)))
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
