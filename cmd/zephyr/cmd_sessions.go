package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/console"
)

func newSessionsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List every registered session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := rt.sessions.List()
			if len(sessions) == 0 {
				fmt.Println(console.FormatInfoMessage("no registered sessions"))
				return nil
			}
			var items []string
			for _, s := range sessions {
				items = append(items, fmt.Sprintf("%s agent_id=%s agent_type=%s role=%s",
					s.ID, orDash(s.AgentID), orDash(s.AgentType), s.Role))
			}
			fmt.Println(console.RenderList(items, "•"))
			return nil
		},
	}
}
