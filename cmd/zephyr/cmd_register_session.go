package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zephyr-sh/zephyr/pkg/audit"
	"github.com/zephyr-sh/zephyr/pkg/console"
	"github.com/zephyr-sh/zephyr/pkg/permission"
)

func newRegisterSessionCommand(rt *runtime) *cobra.Command {
	var agentID, agentType, sessionID string

	cmd := &cobra.Command{
		Use:   "register-session",
		Short: "Register the current agent session's identity and role for later permission checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := permission.NewSession()
			if sessionID != "" {
				sess.ID = sessionID
			}
			if agentID != "" {
				sess.AgentID = agentID
			}
			if agentType != "" {
				sess.AgentType = agentType
				sess.Role = permission.RoleFor(agentType)
			}

			rt.sessions.Register(sess)
			rt.sessions.Save()

			_ = rt.audit.Write(audit.Event{
				AgentID:   sess.AgentID,
				AgentType: sess.AgentType,
				SessionID: sess.ID,
				Role:      string(sess.Role),
				Category:  audit.CategorySession,
				Action:    "register",
				Outcome:   audit.OutcomeSuccess,
			})

			fmt.Printf("export %s=%s\n", "ZEPHYR_SESSION_ID", sess.ID)
			fmt.Println(console.FormatInfoMessage(fmt.Sprintf("registered session %s as role %s", sess.ID, sess.Role)))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "register under this session ID instead of a freshly generated one")
	cmd.Flags().StringVar(&agentID, "agent-id", "", "override the detected agent identifier")
	cmd.Flags().StringVar(&agentType, "agent-type", "", "override the detected agent type")
	return cmd
}
