// Package permission implements the session/role/capability engine: agent
// detection from environment variables, role-to-capability mapping, and
// permission checks with audit-on-deny.
package permission

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zephyr-sh/zephyr/pkg/audit"
	"github.com/zephyr-sh/zephyr/pkg/constants"
	"github.com/zephyr-sh/zephyr/pkg/logger"
)

var log = logger.New("permission")

// Capability is a distinct permission-gated action.
type Capability string

const (
	Install             Capability = "install"
	InstallUnsigned     Capability = "install_unsigned"
	UseUnsafe           Capability = "use_unsafe"
	Uninstall           Capability = "uninstall"
	ModifyConfig        Capability = "modify_config"
	RequireConfirmation Capability = "require_confirmation"
)

// Role is the coarse-grained permission bucket a session maps to.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// roleCapabilities is the default role→capability table,
// overridable via config (not yet wired: security.toml role overrides are
// an Open Question left to a future config layer, see DESIGN.md).
var roleCapabilities = map[Role]map[Capability]bool{
	RoleUser: {
		Install:             true,
		InstallUnsigned:     true,
		UseUnsafe:           true,
		Uninstall:           true,
		ModifyConfig:        true,
		RequireConfirmation: true,
	},
	RoleAgent: {
		Install:             true,
		InstallUnsigned:     false,
		UseUnsafe:           false,
		Uninstall:           false,
		ModifyConfig:        false,
		RequireConfirmation: false,
	},
	RoleAdmin: {
		Install:             true,
		InstallUnsigned:     true,
		UseUnsafe:           true,
		Uninstall:           true,
		ModifyConfig:        true,
		RequireConfirmation: true,
	},
}

// agentEnvPrecedence is the ordered list of environment variables checked
// to detect a known coding-agent session, highest precedence first
// (Anthropic, Cursor, GitHub Copilot, then a generic ZEPHYR_AGENT_* escape
// hatch).
var agentEnvPrecedence = []struct {
	env       string
	agentType string
}{
	{"CLAUDE_CODE_ENTRYPOINT", "claude-code"},
	{"ANTHROPIC_AGENT", "anthropic"},
	{"CURSOR_AGENT", "cursor"},
	{"GITHUB_COPILOT_AGENT", "github-copilot"},
}

// Session is a registered shell session.
type Session struct {
	ID        string
	AgentID   string
	AgentType string
	Role      Role
}

// DetectAgentType inspects the precedence list of environment variables
// and returns the detected agent type, or "human" if none are set.
func DetectAgentType() string {
	for _, candidate := range agentEnvPrecedence {
		if v := os.Getenv(candidate.env); v != "" {
			return candidate.agentType
		}
	}
	if v := os.Getenv(constants.AgentTypeEnv); v != "" {
		return v
	}
	return "human"
}

// RoleFor maps an agent type to its default role.
func RoleFor(agentType string) Role {
	if isTruthy(os.Getenv(constants.AdminEnv)) {
		return RoleAdmin
	}
	if agentType == "human" || agentType == "" {
		return RoleUser
	}
	return RoleAgent
}

// NewSession builds a Session for the current process environment,
// generating a fresh per-shell session UUID via github.com/google/uuid.
func NewSession() Session {
	agentType := DetectAgentType()
	return Session{
		ID:        uuid.NewString(),
		AgentID:   os.Getenv(constants.AgentIDEnv),
		AgentType: agentType,
		Role:      RoleFor(agentType),
	}
}

// Registry holds sessions registered via `zephyr register-session`,
// looked up by ZEPHYR_SESSION_ID at permission-check time. Since each CLI
// invocation is a separate process, a Registry is only useful across
// invocations when backed by a snapshot file via Load/Save — each
// subcommand loads the registry, looks up or registers, and saves before
// exiting (the same load-mutate-save shape as pkg/cache's snapshot).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	path     string // snapshot file path, empty disables persistence
}

// NewRegistry returns an empty, in-memory-only session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// NewFileRegistry returns a registry persisted to path, loading any
// existing snapshot immediately.
func NewFileRegistry(path string) *Registry {
	r := &Registry{sessions: make(map[string]Session), path: path}
	r.Load()
	return r
}

// List returns every registered session, sorted by ID for deterministic
// output (`zephyr sessions`).
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Load best-effort restores a persisted snapshot; a missing or malformed
// file silently leaves the registry as-is (mirrors pkg/cache.Cache.Load).
func (r *Registry) Load() {
	if r.path == "" {
		return
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return
	}
	var sessions map[string]Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		log.Printf("corrupt session registry at %s, ignoring: %v", r.path, err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range sessions {
		r.sessions[id] = s
	}
}

// Save best-effort persists the registry; failure is logged but never
// fatal (mirrors pkg/cache.Cache.Save).
func (r *Registry) Save() {
	if r.path == "" {
		return
	}
	r.mu.RLock()
	data, err := json.Marshal(r.sessions)
	r.mu.RUnlock()
	if err != nil {
		log.Printf("failed to serialize session registry: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		log.Printf("failed to create session registry directory: %v", err)
		return
	}
	if err := os.WriteFile(r.path, data, 0600); err != nil {
		log.Printf("failed to write session registry: %v", err)
	}
}

// Register records a session so later CheckPermission calls under the same
// ZEPHYR_SESSION_ID resolve to its role.
func (r *Registry) Register(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Lookup returns the session registered for sessionID, if any.
func (r *Registry) Lookup(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// ResolveRole returns the effective role for the current process: the
// registered session's role when ZEPHYR_SESSION_ID names one, else
// RoleUser. This fails open so pre-shell-integration invocations remain
// usable.
func (r *Registry) ResolveRole() Role {
	sessionID := os.Getenv(constants.SessionIDEnv)
	if sessionID == "" {
		return RoleUser
	}
	if s, ok := r.Lookup(sessionID); ok {
		return s.Role
	}
	return RoleUser
}

// Check reports whether role grants cap.
func Check(role Role, cap Capability) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	return caps[cap]
}

// CheckAndAudit checks cap for the session and, on denial, writes a
// permission_denied audit event carrying the capability name and reason
//.
func CheckAndAudit(logger *audit.Logger, s Session, cap Capability, reason string) bool {
	if Check(s.Role, cap) {
		return true
	}
	if logger != nil {
		_ = logger.Write(audit.Event{
			AgentID:   s.AgentID,
			AgentType: s.AgentType,
			SessionID: s.ID,
			Role:      string(s.Role),
			Category:  audit.CategoryPermission,
			Action:    "permission_denied",
			Outcome:   audit.OutcomeDenied,
			Details: map[string]string{
				"capability": string(cap),
				"reason":     reason,
			},
		})
	}
	return false
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
