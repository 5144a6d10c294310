package domain

import (
	"fmt"
	"strings"
)

// Scope action constants for registry operations.
const (
	ScopeActionPull = "pull"
	ScopeActionPush = "push"
)

// ScopeTypeRepository is the only resource type the token server grants
// access for.
const ScopeTypeRepository = "repository"

// Scope represents a registry access scope (repository:name:actions).
// Format follows the Docker Registry v2 token scope specification.
type Scope struct {
	Type    string   // "repository" for repository access
	Name    string   // "owner/name" or a bare official name
	Actions []string // requested actions, e.g. ["pull", "push"]
}

// ParseScope parses a registry v2 scope string into a Scope struct.
// Format: type:name:action1,action2 (e.g. "repository:alice/app:pull,push").
// The scope must have exactly three colon-separated segments; anything
// else is malformed.
func ParseScope(s string) (*Scope, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid scope format: %q", s)
	}

	scope := &Scope{
		Type:    parts[0],
		Name:    parts[1],
		Actions: strings.Split(parts[2], ","),
	}

	for i, action := range scope.Actions {
		scope.Actions[i] = strings.TrimSpace(action)
	}

	return scope, nil
}

// RequestsAction reports whether the scope asks for the given action.
func (s *Scope) RequestsAction(action string) bool {
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// String returns the scope as a string in registry v2 format.
func (s *Scope) String() string {
	return fmt.Sprintf("%s:%s:%s", s.Type, s.Name, strings.Join(s.Actions, ","))
}

// AccessGrant is one entry of a token's access claim: the actions
// actually granted on a resource. Grants are built fresh per token
// request and never persisted.
type AccessGrant struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}
