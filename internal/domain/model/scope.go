// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Scope identifies the population a leaderboard ranks over.
type Scope string

// Leaderboard scopes.
const (
	ScopeGlobal  Scope = "global"
	ScopeCountry Scope = "country"
	ScopeSession Scope = "session"
)

// ParseScope converts a string into a Scope. The empty string maps to
// ScopeGlobal so that unscoped queries default to the global leaderboard.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeCountry:
		return ScopeCountry, nil
	case ScopeSession:
		return ScopeSession, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Valid reports whether the scope is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeCountry, ScopeSession:
		return true
	default:
		return false
	}
}

// NeedsKey reports whether the scope requires a scope key (country code or
// session id) to identify its population.
func (s Scope) NeedsKey() bool {
	return s == ScopeCountry || s == ScopeSession
}

func (s Scope) String() string {
	return string(s)
}
