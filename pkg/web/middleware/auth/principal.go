// Package auth authenticates API and websocket clients with JWT bearer
// tokens and enforces role requirements.
package auth

import (
	"github.com/fluxorio/mtp/pkg/web"
)

// Principal is an authenticated identity
type Principal struct {
	Login string   `json:"login"`
	Roles []string `json:"roles"`
}

// HasAnyRole reports whether the principal holds one of roles. A nil
// principal holds none.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, want := range roles {
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasAllRoles reports whether the principal holds every role
func (p *Principal) HasAllRoles(roles ...string) bool {
	if p == nil {
		return len(roles) == 0
	}
	for _, want := range roles {
		if !p.HasAnyRole(want) {
			return false
		}
	}
	return true
}

// PrincipalFrom returns the principal set by the JWT middleware, nil when anonymous
func PrincipalFrom(ctx *web.FastRequestContext) *Principal {
	p, _ := ctx.Get(web.PrincipalKey).(*Principal)
	return p
}
