package auth

import (
	"strings"

	"github.com/fluxorio/mtp/pkg/web"
)

// RequireRole requires the principal to hold role
func RequireRole(role string) web.FastMiddleware {
	return RequireAnyRole(role)
}

// RequireAnyRole requires at least one of roles
func RequireAnyRole(roles ...string) web.FastMiddleware {
	return require(func(p *Principal) bool { return p.HasAnyRole(roles...) }, roles)
}

// RequireAllRoles requires every one of roles
func RequireAllRoles(roles ...string) web.FastMiddleware {
	return require(func(p *Principal) bool { return p.HasAllRoles(roles...) }, roles)
}

func require(allowed func(*Principal) bool, roles []string) web.FastMiddleware {
	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			p := PrincipalFrom(ctx)
			if p == nil {
				return ctx.Fail(401, "UNAUTHORIZED", "authentication required")
			}
			if !allowed(p) {
				return ctx.Fail(403, "FORBIDDEN", "requires role "+strings.Join(roles, ", "))
			}
			return next(ctx)
		}
	}
}
