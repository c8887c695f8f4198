package config

import "strings"

// LandingRoute is where every access failure redirects, regardless of the
// failure reason, so the response does not leak which check failed.
const LandingRoute = "/"

// Security describes the route protection table: which paths are public and
// which role, if any, a protected path requires. The fine-grained status and
// role checks live in the access guard; the edge filter only consults
// IsPublic.
type Security struct {
	PublicRoutes   []string
	ProtectedRoles map[string]string
}

// DefaultSecurity returns the route table for the application surface.
func DefaultSecurity() Security {
	return Security{
		PublicRoutes: []string{
			"/",
			"/auth/login",
			"/auth/register",
			"/auth/oauth/callback",
			// Logout and session introspection handle the cookie themselves
			// and must stay reachable for unapproved accounts, otherwise a
			// pending or rejected account could never sign out.
			"/auth/logout",
			"/auth/session",
			"/healthz",
			"/metrics",
		},
		ProtectedRoles: map[string]string{
			"/admin/accounts": "admin",
		},
	}
}

// IsPublic reports whether the path requires no session at all.
func (s Security) IsPublic(path string) bool {
	for _, route := range s.PublicRoutes {
		if path == route {
			return true
		}
		if route != "/" && strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// RequiredRole returns the role a path demands, or "" when any approved
// account may enter.
func (s Security) RequiredRole(path string) string {
	for route, role := range s.ProtectedRoles {
		if path == route || strings.HasPrefix(path, route+"/") {
			return role
		}
	}
	return ""
}
