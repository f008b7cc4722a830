package testutil

import (
	"net/http"

	id "mandate/pkg/domain"
	"mandate/pkg/requestcontext"
)

// WithPrincipal adds an authenticated principal and role to the request
// context. This simulates what the auth middleware does for bearer tokens.
func WithPrincipal(req *http.Request, principal id.PrincipalID, role requestcontext.Role) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), principal, role))
}

// AsAuthority authenticates the request as the given authority.
func AsAuthority(req *http.Request, authority id.AuthorityID) *http.Request {
	return WithPrincipal(req, id.PrincipalID(authority), requestcontext.RoleAuthority)
}

// AsAgent authenticates the request as the given agent.
func AsAgent(req *http.Request, agent id.AgentID) *http.Request {
	return WithPrincipal(req, id.PrincipalID(agent), requestcontext.RoleAgent)
}
