// Package identity verifies bearer tokens and decides which organizations a
// caller may see.
package identity

import (
	"context"
	"errors"
)

// Roles.
const (
	// RoleAdmin may read and analyze every organization.
	RoleAdmin = "admin"
	// RoleMember is limited to its own organization.
	RoleMember = "member"
)

var ErrUnauthenticated = errors.New("missing or invalid token")

// Identity is the verified caller.
type Identity struct {
	SubjectID      string `json:"subjectId"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Role           string `json:"role,omitempty"`

	// Synthetic is set for identities minted by TestProvider.
	Synthetic bool `json:"-"`
}

// Provider turns a bearer token into an Identity.
type Provider interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// IsAdmin reports whether the caller holds the elevated role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// CanAccess reports whether the caller may read or act on orgID. A member
// without an organization claim may not reach any organization.
func (id Identity) CanAccess(orgID string) bool {
	if id.IsAdmin() {
		return true
	}
	return id.OrganizationID != "" && id.OrganizationID == orgID
}
