// Package authz answers ownership questions for requester role sets. Roles
// arrive from the token layer as free-form strings; everything here operates
// on the normalized lower-cased set so checks stay case-insensitive.
package authz

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dfmorales/facturas-backend/pkg/enums"
)

// RoleSet is a normalized set of role names.
type RoleSet map[string]struct{}

// NewRoleSet builds a set from raw role names, lower-casing and trimming
// each. Empty names are dropped.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		normalized := enums.NormalizeRoleName(name)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the given role, case-insensitively.
func (s RoleSet) Has(role string) bool {
	_, ok := s[enums.NormalizeRoleName(role)]
	return ok
}

// IsAdmin reports whether the set grants administrator rights.
func (s RoleSet) IsAdmin() bool {
	return s.Has(enums.RoleAdmin)
}

// Names returns the normalized role names. Order is unspecified.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

// String renders the set for log fields.
func (s RoleSet) String() string {
	return strings.Join(s.Names(), ",")
}

// CanAccess reports whether a requester with the given roles may operate on a
// record owned by ownerID. Admins may always; everyone else only on their own
// records. An empty role set never grants access.
func CanAccess(roles RoleSet, ownerID, requesterID uuid.UUID) bool {
	if len(roles) == 0 {
		return false
	}
	if roles.IsAdmin() {
		return true
	}
	return requesterID != uuid.Nil && ownerID == requesterID
}

// ScopeToOwner returns the owner filter a list query must apply for the
// requester: nil for admins (no scoping), otherwise the requester's own id.
func ScopeToOwner(roles RoleSet, requesterID uuid.UUID) *uuid.UUID {
	if roles.IsAdmin() {
		return nil
	}
	id := requesterID
	return &id
}
