package enums

import "strings"

// Canonical role names. Roles are free-form records in the database, but
// these two are seeded on boot and drive authorization decisions.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// NormalizeRoleName lower-cases and trims a role name so comparisons are
// case-insensitive everywhere.
func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
