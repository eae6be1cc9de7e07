package domain

import "strings"

// PermissionChecker answers prefix-based authorization queries.
type PermissionChecker interface {
	HasPermission(prefix string) bool
	HasAnyPermission(prefixes []string) bool
}

// HasPermission reports whether any held permission starts with prefix.
// The match is case-sensitive and anchored at the start of the permission.
func HasPermission(perms []string, prefix string) bool {
	for _, p := range perms {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether HasPermission holds for at least one prefix.
func HasAnyPermission(perms []string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if HasPermission(perms, prefix) {
			return true
		}
	}
	return false
}
