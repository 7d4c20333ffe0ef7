package domain

// Role is the effective permission a user holds on a note. Owner is implicit
// (derived from Note.OwnerID) and never stored as a SharedAccess row.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

// CanView reports whether the role grants read access.
func (r Role) CanView() bool {
	return r != RoleNone
}

// CanEdit reports whether the role grants write access (edit, restore).
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// IsOwner reports whether the role grants owner-only operations
// (delete, share, manage sharing).
func (r Role) IsOwner() bool {
	return r == RoleOwner
}

// ValidSharedRole reports whether r may be stored on a SharedAccess row.
func ValidSharedRole(r Role) bool {
	return r == RoleViewer || r == RoleEditor
}
