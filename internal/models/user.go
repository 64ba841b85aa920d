package models

import "time"

// Permission is a single capability bit in a role's mask.
type Permission uint8

const (
	PermissionView         Permission = 0x01
	PermissionWriteReviews Permission = 0x02
	PermissionManageMenus  Permission = 0x04
	PermissionModerate     Permission = 0x08
	PermissionAdminister   Permission = 0x80

	PermissionAll Permission = 0xff
)

type Role struct {
	ID          string
	Name        string
	Permissions Permission
	Default     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Has reports whether the role grants every bit of perm.
func (r Role) Has(perm Permission) bool {
	return r.Permissions&perm == perm
}

// RoleSeed is one row of the startup role table. Seeds are upserted by
// name, so re-running the seed updates permissions in place.
type RoleSeed struct {
	Name        string
	Permissions Permission
	Default     bool
}

// DefaultRoleSeeds returns the fixed role table applied at startup.
// Exactly one seed carries the default flag.
func DefaultRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{Name: "User", Permissions: PermissionView | PermissionWriteReviews | PermissionManageMenus, Default: true},
		{Name: "Moderator", Permissions: PermissionView | PermissionWriteReviews | PermissionManageMenus | PermissionModerate},
		{Name: "Administrator", Permissions: PermissionAll},
	}
}

// User is an account record. PasswordHash holds the encoded argon2id
// digest and is only ever written through the account service; nothing
// outside internal/ can reach it.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Confirmed    bool
	PendingEmail *string

	Name     string
	Location string
	AboutMe  string

	RoleID *string
	Role   *Role

	MemberSince time.Time
	LastSeen    time.Time
}
