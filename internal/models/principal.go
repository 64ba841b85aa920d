package models

// Principal is the acting identity of a request. The zero value is the
// anonymous principal, which holds no permissions at all, so permission
// checks are total over authenticated and unauthenticated callers.
type Principal struct {
	user *User
}

// Authenticated wraps a loaded user as a principal.
func Authenticated(u User) Principal {
	return Principal{user: &u}
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{}
}

func (p Principal) IsAuthenticated() bool {
	return p.user != nil
}

// User returns the underlying user, if any.
func (p Principal) User() (User, bool) {
	if p.user == nil {
		return User{}, false
	}
	return *p.user, true
}

// Can reports whether the principal's role grants every bit of perm.
// Anonymous principals and users without an assigned role can do nothing.
func (p Principal) Can(perm Permission) bool {
	if p.user == nil || p.user.Role == nil {
		return false
	}
	return p.user.Role.Has(perm)
}

func (p Principal) IsAdministrator() bool {
	return p.Can(PermissionAdminister)
}
