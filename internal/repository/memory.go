package repository

import (
	"context"
	"sync"
	"time"

	"github.com/stijnblommerde/restaurant-menu/internal/ids"
	"github.com/stijnblommerde/restaurant-menu/internal/models"
)

// MemoryStore is an in-process implementation of the user and role store
// contracts, used by tests and local development without Postgres. Every
// mutation runs under one lock, so each operation is applied atomically.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]models.User
	roles map[string]models.Role
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]models.User),
		roles: make(map[string]models.Role),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.MemberSince.IsZero() {
		user.MemberSince = time.Now()
	}
	if user.LastSeen.IsZero() {
		user.LastSeen = user.MemberSince
	}
	s.users[user.ID] = user
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return s.withRole(user), nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryStore) UserByUsername(_ context.Context, username string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *MemoryStore) findUser(match func(models.User) bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if match(user) {
			return s.withRole(user), nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// withRole resolves the role reference the way the SQL store's join does.
// Callers must hold the lock.
func (s *MemoryStore) withRole(user models.User) models.User {
	if user.RoleID != nil {
		if role, ok := s.roles[*user.RoleID]; ok {
			user.Role = &role
		}
	}
	return user
}

func (s *MemoryStore) MarkConfirmed(_ context.Context, id string) error {
	return s.update(id, func(u *models.User) { u.Confirmed = true })
}

func (s *MemoryStore) SetPasswordHash(_ context.Context, id string, hash []byte) error {
	return s.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (s *MemoryStore) SetPendingEmail(_ context.Context, id string, email string) error {
	return s.update(id, func(u *models.User) { u.PendingEmail = &email })
}

func (s *MemoryStore) CommitEmail(_ context.Context, id string, email string) error {
	return s.update(id, func(u *models.User) {
		u.Email = email
		u.PendingEmail = nil
	})
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, name, location, aboutMe string) error {
	return s.update(id, func(u *models.User) {
		u.Name = name
		u.Location = location
		u.AboutMe = aboutMe
	})
}

func (s *MemoryStore) TouchLastSeen(_ context.Context, id string) error {
	return s.update(id, func(u *models.User) { u.LastSeen = time.Now() })
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, s.withRole(user))
	}
	return users, nil
}

func (s *MemoryStore) update(id string, apply func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	apply(&user)
	s.users[id] = user
	return nil
}

func (s *MemoryStore) UpsertRole(_ context.Context, seed models.RoleSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, role := range s.roles {
		if role.Name == seed.Name {
			role.Permissions = seed.Permissions
			role.Default = seed.Default
			role.UpdatedAt = now
			s.roles[id] = role
			return nil
		}
	}

	id := ids.New()
	s.roles[id] = models.Role{
		ID:          id,
		Name:        seed.Name,
		Permissions: seed.Permissions,
		Default:     seed.Default,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (s *MemoryStore) RoleByName(_ context.Context, name string) (models.Role, error) {
	return s.findRole(func(r models.Role) bool { return r.Name == name })
}

func (s *MemoryStore) RoleByID(_ context.Context, id string) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := s.roles[id]
	if !ok {
		return models.Role{}, ErrRoleNotFound
	}
	return role, nil
}

func (s *MemoryStore) DefaultRole(_ context.Context) (models.Role, error) {
	return s.findRole(func(r models.Role) bool { return r.Default })
}

func (s *MemoryStore) findRole(match func(models.Role) bool) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, role := range s.roles {
		if match(role) {
			return role, nil
		}
	}
	return models.Role{}, ErrRoleNotFound
}

// Roles returns all seeded roles, for asserting seed idempotency.
func (s *MemoryStore) Roles() []models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles := make([]models.Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	return roles
}
