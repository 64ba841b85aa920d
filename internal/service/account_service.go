package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stijnblommerde/restaurant-menu/internal/config"
	"github.com/stijnblommerde/restaurant-menu/internal/ids"
	"github.com/stijnblommerde/restaurant-menu/internal/mail"
	"github.com/stijnblommerde/restaurant-menu/internal/models"
	"github.com/stijnblommerde/restaurant-menu/internal/repository"
	"github.com/stijnblommerde/restaurant-menu/internal/security"
)

var (
	// ErrInvalidCredentials deliberately covers both "no such user" and
	// "wrong password" so login cannot be used to probe for accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSubjectMismatch means a token verified fine but its subject does
	// not match the user it is being applied to.
	ErrSubjectMismatch = errors.New("token subject mismatch")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
)

// UserStore is the persistence contract the account core needs. Lookups
// report repository.ErrUserNotFound for absent records; each mutation is
// applied as a single atomic update to one user row.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	MarkConfirmed(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id string, hash []byte) error
	SetPendingEmail(ctx context.Context, id string, email string) error
	CommitEmail(ctx context.Context, id string, email string) error
	UpdateProfile(ctx context.Context, id string, name, location, aboutMe string) error
	TouchLastSeen(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// RoleStore resolves and seeds roles. Absent roles report
// repository.ErrRoleNotFound.
type RoleStore interface {
	UpsertRole(ctx context.Context, seed models.RoleSeed) error
	RoleByName(ctx context.Context, name string) (models.Role, error)
	RoleByID(ctx context.Context, id string) (models.Role, error)
	DefaultRole(ctx context.Context) (models.Role, error)
}

// AccountService owns the account lifecycle: registration, credential
// verification, the three signed-token flows, and role assignment. It is
// request-scoped and keeps no state of its own beyond its collaborators.
type AccountService struct {
	users UserStore
	roles RoleStore
	mail  mail.Sender
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAccountService(users UserStore, roles RoleStore, sender mail.Sender, cfg *config.AppConfig, log zerolog.Logger) *AccountService {
	return &AccountService{
		users: users,
		roles: roles,
		mail:  sender,
		cfg:   cfg,
		log:   log,
	}
}

// SeedRoles upserts the fixed role table. Safe to run repeatedly and
// concurrently with normal traffic.
func (s *AccountService) SeedRoles(ctx context.Context) error {
	for _, seed := range models.DefaultRoleSeeds() {
		if err := s.roles.UpsertRole(ctx, seed); err != nil {
			return fmt.Errorf("seed role %s: %w", seed.Name, err)
		}
	}
	return nil
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type RegisterResult struct {
	User models.User
	// MailDispatched is false when the confirmation mail could not be
	// enqueued. The account exists either way.
	MailDispatched bool
}

// Register creates an unconfirmed account, assigns a role, and dispatches
// a confirmation token to the registered address. Accounts matching the
// configured administrator email get the full-permission role; everyone
// else gets the default role, or no role at all if none is flagged.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return RegisterResult{}, fmt.Errorf("username, email and password required")
	}

	if _, err := s.users.UserByEmail(ctx, input.Email); err == nil {
		return RegisterResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return RegisterResult{}, err
	}
	if _, err := s.users.UserByUsername(ctx, input.Username); err == nil {
		return RegisterResult{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return RegisterResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
	}
	user.RoleID, user.Role = s.assignRole(ctx, input.Email)

	if err := s.users.CreateUser(ctx, user); err != nil {
		return RegisterResult{}, err
	}

	dispatched := s.sendAccountToken(ctx, user, security.PurposeConfirm, user.Email, "",
		"Confirm Your Account", mail.TemplateConfirm)

	return RegisterResult{User: user, MailDispatched: dispatched}, nil
}

// assignRole never fails registration: a missing role table just leaves
// the account role-less until the next seed run.
func (s *AccountService) assignRole(ctx context.Context, email string) (*string, *models.Role) {
	var (
		role models.Role
		err  error
	)
	if s.cfg.Security.AdminEmail != "" && email == normalizeEmail(s.cfg.Security.AdminEmail) {
		role, err = s.roles.RoleByName(ctx, "Administrator")
	} else {
		role, err = s.roles.DefaultRole(ctx)
	}
	if err != nil {
		if !errors.Is(err, repository.ErrRoleNotFound) {
			s.log.Warn().Err(err).Msg("role lookup failed, creating role-less user")
		}
		return nil, nil
	}
	return &role.ID, &role
}

type LoginResult struct {
	AccessToken string
	User        models.User
}

// Login verifies credentials and issues a session access token. A missing
// user and a wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !security.VerifyPassword(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLastSeen(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("last seen ping failed")
	}

	accessToken, err := security.GenerateAccessToken(s.cfg.Security.SecretKey, user.ID, s.cfg.Security.AccessTokenTTL)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{AccessToken: accessToken, User: user}, nil
}

// ResolveUser loads the user referenced by a session credential.
func (s *AccountService) ResolveUser(ctx context.Context, id string) (models.User, error) {
	return s.users.UserByID(ctx, id)
}

// Ping records account activity, the last-seen timestamp.
func (s *AccountService) Ping(ctx context.Context, id string) error {
	return s.users.TouchLastSeen(ctx, id)
}

// ConfirmEmail applies a confirmation token to user. Confirming an
// already-confirmed account is a successful no-op; a valid token for a
// different subject is rejected.
func (s *AccountService) ConfirmEmail(ctx context.Context, user models.User, token string) error {
	if user.Confirmed {
		s.log.Debug().Str("user_id", user.ID).Msg("already confirmed")
		return nil
	}

	claims, err := security.VerifyAccountToken(token, s.cfg.Security.SecretKey, security.PurposeConfirm)
	if err != nil {
		return err
	}
	if claims.Subject != user.ID {
		return ErrSubjectMismatch
	}

	return s.users.MarkConfirmed(ctx, user.ID)
}

// ResendConfirmation issues a fresh confirmation token. Previously issued
// tokens stay valid until their own expiry. Returns whether a mail was
// dispatched; confirmed accounts get nothing.
func (s *AccountService) ResendConfirmation(ctx context.Context, user models.User) (bool, error) {
	if user.Confirmed {
		return false, nil
	}
	dispatched := s.sendAccountToken(ctx, user, security.PurposeConfirm, user.Email, "",
		"Confirm Your Account", mail.TemplateConfirm)
	return dispatched, nil
}

// RequestPasswordReset issues a reset token for the account registered
// under email and mails it to that same resolved address. An unknown
// email reports repository.ErrUserNotFound so the transport layer can log
// it while presenting a generic outcome; no token is issued and nothing
// is sent.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}

	dispatched := s.sendAccountToken(ctx, user, security.PurposeReset, user.Email, "",
		"Reset Your Password", mail.TemplateResetPassword)
	return dispatched, nil
}

// ResetPassword replaces the password of the account registered under
// email, provided the token's subject is that same account. It does not
// confirm the account as a side effect.
func (s *AccountService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	claims, err := security.VerifyAccountToken(token, s.cfg.Security.SecretKey, security.PurposeReset)
	if err != nil {
		return err
	}

	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if claims.Subject != user.ID {
		return ErrSubjectMismatch
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPasswordHash(ctx, user.ID, hash)
}

// ChangePassword replaces the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, user models.User, oldPassword, newPassword string) error {
	if !security.VerifyPassword(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPasswordHash(ctx, user.ID, hash)
}

// RequestEmailChange records newEmail as pending and mails a change token
// to the new address, not the current one: the flow proves control of the
// mailbox being moved to.
func (s *AccountService) RequestEmailChange(ctx context.Context, user models.User, password, newEmail string) (bool, error) {
	if !security.VerifyPassword(password, user.PasswordHash) {
		return false, ErrInvalidCredentials
	}

	newEmail = normalizeEmail(newEmail)
	if newEmail == "" || newEmail == user.Email {
		return false, fmt.Errorf("new email required")
	}
	if _, err := s.users.UserByEmail(ctx, newEmail); err == nil {
		return false, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}

	if err := s.users.SetPendingEmail(ctx, user.ID, newEmail); err != nil {
		return false, err
	}

	dispatched := s.sendAccountToken(ctx, user, security.PurposeChangeEmail, newEmail, newEmail,
		"Confirm Your New Email", mail.TemplateChangeEmail)
	return dispatched, nil
}

// ChangeEmail applies a change-email token: subject must be the acting
// user and the address embedded in the token must still be the pending
// one. A token superseded by a later change request fails with
// ErrSubjectMismatch.
func (s *AccountService) ChangeEmail(ctx context.Context, user models.User, token string) error {
	claims, err := security.VerifyAccountToken(token, s.cfg.Security.SecretKey, security.PurposeChangeEmail)
	if err != nil {
		return err
	}
	if claims.Subject != user.ID {
		return ErrSubjectMismatch
	}
	if user.PendingEmail == nil || *user.PendingEmail != claims.NewEmail {
		return ErrSubjectMismatch
	}

	return s.users.CommitEmail(ctx, user.ID, claims.NewEmail)
}

// UpdateProfile stores the non-security profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, user models.User, name, location, aboutMe string) error {
	return s.users.UpdateProfile(ctx, user.ID, name, location, aboutMe)
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// sendAccountToken issues a signed token and hands it to the sender. The
// caller's state transition has already committed; a dispatch failure is
// logged and reported as false, never as an error.
func (s *AccountService) sendAccountToken(ctx context.Context, user models.User, purpose security.Purpose, to, newEmail, subject, template string) bool {
	token, err := security.IssueAccountToken(s.cfg.Security.SecretKey, purpose, user.ID, newEmail, s.cfg.Security.AccountTokenTTL)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Str("purpose", string(purpose)).Msg("issue account token failed")
		return false
	}

	msg := mail.Message{
		To:       to,
		Subject:  subject,
		Template: template,
		Data: map[string]string{
			"token": token,
			"name":  user.Username,
		},
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Str("purpose", string(purpose)).Msg("mail dispatch failed")
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
