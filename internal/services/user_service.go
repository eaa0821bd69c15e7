package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/civisense-backend/internal/store"
)

const maxUIDLength = 128

// UserService keeps the identity record and the local profile in step.
// The two writes are not transactional: when the second one fails the first is not undone.
type UserService struct {
	users    store.UserStore
	identity identity.Gateway
	metrics  *metrics.Metrics
	provider string
}

func NewUserService(users store.UserStore, gw identity.Gateway, m *metrics.Metrics) *UserService {
	return &UserService{users: users, identity: gw, metrics: m, provider: identity.Name(gw)}
}

func (s *UserService) Create(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, Validation("Email and password are required")
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, Validation("Invalid role")
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, Validation("User already exists in DB")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, Internal("failed to check existing user", err)
	}

	uid, err := s.identity.CreateUser(ctx, identity.NewUser{Email: email, Password: req.Password, DisplayName: req.Name})
	s.metrics.ProviderCall(s.provider, err)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			return nil, Validation("Email already registered with identity provider")
		case errors.Is(err, identity.ErrInvalidCredentials):
			return nil, Validation(err.Error())
		}
		return nil, Upstream("Error creating user", err)
	}

	user := &models.User{Name: req.Name, Email: email, UID: uid, Role: role}
	if err := s.users.CreateUser(ctx, user); err != nil {
		slog.Error("profile write failed after identity record was created",
			"action", "user.create", "uid", uid, "email", email, "error", err)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, Validation("User already exists in DB")
		}
		return nil, Internal("Error creating user", err)
	}
	return user, nil
}

// Update pushes name and email to the identity record, then to the profile.
// Role changes are applied only for admin actors.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, req *dto.UpdateUserRequest) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.ActionUserUpdate, policy.Owned(user.ID)) {
		return nil, Authorization("Access Denied")
	}

	var role models.Role
	if req.Role != nil {
		r, ok := models.ParseRole(*req.Role)
		if !ok {
			return nil, Validation("Invalid role")
		}
		if r != user.Role && !actor.IsAdmin() {
			return nil, Authorization("Only admins can change roles")
		}
		role = r
	}
	var email *string
	if req.Email != nil {
		e := normalizeEmail(*req.Email)
		if e == "" {
			return nil, Validation("Email cannot be empty")
		}
		email = &e
	}

	update := identity.UserUpdate{Email: email, DisplayName: req.Name}
	if update.Email != nil || update.DisplayName != nil {
		err := s.identity.UpdateUser(ctx, user.UID, update)
		s.metrics.ProviderCall(s.provider, err)
		if err != nil {
			if errors.Is(err, identity.ErrEmailExists) {
				return nil, Validation("Email already registered with identity provider")
			}
			return nil, Upstream("Failed to update identity record", err)
		}
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if email != nil {
		user.Email = *email
	}
	if role != "" {
		user.Role = role
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		slog.Error("profile write failed after identity record was updated",
			"action", "user.update", "user_id", user.ID, "error", err)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, Validation("Email already in use")
		}
		return nil, Internal("failed to update user", err)
	}
	return user, nil
}

// Delete removes the identity record, then the profile.
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.Can(actor, policy.ActionUserDelete, policy.Owned(id)) {
		return Authorization("Access Denied")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.identity.DeleteUser(ctx, user.UID)
	s.metrics.ProviderCall(s.provider, err)
	if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return Upstream("Failed to delete identity record", err)
	}

	if err := s.users.DeleteUser(ctx, user.ID); err != nil {
		slog.Error("profile delete failed after identity record was removed",
			"action", "user.delete", "user_id", user.ID, "error", err)
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("User Not Found")
		}
		return Internal("failed to delete user", err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.load(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	if !policy.Can(actor, policy.ActionUserList, policy.Resource{}) {
		return nil, Authorization("Access Denied")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, Internal("failed to list users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Login delegates the credential check to the identity provider and resolves the profile
// by uid, falling back to email.
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*models.User, *identity.Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, nil, Validation("Email and password are required")
	}

	session, err := s.identity.SignIn(ctx, email, req.Password)
	s.metrics.ProviderCall(s.provider, err)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			slog.Warn("identity sign-in failed", "action", "user.login", "error", err)
		}
		// Every sign-in failure is reported as bad credentials.
		return nil, nil, &Error{Kind: KindAuthentication, Message: "Invalid credentials", Err: err}
	}

	user, err := s.users.FindUserByUID(ctx, session.UID)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.users.FindUserByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, NotFound("User not found in database")
		}
		return nil, nil, Internal("failed to load user", err)
	}
	return user, session, nil
}

// Logout revokes every session of the identity record.
func (s *UserService) Logout(ctx context.Context, uid string) error {
	if uid == "" || len(uid) > maxUIDLength {
		return Validation("Invalid UID provided for logout.")
	}
	err := s.identity.RevokeSessions(ctx, uid)
	s.metrics.ProviderCall(s.provider, err)
	if err != nil {
		return Upstream("Server error during logout", err)
	}
	return nil
}

// Authenticate resolves the profile behind claims the identity gateway already verified.
func (s *UserService) Authenticate(ctx context.Context, claims *identity.Claims) (*models.User, error) {
	user, err := s.users.FindUserByUID(ctx, claims.UID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound("User not found in database")
		}
		return nil, Internal("failed to load user", err)
	}
	return user, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound("User Not Found")
		}
		return nil, Internal("failed to load user", err)
	}
	return user, nil
}

// Profiles store emails lowercased so lookups and the unique index agree on every driver.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
