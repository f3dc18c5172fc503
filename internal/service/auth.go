// Package service holds the business rules. Handlers call services;
// services call repositories. Nothing here knows about HTTP.
//
//	Handler (HTTP) → Service (rules, validation) → Repository (store)
//	               ↘ auth.TokenService / auth.PasswordService
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/auth"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

// AuthService is the Account Directory: registration, login and the
// caller's favorites.
type AuthService struct {
	users           repository.UserRepository
	faculties       repository.FacultyRepository
	tokens          *auth.TokenService
	passwords       *auth.PasswordService
	activity        *ActivityLogger
	invitationToken string
	logger          *slog.Logger
	now             func() time.Time
}

// NewAuthService wires the dependencies. An empty invitationToken disables
// admin registration.
func NewAuthService(
	users repository.UserRepository,
	faculties repository.FacultyRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	activity *ActivityLogger,
	invitationToken string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:           users,
		faculties:       faculties,
		tokens:          tokens,
		passwords:       passwords,
		activity:        activity,
		invitationToken: invitationToken,
		logger:          logger,
		now:             time.Now,
	}
}

// AuthResult bundles the account and its freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

type RegisterInput struct {
	Name                 string `json:"name" validate:"notblank,max=100"`
	Email                string `json:"email" validate:"required,email,max=254"`
	Password             string `json:"password" validate:"required,min=6,max=72"`
	AdminInvitationToken string `json:"adminInvitationToken"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account. A non-empty invitation token must match the
// configured one and makes the account an admin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	role := model.RoleUser
	if in.AdminInvitationToken != "" {
		if !s.invitationMatches(in.AdminInvitationToken) {
			return nil, apperror.Forbidden("invalid admin invitation token")
		}
		role = model.RoleAdmin
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Favorites:    []string{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", in.Email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)
	s.activity.Log(ctx, model.Activity{
		Type:          model.ActivityRegister,
		UserID:        user.ID,
		Description:   "New user registered: " + user.Name,
		RelatedEntity: user.ID,
		EntityModel:   model.EntityUser,
	})

	return s.issue(user)
}

// Login checks credentials. Unknown email and wrong password produce the
// same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if apperror.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", in.Email, err)
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	at := s.now().UTC()
	if err := s.users.SetLastLogin(ctx, user.ID, at); err != nil {
		return nil, fmt.Errorf("service/auth: recording login for %s: %w", user.ID, err)
	}
	user.LastLogin = &at

	s.activity.Log(ctx, model.Activity{
		Type:          model.ActivityLogin,
		UserID:        user.ID,
		Description:   "User logged in: " + user.Name,
		RelatedEntity: user.ID,
		EntityModel:   model.EntityUser,
	})

	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// Favorites returns the caller's favorite faculties in the order they were
// added. Favorites whose faculty has since been deleted are skipped.
func (s *AuthService) Favorites(ctx context.Context, userID string) ([]model.Faculty, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	found, err := s.faculties.ListFaculties(ctx, user.Favorites)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading favorites: %w", err)
	}

	byID := make(map[string]model.Faculty, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}
	out := make([]model.Faculty, 0, len(found))
	for _, id := range user.Favorites {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// AddFavorite returns the updated favorites id list.
func (s *AuthService) AddFavorite(ctx context.Context, userID, facultyID string) ([]string, error) {
	if _, err := s.faculties.GetFacultyByID(ctx, facultyID); err != nil {
		return nil, fmt.Errorf("service/auth: checking faculty: %w", err)
	}
	if err := s.users.AddFavorite(ctx, userID, facultyID); err != nil {
		return nil, fmt.Errorf("service/auth: adding favorite: %w", err)
	}
	return s.favoriteIDs(ctx, userID)
}

func (s *AuthService) RemoveFavorite(ctx context.Context, userID, facultyID string) ([]string, error) {
	if err := s.users.RemoveFavorite(ctx, userID, facultyID); err != nil {
		return nil, fmt.Errorf("service/auth: removing favorite: %w", err)
	}
	return s.favoriteIDs(ctx, userID)
}

func (s *AuthService) favoriteIDs(ctx context.Context, userID string) ([]string, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Favorites, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) invitationMatches(token string) bool {
	if s.invitationToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.invitationToken)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
