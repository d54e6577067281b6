// Package identity provides authentication and user management.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/taskhub/taskhub/internal/domain"
	"github.com/taskhub/taskhub/internal/identity/token"
	"github.com/taskhub/taskhub/internal/pkg/ctxlog"
	"github.com/taskhub/taskhub/pkg/pagination"
	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is the bcrypt cost factor for stored passwords.
const passwordHashCost = 12

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 6

// emailPattern accepts a simple local@domain.tld shape. Full RFC 5322
// validation is deliberately out of scope.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// TokenIssuer issues token pairs for authenticated principals.
type TokenIssuer interface {
	IssueTokenPair(principal *domain.Principal) (*token.Pair, error)
	VerifyRefreshToken(tokenString string) (string, error)
}

// Service implements authentication and user management use cases.
type Service struct {
	repo   Repository
	tokens TokenIssuer
}

// NewService creates a new identity service.
func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// SignupInput represents signup parameters.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult bundles the user and their freshly issued tokens.
type AuthResult struct {
	User   *domain.User `json:"user"`
	Tokens *token.Pair  `json:"tokens"`
}

// Signup validates input, hashes the password, and creates a new member
// account. Duplicate emails are rejected before any create is attempted.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if len([]rune(name)) < 2 {
		return nil, ErrNameTooShort
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.repo.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), passwordHashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	firstName, lastName := splitName(name)
	user := &domain.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleMember,
		IsActive:     true,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// LoginInput represents login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a token pair. Unknown emails and
// wrong passwords produce the same error to prevent account enumeration.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	s.touchLastActive(ctx, user.ID)

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh mints a new token pair from a valid refresh token. Role and
// permissions are re-derived from the user's current stored role, never
// from the presented token's claims.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		// The account may have been deleted since issuance.
		return nil, token.ErrInvalidToken
	}

	if !user.IsActive {
		return nil, token.ErrInvalidToken
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// Me returns the current user's profile and stamps last activity.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.touchLastActive(ctx, userID)
	return user, nil
}

// UpdateProfileInput represents profile update parameters. Nil fields
// are left unchanged.
type UpdateProfileInput struct {
	UserID   string
	Name     *string
	Email    *string
	Password *string
}

// UpdateProfile applies partial profile changes with the same validation
// rules as signup.
func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len([]rune(name)) < 2 {
			return nil, ErrNameTooShort
		}
		user.FirstName, user.LastName = splitName(name)
	}

	if input.Email != nil && *input.Email != user.Email {
		if !emailPattern.MatchString(*input.Email) {
			return nil, ErrInvalidEmail
		}
		if _, err := s.repo.GetUserByEmail(ctx, *input.Email); err == nil {
			return nil, ErrEmailExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("check email uniqueness: %w", err)
		}
		user.Email = *input.Email
	}

	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), passwordHashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// ListUsersQuery represents user listing parameters.
type ListUsersQuery struct {
	Filter UserFilter
	Page   pagination.Params
}

// ListUsers returns a page of users matching the filter.
func (s *Service) ListUsers(ctx context.Context, query ListUsersQuery) ([]domain.User, int, error) {
	return s.repo.ListUsers(ctx, query.Filter, query.Page)
}

// UpdateUserRole changes a user's role. Permission sets derived from the
// old role expire with the outstanding access tokens.
func (s *Service) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}

	return user, nil
}

// DeleteUser removes a user account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.DeleteUser(ctx, id)
}

func (s *Service) issueTokens(user *domain.User) (*token.Pair, error) {
	principal := &domain.Principal{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: domain.PermissionsForRole(user.Role),
	}

	tokens, err := s.tokens.IssueTokenPair(principal)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}
	return tokens, nil
}

// touchLastActive is best-effort: failures are logged, never surfaced.
func (s *Service) touchLastActive(ctx context.Context, userID string) {
	if err := s.repo.TouchLastActive(ctx, userID); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to update last active", "user_id", userID, "error", err)
	}
}

// splitName splits a display name on the first whitespace run: the first
// token becomes the first name, the remainder (possibly empty) the last.
func splitName(name string) (firstName, lastName string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
