package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	apperrors "minischeduler/internal/errors"
	"minischeduler/internal/logger"
	"minischeduler/internal/models"
)

// AccountService registers accounts and resolves credentials to callers.
type AccountService struct {
	users UserStore
	auth  AuthCache
	loc   *time.Location
	now   func() time.Time
}

func NewAccountService(users UserStore, auth AuthCache, loc *time.Location, now func() time.Time) *AccountService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{users: users, auth: auth, loc: loc, now: now}
}

// HashPassword is the stored credential format: hex-encoded SHA-256.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// InitialAllotment is one ticket per remaining month of the year for
// attendees, counting the month of sign-up. Organizers get none.
func InitialAllotment(role models.Role, at time.Time) int {
	if role != models.RoleUser {
		return 0
	}
	return 12 - (int(at.Month()) - 1)
}

func (s *AccountService) Register(ctx context.Context, req *models.RegisterUserRequest) (*models.User, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apperrors.Malformed("email is required")
	}

	user := &models.User{
		Email:            email,
		PasswordHash:     HashPassword(req.Password),
		FullName:         strings.TrimSpace(req.FullName),
		Role:             role,
		AvailableTickets: InitialAllotment(role, s.now().In(s.loc)),
		IsActive:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.remember(ctx, user)
	logger.WithContext(ctx).Info("User registered",
		"new_user_id", user.UserID,
		"role", user.Role,
		"available_tickets", user.AvailableTickets)
	return user, nil
}

// Authenticate checks email and password, consulting the auth cache before
// the users table.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (models.Caller, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash := HashPassword(password)

	if s.auth != nil {
		if entry, ok := s.auth.GetAuth(ctx, email); ok && sameHash(entry.PasswordHash, hash) {
			return models.Caller{UserID: entry.UserID, Role: entry.Role}, nil
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return models.Caller{}, apperrors.ErrUnauthorized
	}
	if err != nil {
		return models.Caller{}, err
	}
	if !user.IsActive || !sameHash(user.PasswordHash, hash) {
		return models.Caller{}, apperrors.ErrUnauthorized
	}

	s.remember(ctx, user)
	return models.Caller{UserID: user.UserID, Role: user.Role}, nil
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile replaces the caller's full name and password. The cached
// credential is overwritten so the old password stops working at once.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, req *models.UpdateUserRequest) (*models.User, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, apperrors.Malformed("full_name is required")
	}
	if req.Password == "" {
		return nil, apperrors.Malformed("password is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FullName = fullName
	user.PasswordHash = HashPassword(req.Password)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.remember(ctx, user)
	logger.WithContext(ctx).Info("User profile updated", "updated_user_id", user.UserID)
	return user, nil
}

func (s *AccountService) remember(ctx context.Context, user *models.User) {
	if s.auth == nil {
		return
	}
	s.auth.SetAuth(ctx, user.Email, models.AuthEntry{
		UserID:       user.UserID,
		Role:         user.Role,
		PasswordHash: user.PasswordHash,
	})
}

func sameHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
