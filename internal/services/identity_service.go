// Package services holds the business logic between the HTTP layer and
// the repositories.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/googleauth"
	"fintrack/internal/storage"
)

// ErrInvalidCredentials deliberately does not say whether the email or
// the password was wrong.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoResetCode        = errors.New("no reset code found for this email")
	ErrResetCodeExpired   = errors.New("reset code has expired")
	ErrResetCodeMismatch  = errors.New("invalid reset code")
	ErrDeliveryFailed     = errors.New("failed to send reset code")
)

// ResetNotifier queues a reset-code delivery job. amqp.Client satisfies
// this; delivery is best-effort and reported, not raised.
type ResetNotifier interface {
	PublishResetEmail(ctx context.Context, email, code, phoneHint string) error
}

// IdentityService covers registration, login, external sign-in, and the
// password-reset flow.
type IdentityService struct {
	users    storage.UserRepository
	codes    storage.ResetCodeRepository
	notifier ResetNotifier
	now      func() time.Time
}

func NewIdentityService(users storage.UserRepository, codes storage.ResetCodeRepository, notifier ResetNotifier) *IdentityService {
	return &IdentityService{
		users:    users,
		codes:    codes,
		notifier: notifier,
		now:      time.Now,
	}
}

// Register validates the fields, stores the user with a bcrypt hash,
// and returns the created record.
func (s *IdentityService) Register(ctx context.Context, email, password, name, phone string) (core.User, error) {
	email = core.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)

	if email == "" || password == "" || name == "" || phone == "" {
		return core.User{}, core.ErrMissingFields
	}
	if !core.ValidEmail(email) {
		return core.User{}, core.ErrInvalidEmail
	}
	if len(password) < auth.MinPasswordLength {
		return core.User{}, core.ErrShortPassword
	}
	if len(phone) < 10 {
		return core.User{}, core.ErrShortPhone
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	u := core.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Login verifies credentials. Unknown email, wrong password, and
// password login against an external account all yield the same error.
func (s *IdentityService) Login(ctx context.Context, email, password string) (core.User, error) {
	email = core.NormalizeEmail(email)
	if email == "" || password == "" {
		return core.User{}, core.ErrMissingFields
	}

	u, err := s.users.Get(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// LoginExternal provisions a user on first sign-in through the identity
// provider and returns the stored record. Externally provisioned users
// have an empty password hash, which disables password login.
func (s *IdentityService) LoginExternal(ctx context.Context, info googleauth.UserInfo) (core.User, error) {
	email := core.NormalizeEmail(info.Email)

	u, err := s.users.Get(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.User{}, fmt.Errorf("external login: %w", err)
	}

	u = core.User{
		Name:      info.Name,
		Email:     email,
		Phone:     "Not provided",
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			// Lost a race with a concurrent first login; the record exists now.
			return s.users.Get(ctx, email)
		}
		return core.User{}, fmt.Errorf("provision external user: %w", err)
	}
	slog.InfoContext(ctx, "Provisioned user from external identity", "email", email)
	return u, nil
}

// RequestReset issues a fresh 6-digit code with a 10-minute expiry,
// queues the delivery email, and returns the last four digits of the
// user's phone as a display hint. A new request overwrites any code
// still live for the email.
func (s *IdentityService) RequestReset(ctx context.Context, email string) (string, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return "", core.ErrMissingFields
	}
	if !core.ValidEmail(email) {
		return "", core.ErrInvalidEmail
	}

	u, err := s.users.Get(ctx, email)
	if err != nil {
		return "", err
	}

	code, err := auth.GenerateResetCode()
	if err != nil {
		return "", fmt.Errorf("request reset: %w", err)
	}

	rc := core.ResetCode{
		Code:      code,
		ExpiresAt: s.now().Add(auth.ResetCodeTTL),
		Phone:     u.Phone,
	}
	if err := s.codes.Put(ctx, email, rc); err != nil {
		return "", fmt.Errorf("store reset code: %w", err)
	}

	hint := auth.PhoneHint(u.Phone)
	if err := s.notifier.PublishResetEmail(ctx, email, code, hint); err != nil {
		slog.ErrorContext(ctx, "Failed to queue reset email", "email", email, "error", err)
		return "", ErrDeliveryFailed
	}
	return hint, nil
}

// VerifyReset consumes the code and installs the new password. Expired
// codes are purged on sight; a successful verification purges the code
// too, so each code works at most once.
func (s *IdentityService) VerifyReset(ctx context.Context, email, code, newPassword string) error {
	email = core.NormalizeEmail(email)
	if email == "" || code == "" || newPassword == "" {
		return core.ErrMissingFields
	}
	if len(newPassword) < auth.MinPasswordLength {
		return core.ErrShortPassword
	}

	rc, err := s.codes.Get(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoResetCode
	}
	if err != nil {
		return fmt.Errorf("verify reset: %w", err)
	}

	if rc.Expired(s.now()) {
		if err := s.codes.Delete(ctx, email); err != nil {
			slog.ErrorContext(ctx, "Failed to purge expired reset code", "email", email, "error", err)
		}
		return ErrResetCodeExpired
	}
	if rc.Code != code {
		return ErrResetCodeMismatch
	}

	u, err := s.users.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("verify reset: %w", err)
	}
	if u.External() {
		// Password reset cannot enable password login on a provider account.
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("verify reset: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, email, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		slog.ErrorContext(ctx, "Failed to purge used reset code", "email", email, "error", err)
	}
	return nil
}
