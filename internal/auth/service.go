package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"trade-journal-go/internal/mail"
	"trade-journal-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	otpTTL     = 10 * time.Minute
	sessionTTL = 7 * 24 * time.Hour
)

var (
	// ErrEmailTaken means a verified account already uses the address.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotVerified blocks login until the OTP has been confirmed.
	ErrNotVerified = errors.New("email address not verified")
	// ErrInvalidOTP covers wrong and expired codes.
	ErrInvalidOTP = errors.New("invalid or expired code")
	// ErrNoSession means the token is unknown or expired.
	ErrNoSession = errors.New("no valid session")
)

// Service handles registration, OTP verification and login sessions.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
	mailer mail.Mailer
}

// NewService creates an auth service.
func NewService(logger *zap.Logger, db *gorm.DB, mailer mail.Mailer) *Service {
	return &Service{logger: logger.Named("auth"), db: db, mailer: mailer}
}

// RegisterInput is the sign-up form payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register creates (or refreshes) an unverified account and mails it a
// six-digit OTP. Re-registering an unverified address overwrites the pending
// account; a verified address is refused.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return fmt.Errorf("%w: name, email and password are required", ErrInvalidCredentials)
	}
	if len(in.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidCredentials)
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if err == nil && existing.IsVerified {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	expiry := time.Now().Add(otpTTL)

	user := existing
	user.Name = in.Name
	user.Email = in.Email
	user.PasswordHash = string(hash)
	user.PhoneNumber = in.Phone
	user.IsVerified = false
	user.OTP = otp
	user.OTPExpiry = &expiry

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	if err := s.mailer.SendOTP(in.Email, otp); err != nil {
		// The account exists; the user can request a fresh code by
		// registering again.
		s.logger.Error("OTP delivery failed", zap.String("email", in.Email), zap.Error(err))
		return fmt.Errorf("failed to deliver verification code: %w", err)
	}

	s.logger.Info("User registered, awaiting verification", zap.String("email", in.Email))
	return nil
}

// VerifyOTP confirms the e-mailed code and unlocks the account.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.OTP == "" || user.OTP != otp {
		return ErrInvalidOTP
	}
	if user.OTPExpiry == nil || time.Now().After(*user.OTPExpiry) {
		return ErrInvalidOTP
	}

	updates := map[string]interface{}{
		"is_verified": true,
		"otp":         "",
		"otp_expiry":  nil,
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}

	s.logger.Info("User verified", zap.String("email", email))
	return nil
}

// Login checks the credentials and issues a session token. Unverified
// accounts are refused before the password is even checked.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsVerified {
		return "", ErrNotVerified
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("User logged in", zap.Uint("user_id", user.ID))
	return session.Token, nil
}

// Logout revokes the session token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UserFromToken resolves a session token to the caller's user id. This is the
// only ambient-state bridge: everything below the HTTP handlers takes the
// returned id explicitly.
func (s *Service) UserFromToken(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrNoSession
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		// Lazy cleanup; an expired session is as good as none.
		s.db.WithContext(ctx).Delete(&session)
		return 0, ErrNoSession
	}

	return session.UserID, nil
}

// generateOTP draws a uniform six-digit code from crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
