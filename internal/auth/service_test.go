package auth

import (
	"context"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeMailer captures the last OTP instead of sending mail.
type fakeMailer struct {
	lastTo  string
	lastOTP string
}

func (f *fakeMailer) SendOTP(to, otp string) error {
	f.lastTo = to
	f.lastOTP = otp
	return nil
}

func setupTest(t *testing.T) (*Service, *fakeMailer) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Session{})
	require.NoError(t, err)

	mailer := &fakeMailer{}
	return NewService(zap.NewNop(), db, mailer), mailer
}

func register(t *testing.T, svc *Service, mailer *fakeMailer, email string) {
	t.Helper()
	err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, mailer.lastOTP)
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	svc, mailer := setupTest(t)
	ctx := context.Background()

	register(t, svc, mailer, "trader@example.com")
	assert.Equal(t, "trader@example.com", mailer.lastTo)
	assert.Len(t, mailer.lastOTP, 6)

	// Login before verification is refused.
	_, err := svc.Login(ctx, "trader@example.com", "secret1")
	assert.ErrorIs(t, err, ErrNotVerified)

	// Wrong code does not verify.
	assert.ErrorIs(t, svc.VerifyOTP(ctx, "trader@example.com", "000000"), ErrInvalidOTP)

	require.NoError(t, svc.VerifyOTP(ctx, "trader@example.com", mailer.lastOTP))

	// The code is single-use.
	assert.ErrorIs(t, svc.VerifyOTP(ctx, "trader@example.com", mailer.lastOTP), ErrInvalidOTP)

	token, err := svc.Login(ctx, "trader@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.UserFromToken(ctx, token)
	require.NoError(t, err)
	assert.NotZero(t, userID)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.UserFromToken(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRegister_VerifiedEmailRefused(t *testing.T) {
	svc, mailer := setupTest(t)
	ctx := context.Background()

	register(t, svc, mailer, "taken@example.com")
	require.NoError(t, svc.VerifyOTP(ctx, "taken@example.com", mailer.lastOTP))

	err := svc.Register(ctx, RegisterInput{
		Name:     "Someone Else",
		Email:    "taken@example.com",
		Password: "another1",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_UnverifiedEmailGetsFreshOTP(t *testing.T) {
	svc, mailer := setupTest(t)
	ctx := context.Background()

	register(t, svc, mailer, "retry@example.com")
	first := mailer.lastOTP

	// Registering again replaces the pending account and re-issues a code.
	register(t, svc, mailer, "retry@example.com")

	// The old code is dead regardless of whether the new one collides.
	if mailer.lastOTP != first {
		assert.ErrorIs(t, svc.VerifyOTP(ctx, "retry@example.com", first), ErrInvalidOTP)
	}
	require.NoError(t, svc.VerifyOTP(ctx, "retry@example.com", mailer.lastOTP))
}

func TestLogin_BadPassword(t *testing.T) {
	svc, mailer := setupTest(t)
	ctx := context.Background()

	register(t, svc, mailer, "user@example.com")
	require.NoError(t, svc.VerifyOTP(ctx, "user@example.com", mailer.lastOTP))

	_, err := svc.Login(ctx, "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown address reports the same error as a wrong password.
	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyOTP_Expired(t *testing.T) {
	svc, mailer := setupTest(t)
	ctx := context.Background()

	register(t, svc, mailer, "late@example.com")

	// Backdate the expiry.
	expired := time.Now().Add(-time.Minute)
	err := svc.db.Model(&models.User{}).
		Where("email = ?", "late@example.com").
		Update("otp_expiry", &expired).Error
	require.NoError(t, err)

	assert.ErrorIs(t, svc.VerifyOTP(ctx, "late@example.com", mailer.lastOTP), ErrInvalidOTP)
}

func TestUserFromToken_Expired(t *testing.T) {
	svc, _ := setupTest(t)
	ctx := context.Background()

	session := models.Session{
		Token:     "stale-token",
		UserID:    42,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, svc.db.Create(&session).Error)

	_, err := svc.UserFromToken(ctx, "stale-token")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.UserFromToken(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}
