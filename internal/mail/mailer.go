package mail

import (
	"fmt"
	"net/smtp"

	"trade-journal-go/internal/config"

	"go.uber.org/zap"
)

// Mailer delivers account verification codes.
type Mailer interface {
	SendOTP(to, otp string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay (Gmail app-password
// style, matching the mail section of the config).
type SMTPMailer struct {
	cfg    *config.Mail
	logger *zap.Logger
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer from the mail config section.
func NewSMTPMailer(cfg *config.Mail, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger.Named("mail")}
}

// SendOTP mails the verification code. The code expires server-side; the mail
// body just tells the user the window.
func (m *SMTPMailer) SendOTP(to, otp string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Welcome to TradeX!</h2>
  <p>Your verification code is:</p>
  <h1 style="color: #16a34a; letter-spacing: 2px;">%s</h1>
  <p>This code expires in 10 minutes.</p>
</div>`, otp)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your Verification Code\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, to, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		m.logger.Error("Failed to send OTP mail", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to send otp mail: %w", err)
	}

	m.logger.Info("OTP mail sent", zap.String("to", to))
	return nil
}
