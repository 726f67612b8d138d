// services/email_service.go
package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// Mailer delivers outbound email. Kept behind an interface so tests can
// capture messages instead of dialing SMTP.
type Mailer interface {
	SendEmail(to, subject, html string) error
}

// SMTPMailer sends mail through the SMTP relay configured in the environment.
type SMTPMailer struct {
	logger *log.Logger
}

// NewSMTPMailer creates an SMTP-backed mailer.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		logger: log.New(os.Stdout, "[MAIL] ", log.LstdFlags),
	}
}

// SendEmail sends an HTML email via the configured SMTP relay.
func (m *SMTPMailer) SendEmail(to, subject, html string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")

	if smtpHost == "" || smtpPortStr == "" || smtpUser == "" || smtpPass == "" || fromEmail == "" {
		return fmt.Errorf("missing SMTP configuration")
	}

	smtpPort, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)

	if err := d.DialAndSend(msg); err != nil {
		m.logger.Printf("Failed to send email to %s: %v", to, err)
		return err
	}

	return nil
}

func verificationEmailBody(name, otp string, ttl time.Duration) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>Verify Your Email</h2>
			<p>Hello %s,</p>
			<p>Use the following code to verify your email address:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code expires in %d minutes.</p>
			<p>If you did not sign up, you can ignore this email.</p>
		</body>
		</html>
	`, name, otp, int(ttl.Minutes()))
}

func resetEmailBody(name, otp string, ttl time.Duration) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<h2>Reset Your Password</h2>
			<p>Hello %s,</p>
			<p>You have requested to reset your password. Please use the following OTP code to verify your request:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code expires in %d minutes.</p>
			<p>If you did not request a password reset, you can ignore this email.</p>
		</body>
		</html>
	`, name, otp, int(ttl.Minutes()))
}
