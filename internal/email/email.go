// Package email sends transactional mail over SMTP.
package email

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"solaudit/internal/config"
)

// Service handles email operations
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{config: cfg}
}

// SendVerificationEmail sends an email verification email
func (s *Service) SendVerificationEmail(to, token string) error {
	subject := "Verify Your Email - SolAudit"
	verificationURL := fmt.Sprintf("%s?token=%s", s.config.VerificationURL, token)

	body := wrapBody("Welcome to SolAudit!", fmt.Sprintf(`
        <p>Thank you for registering with SolAudit. Please verify your email address by clicking the button below:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Verify Email</a>
        </div>
        <p>If the button doesn't work, you can also copy and paste the following link into your browser:</p>
        <p style="word-break: break-all; color: #4a90e2;">%s</p>
        <p>This link will expire in 24 hours.</p>
        <p>If you didn't create an account with SolAudit, please ignore this email.</p>`,
		verificationURL, verificationURL))

	return s.sendEmail(to, subject, body)
}

// SendPasswordResetEmail sends a password reset email
func (s *Service) SendPasswordResetEmail(to, token string) error {
	subject := "Password Reset Request - SolAudit"
	resetURL := fmt.Sprintf("%s?token=%s", s.config.PasswordResetURL, token)

	body := wrapBody("Password Reset Request", fmt.Sprintf(`
        <p>We received a request to reset your password for your SolAudit account.</p>
        <p>Click the button below to reset your password:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #4a90e2; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
        </div>
        <p>If the button doesn't work, you can also copy and paste the following link into your browser:</p>
        <p style="word-break: break-all; color: #4a90e2;">%s</p>
        <p>This link will expire in 1 hour.</p>
        <p>If you didn't request a password reset, please ignore this email. Your password will not be changed.</p>`,
		resetURL, resetURL))

	return s.sendEmail(to, subject, body)
}

// SendWelcomeEmail sends a welcome email after successful verification
func (s *Service) SendWelcomeEmail(to, name string) error {
	subject := "Welcome to SolAudit!"

	body := wrapBody(fmt.Sprintf("Welcome to SolAudit, %s!", name), `
        <p>Your email has been successfully verified. You can now access all features of SolAudit.</p>
        <p>Here are some things you can do:</p>
        <ul>
            <li>Submit Solidity contracts for an AI security audit</li>
            <li>Import contracts straight from a GitHub repository</li>
            <li>Export audit reports as PDF documents</li>
        </ul>
        <p>Remember to store your Gemini API key in the settings page before running your first audit.</p>`)

	return s.sendEmail(to, subject, body)
}

// wrapBody puts shared layout around the message content
func wrapBody(heading, content string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #4a90e2;">%s</h2>
        %s
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">This is an automated email. Please do not reply.</p>
    </div>
</body>
</html>
`, heading, heading, content)
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(to, subject, body string) error {
	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", s.config.SMTPFrom)
	fmt.Fprintf(&message, "To: %s\r\n", to)
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		slog.Error("Failed to connect to SMTP server", "address", addr, "error", err)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	// Development relays like Mailpit accept mail without authentication
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	defer wc.Close()

	if _, err := wc.Write(message.Bytes()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to)
	return nil
}
