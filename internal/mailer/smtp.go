// Package mailer sends transactional email over SMTP with STARTTLS.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers a plain-text message to one recipient.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	host string
	port string
	user string
	pass string
}

func NewSMTPSender(host, port, user, pass string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	if s.user == "" || s.pass == "" {
		return fmt.Errorf("smtp credentials not configured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.user)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, auth, s.user, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// ResetCodeBody renders the password-reset email.
func ResetCodeBody(code string) string {
	return fmt.Sprintf(`Hello,

Your one-time code for password reset is: %s

This code will expire in 10 minutes.

If you didn't request this, please ignore this email.

Best regards,
Fintrack`, code)
}

// ResetCodeSubject is the fixed subject line for reset emails.
const ResetCodeSubject = "Password Reset Code - Fintrack"
