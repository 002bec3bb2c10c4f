package auth

import (
	"fmt"
	"log"
	"net/smtp"
)

type Mailer interface {
	SendPasswordReset(to, link string) error
}

type SMTPMailer struct {
	Host     string
	Port     string
	From     string
	Password string
}

func (m SMTPMailer) SendPasswordReset(to, link string) error {
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)

	subject := "Reset your password"
	body := fmt.Sprintf("Use the following link to choose a new password. It expires in one hour.\n\n%s", link)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + m.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	if err := smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{to}, message); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// LogMailer is used when no SMTP server is configured.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(to, link string) error {
	log.Printf("📨 Reset link for %s: %s", to, link)
	return nil
}
