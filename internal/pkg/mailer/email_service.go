// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"os"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendEscalationAlert(toEmail, sessionId, userId, lastReply string) error
}

type emailService struct {
	dialer        *gomail.Dialer
	senderEmail   string
	backofficeURL string // Added to construct links
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	// Get Backoffice URL from ENV or default to a safe placeholder
	backofficeURL := os.Getenv("BACKOFFICE_URL")

	return &emailService{
		dialer:        d,
		senderEmail:   senderEmail,
		backofficeURL: backofficeURL,
	}
}

func (s *emailService) SendEscalationAlert(toEmail, sessionId, userId, lastReply string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Escalation] Session %s needs a human agent", sessionId))

	// Link straight to the transcript in the backoffice
	sessionLink := fmt.Sprintf("%s/sessions/%s", s.backofficeURL, sessionId)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Customer complaint escalated</h2>
			<p>User <b>%s</b> raised a complaint in session <b>%s</b>.</p>
			<p>Last assistant reply:</p>
			<blockquote style="border-left: 3px solid #ccc; padding-left: 10px; color: #555;">%s</blockquote>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open transcript</a>
			<p>Or copy this link:</p>
			<p>%s</p>
		</div>
	`, userId, sessionId, lastReply, sessionLink, sessionLink)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send escalation alert to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Escalation alert sent to %s\n", toEmail)
	return nil
}
