// Package email provides email sending functionality
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"
)

// Config holds email configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

// Service handles email sending
type Service struct {
	config    *Config
	templates map[string]*template.Template
}

// NewService creates a new email service
func NewService(config *Config) *Service {
	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
	}
	s.loadTemplates()
	return s
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// LifecycleEmailData holds data for membership lifecycle emails
type LifecycleEmailData struct {
	MemberName    string
	Detail        string
	EffectiveDate string
	PortalURL     string
}

const lifecycleTemplate = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1d4ed8; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .btn { display: inline-block; background: #1d4ed8; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h2>{{.Title}}</h2>
    </div>
    <div class="content">
        <p>Hello {{.Data.MemberName}},</p>
        <p>{{.Data.Detail}}</p>
        {{if .Data.EffectiveDate}}<p>Effective date: <strong>{{.Data.EffectiveDate}}</strong></p>{{end}}
        <a href="{{.Data.PortalURL}}" class="btn">Open your member portal</a>
        <p style="margin-top: 16px; font-size: 14px; color: #6b7280;">
            If you were not expecting this email, please contact support.
        </p>
    </div>
    <div class="footer">
        FinLead Membership • Advisor Career Program
    </div>
</div>
</body>
</html>
`

// loadTemplates loads all email templates
func (s *Service) loadTemplates() {
	s.templates["lifecycle"] = template.Must(template.New("lifecycle").Parse(lifecycleTemplate))
}

// SendLifecycle sends a membership lifecycle email (suspension confirmed,
// cancellation scheduled, promotion decided, demotion notice).
func (s *Service) SendLifecycle(to, title string, data LifecycleEmailData) error {
	tmpl, ok := s.templates["lifecycle"]
	if !ok {
		return fmt.Errorf("lifecycle template not loaded")
	}

	var body bytes.Buffer
	err := tmpl.Execute(&body, struct {
		Title string
		Data  LifecycleEmailData
	}{Title: title, Data: data})
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	return s.Send(&Email{
		To:       []string{to},
		Subject:  title,
		HTMLBody: body.String(),
	})
}

// Send sends an email message
func (s *Service) Send(email *Email) error {
	if s.config.Host == "" {
		log.Printf("[Email] SMTP not configured, skipping email to %v", email.To)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	if email.HTMLBody != "" {
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(email.HTMLBody)
	} else {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		msg.WriteString(email.Body)
	}

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	if s.config.UseTLS {
		return s.sendTLS(addr, auth, s.config.From, email.To, []byte(msg.String()))
	}
	return smtp.SendMail(addr, auth, s.config.From, email.To, []byte(msg.String()))
}

func (s *Service) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("failed to dial TLS: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
