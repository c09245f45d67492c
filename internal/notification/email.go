package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/segyhp/lending-engine/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer delivers a rendered HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type emailData struct {
	Title         string
	ApplicationID string
	TransactionID string
	Reason        string
	SupportEmail  string
	Date          string
}

// EmailNotifier renders templated emails and hands them to a Mailer.
type EmailNotifier struct {
	mailer       Mailer
	supportEmail string
	templates    map[Kind]*template.Template
	now          func() time.Time
}

func NewEmailNotifier(mailer Mailer, supportEmail string) (*EmailNotifier, error) {
	files := map[Kind]string{
		KindApproved:         "templates/loan_approved.html",
		KindRejected:         "templates/loan_rejected.html",
		KindPaymentConfirmed: "templates/payment_confirmed.html",
	}

	templates := make(map[Kind]*template.Template, len(files))
	for kind, file := range files {
		tpl, err := template.ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		templates[kind] = tpl
	}

	return &EmailNotifier{
		mailer:       mailer,
		supportEmail: supportEmail,
		templates:    templates,
		now:          time.Now,
	}, nil
}

func (n *EmailNotifier) NotifyApproved(ctx context.Context, email string, applicationID uuid.UUID) error {
	return n.send(ctx, KindApproved, email, "Loan Application Approved", emailData{
		Title:         "Loan Application Approved",
		ApplicationID: applicationID.String(),
	})
}

func (n *EmailNotifier) NotifyRejected(ctx context.Context, email, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "Not specified"
	}
	return n.send(ctx, KindRejected, email, "Loan Application Status Update", emailData{
		Title:  "Loan Application Status Update",
		Reason: reason,
	})
}

func (n *EmailNotifier) NotifyPaymentConfirmed(ctx context.Context, email string, transactionID uuid.UUID) error {
	return n.send(ctx, KindPaymentConfirmed, email, "Payment Received - Confirmation", emailData{
		Title:         "Payment Received",
		TransactionID: transactionID.String(),
		Date:          n.now().Format("02 Jan 2006"),
	})
}

func (n *EmailNotifier) send(ctx context.Context, kind Kind, to, subject string, data emailData) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient email is empty")
	}
	data.SupportEmail = n.supportEmail

	var body bytes.Buffer
	if err := n.templates[kind].ExecuteTemplate(&body, "layout", data); err != nil {
		return fmt.Errorf("render %s email: %w", kind, err)
	}

	return n.mailer.Send(ctx, to, subject, body.String())
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Attempts is the total number of send attempts, Backoff the linear
	// step between them.
	Attempts int
	Backoff  time.Duration
}

// SMTPMailer sends mail through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, to, subject, htmlBody)

	backoff := retry.WithMaxRetries(uint64(m.cfg.Attempts-1), retry.NewLinear(m.cfg.Backoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
			logger.Warn("[smtp] send failed", "attempt", attempt, "to", to, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send email after %d attempts: %w", attempt, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
