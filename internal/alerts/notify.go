package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Result describes the outcome of one notification dispatch.
type Result struct {
	Sent   bool   `json:"sent"`
	DryRun bool   `json:"dry_run"`
	To     string `json:"to,omitempty"`
	Detail string `json:"info,omitempty"`
}

// Notifier delivers one alert message to a recipient. A dry-run
// dispatch must report success without contacting any transport.
// Implementations return an error only for real delivery failures.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, message string, dryRun bool) (Result, error)
}

// SMTPConfig holds the outbound mail settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (c SMTPConfig) complete() bool {
	return c.Host != "" && c.User != "" && c.Pass != ""
}

// EmailNotifier sends alert mail over SMTP. With dry-run, or when the
// SMTP settings are incomplete, it simulates the send instead; only a
// dry-run simulation counts as sent.
type EmailNotifier struct {
	cfg SMTPConfig
}

// NewEmailNotifier creates an EmailNotifier.
func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	if cfg.From == "" {
		cfg.From = cfg.User
		if cfg.From == "" {
			cfg.From = "alerts@example.com"
		}
	}
	return &EmailNotifier{cfg: cfg}
}

func (n *EmailNotifier) Notify(_ context.Context, recipient, subject, message string, dryRun bool) (Result, error) {
	if dryRun || !n.cfg.complete() {
		return Result{
			Sent:   dryRun,
			DryRun: dryRun,
			To:     recipient,
			Detail: "Simulated email send (set SMTP_* envs or keep dry_run enabled)",
		}, nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", recipient)
	fmt.Fprintf(&body, "Subject: %s\r\n", subject)
	body.WriteString("\r\n")
	body.WriteString(message)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, n.cfg.Host)
	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{recipient}, []byte(body.String())); err != nil {
		return Result{To: recipient}, fmt.Errorf("email failed: %w", err)
	}

	return Result{Sent: true, To: recipient}, nil
}

// SMSSender abstracts the SMS transport (Twilio REST in production).
type SMSSender interface {
	Send(ctx context.Context, to, body string) (sid string, err error)
}

// SMSNotifier sends alert SMS through an SMSSender. With dry-run, or
// when no sender is configured, it simulates the send.
type SMSNotifier struct {
	sender SMSSender
}

// NewSMSNotifier creates an SMSNotifier. sender may be nil when the
// transport credentials are absent; every send is then simulated.
func NewSMSNotifier(sender SMSSender) *SMSNotifier {
	return &SMSNotifier{sender: sender}
}

func (n *SMSNotifier) Notify(ctx context.Context, recipient, _ string, message string, dryRun bool) (Result, error) {
	if dryRun || n.sender == nil {
		return Result{
			Sent:   dryRun,
			DryRun: dryRun,
			To:     recipient,
			Detail: "Simulated send (provide TWILIO_* envs or set dry_run=1)",
		}, nil
	}

	sid, err := n.sender.Send(ctx, recipient, message)
	if err != nil {
		return Result{To: recipient}, fmt.Errorf("sms failed: %w", err)
	}
	return Result{Sent: true, To: recipient, Detail: sid}, nil
}
