package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

func subject(n apppayment.Notification) string {
	return "Order Confirmed #" + n.OrderID
}

func body(n apppayment.Notification) string {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", n.OrderID)
	fmt.Fprintf(&b, "Total Amount: %s", n.Amount.StringFixed(2))
	if n.Currency != "" {
		fmt.Fprintf(&b, " %s", n.Currency)
	}
	b.WriteString("\n\nYour payment was received and your order is confirmed.\n")
	return b.String()
}

// LogNotifier writes confirmations to the log instead of sending them.
type LogNotifier struct {
	log observability.Logger
}

func NewLogNotifier(log observability.Logger) *LogNotifier {
	if log == nil {
		log = observability.NopLogger()
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n apppayment.Notification) error {
	logctx.FromOr(ctx, l.log).Info("order_confirmation",
		observability.F("recipient", n.Recipient),
		observability.F("subject", subject(n)),
		observability.F("order_id", n.OrderID),
		observability.F("amount", n.Amount.StringFixed(2)),
	)
	return nil
}

type SMTPConfig struct {
	// Addr is host:port of the relay.
	Addr     string
	Username string
	Password string
	From     string
}

// SMTPNotifier sends confirmations through a mail relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	host string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Addr == "" || cfg.From == "" {
		return nil, errors.New("notify: smtp address and from address are required")
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp address: %w", err)
	}
	return &SMTPNotifier{cfg: cfg, host: host, send: smtp.SendMail}, nil
}

func (s *SMTPNotifier) Notify(ctx context.Context, n apppayment.Notification) error {
	if n.Recipient == "" {
		return errors.New("notify: recipient is empty")
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.host)
	}
	msg := message(s.cfg.From, n.Recipient, subject(n), body(n))

	// smtp.SendMail takes no context; stop waiting when ctx ends.
	done := make(chan error, 1)
	go func() { done <- s.send(s.cfg.Addr, auth, s.cfg.From, []string{n.Recipient}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: send to %s: %w", n.Recipient, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func message(from, to, subj, text string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subj)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(text, "\n", "\r\n"))
	return []byte(b.String())
}
