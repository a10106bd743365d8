package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/wneessen/go-mail"
)

// Mail is an outgoing message.
type Mail struct {
	To      []string
	Bcc     []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer logs mail instead of sending it. Used in dev mode.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs m.
func (l LogMailer) Send(_ context.Context, m Mail) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail", "to", m.To, "bcc", len(m.Bcc), "subject", m.Subject, "text", m.Text)
	return nil
}

// SMTPMailer sends mail through an SMTP relay. Credentials switch on
// SMTP auth with mechanism discovery; STARTTLS is used when offered.
type SMTPMailer struct {
	Addr     string // host:port
	Username string
	Password string
	From     string

	send func(ctx context.Context, msg *mail.Msg) error
}

// Send delivers m as a multipart/alternative message.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := s.message(m)
	if err != nil {
		return err
	}
	send := s.send
	if send == nil {
		send = s.dialAndSend
	}
	if err := send(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

func (s *SMTPMailer) message(m Mail) (*mail.Msg, error) {
	if len(m.To)+len(m.Bcc) == 0 {
		return nil, fmt.Errorf("mail %q has no recipients", m.Subject)
	}
	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", s.From, err)
	}
	if len(m.To) > 0 {
		if err := msg.To(m.To...); err != nil {
			return nil, fmt.Errorf("mail recipients: %w", err)
		}
	}
	if len(m.Bcc) > 0 {
		if err := msg.Bcc(m.Bcc...); err != nil {
			return nil, fmt.Errorf("mail recipients: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	switch {
	case m.Text != "" && m.HTML != "":
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	case m.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
	}
	return msg, nil
}

func (s *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	host, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("smtp address %q: %w", s.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("smtp port %q: %w", portStr, err)
	}
	opts := []mail.Option{mail.WithPort(port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password))
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
