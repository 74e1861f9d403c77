package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"contact-api/internal/config"
)

// SMTPTransport submits messages to a relay over plain SMTP, optionally
// upgraded with STARTTLS. A connection is opened per message; nothing is
// dialed before the first Send.
type SMTPTransport struct {
	addr      string
	username  string
	password  string
	startTLS  bool
	timeout   time.Duration
	tlsConfig *tls.Config
	tracer    trace.Tracer
}

type SMTPOption func(*SMTPTransport)

// WithTLSConfig replaces the config used for STARTTLS. ServerName defaults
// to SMTP_SERVER.
func WithTLSConfig(cfg *tls.Config) SMTPOption {
	return func(t *SMTPTransport) {
		t.tlsConfig = cfg
	}
}

func NewSMTPTransport(cfg *config.Delivery, opts ...SMTPOption) *SMTPTransport {
	t := &SMTPTransport{
		addr:      cfg.SMTPAddr(),
		username:  cfg.User,
		password:  cfg.Password,
		startTLS:  cfg.SMTPStartTLS,
		timeout:   cfg.SMTPTimeout,
		tlsConfig: &tls.Config{ServerName: cfg.SMTPHost},
		tracer:    otel.Tracer("smtp-transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send returns the relay's reply to the end of DATA, which usually carries
// the queue id ("2.0.0 Ok: queued as 4F2D01C2").
func (t *SMTPTransport) Send(ctx context.Context, env *Envelope) ([]string, error) {
	ctx, span := t.tracer.Start(ctx, "contact.transport.smtp",
		trace.WithAttributes(
			attribute.String("smtp.addr", t.addr),
			attribute.Bool("smtp.starttls", t.startTLS),
			attribute.String("operation", "smtp.send"),
		))
	defer span.End()

	ids, err := t.send(ctx, env)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("success", true))
	return ids, nil
}

func (t *SMTPTransport) send(ctx context.Context, env *Envelope) ([]string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	msg, err := env.Bytes()
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.addr, err)
	}

	// go-smtp resets conn deadlines around every command, so the only way to
	// honor ctx mid-session is to close the connection under it.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	ids, err := t.converse(conn, env, msg)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("smtp session aborted: %w", errors.Join(ctx.Err(), err))
	}
	return ids, err
}

func (t *SMTPTransport) converse(conn net.Conn, env *Envelope, msg []byte) ([]string, error) {
	var c *smtp.Client
	if t.startTLS {
		var err error
		c, err = smtp.NewClientStartTLS(conn, t.tlsConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls failed: %w", err)
		}
	} else {
		c = smtp.NewClient(conn)
	}
	defer c.Close()

	if t.timeout > 0 {
		c.CommandTimeout = t.timeout
		c.SubmissionTimeout = t.timeout
	}

	if t.password != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return nil, errors.New("smtp server does not support AUTH")
		}
		if err := c.Auth(sasl.NewPlainClient("", t.username, t.password)); err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := c.Mail(env.From.Address, nil); err != nil {
		return nil, fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := c.Rcpt(env.To.Address, nil); err != nil {
		return nil, fmt.Errorf("RCPT TO rejected: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return nil, fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	resp, err := w.CloseWithResponse()
	if err != nil {
		return nil, fmt.Errorf("message rejected: %w", err)
	}

	// The message is accepted at this point; a failed QUIT does not change that.
	_ = c.Quit()

	if resp == nil || resp.StatusText == "" {
		return nil, nil
	}
	return []string{resp.StatusText}, nil
}
