// Package notifier relays validated contact submissions by email.
//
// A Notifier formats the submission, resolves sender and recipient mailboxes
// from the delivery configuration and performs exactly one synchronous send
// through a Transport. There is no retry and no queue: the first failure is
// returned to the caller as a *DeliveryError.
package notifier

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contact-api/internal/config"
	"contact-api/internal/models"
)

const (
	SenderName = "Contact Form"
	Subject    = "Contact form submission"
)

// Transport hands a composed message to a mail relay and returns the
// identifiers the relay reported for it.
type Transport interface {
	Send(ctx context.Context, env *Envelope) ([]string, error)
}

type Notifier struct {
	cfg       *config.Delivery
	transport Transport
	parser    AddressParser
	tracer    trace.Tracer
}

type Option func(*Notifier)

func WithAddressParser(p AddressParser) Option {
	return func(n *Notifier) {
		n.parser = p
	}
}

func New(cfg *config.Delivery, transport Transport, opts ...Option) *Notifier {
	n := &Notifier{
		cfg:       cfg,
		transport: transport,
		parser:    RFC5322Parser{},
		tracer:    otel.Tracer("contact-notifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends sub to the configured destination and returns the relay's
// delivery identifier. Acceptance by the relay is not a delivery guarantee.
func (n *Notifier) Notify(ctx context.Context, sub *models.Submission) (string, error) {
	ctx, span := n.tracer.Start(ctx, "contact.notifier.notify",
		trace.WithAttributes(
			attribute.String("submission.id", sub.ID.String()),
			attribute.String("operation", "email.send"),
		))
	defer span.End()

	from, err := n.parser.ParseAddress(n.cfg.User)
	if err != nil {
		return "", n.fail(span, deliveryError("Invalid email sender", err))
	}
	from = &mail.Address{Name: SenderName, Address: from.Address}

	to, err := n.parser.ParseAddress(n.cfg.To)
	if err != nil {
		return "", n.fail(span, deliveryError("Invalid email destination", err))
	}

	env := &Envelope{
		MessageID: messageID(sub.ID.String(), from),
		From:      from,
		To:        to,
		Subject:   Subject,
		Body:      sub.Body(),
		Date:      sub.CreatedAt,
	}

	ids, err := n.transport.Send(ctx, env)
	if err != nil {
		var dErr *DeliveryError
		if errors.As(err, &dErr) {
			return "", n.fail(span, dErr)
		}
		return "", n.fail(span, deliveryError(err.Error(), err))
	}

	if len(ids) > 1 {
		ids = ids[:1]
	}
	result := strings.Join(ids, ", ")

	span.SetAttributes(
		attribute.String("delivery.result", result),
		attribute.Bool("success", true),
	)
	return result, nil
}

func (n *Notifier) fail(span trace.Span, err *DeliveryError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Reason)
	return err
}
