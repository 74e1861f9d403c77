package notifier

import (
	"context"
	"fmt"

	dapr "github.com/dapr/go-sdk/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BindingInvoker is the part of the Dapr client used to reach an output binding.
type BindingInvoker interface {
	InvokeBinding(ctx context.Context, in *dapr.InvokeBindingRequest) (*dapr.BindingEvent, error)
}

var _ BindingInvoker = (dapr.Client)(nil)

// DaprTransport relays messages through a Dapr SMTP output binding
// (bindings.smtp), leaving relay credentials to the sidecar component.
type DaprTransport struct {
	client  BindingInvoker
	binding string
	tracer  trace.Tracer
}

func NewDaprTransport(client BindingInvoker, binding string) *DaprTransport {
	return &DaprTransport{
		client:  client,
		binding: binding,
		tracer:  otel.Tracer("dapr-transport"),
	}
}

// Send invokes the binding's create operation. The binding does not report a
// queue id, so the message's own Message-ID is returned unless the binding
// answers with a "messageId" metadata entry.
func (t *DaprTransport) Send(ctx context.Context, env *Envelope) ([]string, error) {
	ctx, span := t.tracer.Start(ctx, "contact.transport.dapr",
		trace.WithAttributes(
			attribute.String("dapr.binding", t.binding),
			attribute.String("operation", "dapr.binding"),
		))
	defer span.End()

	req := &dapr.InvokeBindingRequest{
		Name:      t.binding,
		Operation: "create",
		Data:      []byte(env.Body),
		Metadata: map[string]string{
			"emailFrom": env.From.String(),
			"emailTo":   env.To.Address,
			"subject":   env.Subject,
		},
	}

	event, err := t.client.InvokeBinding(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to invoke binding %s: %w", t.binding, err)
	}

	id := env.MessageID
	if event != nil && event.Metadata["messageId"] != "" {
		id = event.Metadata["messageId"]
	}

	span.SetAttributes(attribute.Bool("success", true))
	return []string{id}, nil
}
