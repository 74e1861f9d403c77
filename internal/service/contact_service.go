package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"contact-api/internal/logging"
	"contact-api/internal/models"
)

// Notifier delivers a validated submission and returns the delivery identifier.
type Notifier interface {
	Notify(ctx context.Context, sub *models.Submission) (string, error)
}

type ContactService struct {
	notifier Notifier
	logger   *logging.ContextLogger
	tracer   trace.Tracer
}

func NewContactService(notifier Notifier, logger *logging.ContextLogger) *ContactService {
	return &ContactService{
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("contact-service"),
	}
}

// Submit validates req and relays it. Errors are either *models.ValidationError
// (nothing was sent) or whatever the notifier returned.
func (s *ContactService) Submit(ctx context.Context, req *models.SubmissionRequest) (*models.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "contact.service.submit",
		trace.WithAttributes(
			attribute.Bool("submission.has_slot", req.Slot != nil),
		))
	defer span.End()

	sub, err := s.validate(ctx, req)
	if err != nil {
		s.logger.WarnWithTracing(ctx, "Rejected contact submission", logrus.Fields{
			"reason": err.Error(),
		})
		span.RecordError(err)
		return nil, err
	}

	fields := logrus.Fields{
		"submission_id": sub.ID.String(),
		"created_at":    sub.CreatedAt,
		"body_lines":    len(sub.Lines()),
	}
	if sub.Slot != nil {
		fields["slot"] = sub.Slot.String()
	}
	s.logger.DebugWithTracing(ctx, "Contact submission validated", fields)

	s.logger.InfoWithTracing(ctx, "Relaying contact submission", logrus.Fields{
		"submission_id": sub.ID.String(),
		"name":          sub.Name,
		"email":         sub.Email,
	})

	result, err := s.notifier.Notify(ctx, sub)
	if err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to relay contact submission", err, logrus.Fields{
			"submission_id": sub.ID.String(),
		})
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoWithTracing(ctx, "Contact submission relayed", logrus.Fields{
		"submission_id": sub.ID.String(),
		"result":        result,
	})

	span.SetAttributes(
		attribute.String("submission.id", sub.ID.String()),
		attribute.Bool("success", true),
	)
	return &models.SubmissionResponse{Result: result}, nil
}

func (s *ContactService) validate(ctx context.Context, req *models.SubmissionRequest) (*models.Submission, error) {
	_, span := s.tracer.Start(ctx, "contact.submission.validate",
		trace.WithAttributes(
			attribute.String("operation", "submission.validate"),
		))
	defer span.End()

	sub, err := models.NewSubmission(req)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("valid", false))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("submission.id", sub.ID.String()),
		attribute.Bool("valid", true),
	)
	return sub, nil
}
