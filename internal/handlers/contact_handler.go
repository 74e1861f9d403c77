package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contact-api/internal/logging"
	"contact-api/internal/models"
	"contact-api/internal/service"
)

const submitEndpoint = "POST /api/contact/submit"

type ContactHandler struct {
	service *service.ContactService
	logger  *logging.ContextLogger
	tracer  trace.Tracer
}

func NewContactHandler(service *service.ContactService, logger *logging.ContextLogger) *ContactHandler {
	return &ContactHandler{
		service: service,
		logger:  logger,
		tracer:  otel.Tracer("contact-handler"),
	}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "contact.handler.submit")
	defer span.End()

	var req models.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnWithTracing(ctx, "Invalid request payload", logrus.Fields{
			"endpoint": submitEndpoint,
			"error":    err.Error(),
		})
		span.RecordError(err)
		BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Submit(ctx, &req)
	if err != nil {
		span.RecordError(err)

		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			span.SetAttributes(attribute.Int("http.status_code", http.StatusBadRequest))
			BadRequest(c, vErr.Reason)
			return
		}

		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("http.status_code", http.StatusInternalServerError))
		ServerError(c, err.Error())
		return
	}

	span.SetAttributes(attribute.Bool("success", true))
	c.JSON(http.StatusOK, resp)
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    http.StatusBadRequest,
		Error:   "Bad Request",
		Message: message,
	})
}

func ServerError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Code:    http.StatusInternalServerError,
		Error:   "Server Error",
		Message: message,
	})
}
