package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError is returned for client supplied data that cannot be accepted.
// Reason is safe to send back to the caller as is.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SubmissionRequest is the untrusted wire shape of a contact form post.
type SubmissionRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Message string  `json:"message"`
	Slot    *string `json:"slot,omitempty"`
}

type SubmissionResponse struct {
	Result string `json:"result"`
}

type ErrorResponse struct {
	Code    int    `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// Submission is a validated contact form entry. It only lives for the
// duration of one request.
type Submission struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Message   string
	Slot      *Slot
	CreatedAt time.Time
}

// NewSubmission validates req. The email address is only checked for
// presence here; mailbox syntax is left to the notifier.
func NewSubmission(req *SubmissionRequest) (*Submission, error) {
	if req.Name == "" {
		return nil, &ValidationError{Reason: "Empty name"}
	}
	if req.Email == "" {
		return nil, &ValidationError{Reason: "Empty email"}
	}
	if req.Message == "" {
		return nil, &ValidationError{Reason: "Empty message"}
	}

	var slot *Slot
	if req.Slot != nil {
		parsed, err := ParseSlot(*req.Slot)
		if err != nil {
			var slotErr *SlotError
			if errors.As(err, &slotErr) {
				return nil, &ValidationError{Reason: slotErr.Reason, Err: err}
			}
			return nil, &ValidationError{Reason: err.Error(), Err: err}
		}
		slot = parsed
	}

	return &Submission{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		Slot:      slot,
		CreatedAt: time.Now(),
	}, nil
}

// Lines renders the submission as the lines of a plain text email body.
func (s *Submission) Lines() []string {
	lines := []string{
		fmt.Sprintf("Name: %s", s.Name),
		fmt.Sprintf("Email: %s", s.Email),
		fmt.Sprintf("Message: %s", s.Message),
	}
	if s.Slot != nil {
		lines = append(lines, s.Slot.String())
	}
	return lines
}

func (s *Submission) Body() string {
	return strings.Join(s.Lines(), "\n")
}
