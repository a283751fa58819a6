// Package contact validates contact form submissions.
package contact

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kjstillabower/portfolio-service/internal/models"
)

const (
	msgName    = "Enter your name."
	msgEmail   = "Enter a valid email."
	msgMessage = "Message is too short."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks a submission and returns field name to message for every
// failing field, or nil when the submission is acceptable. Name and message
// are measured after trimming; email is matched as given.
func Validate(msg models.ContactMessage) map[string]string {
	trimmed := models.ContactMessage{
		Name:    strings.TrimSpace(msg.Name),
		Email:   msg.Email,
		Message: strings.TrimSpace(msg.Message),
	}

	err := validation.ValidateStruct(&trimmed,
		validation.Field(&trimmed.Name,
			validation.Required.Error(msgName),
			validation.RuneLength(2, 0).Error(msgName),
		),
		validation.Field(&trimmed.Email,
			validation.Required.Error(msgEmail),
			validation.Match(emailPattern).Error(msgEmail),
		),
		validation.Field(&trimmed.Message,
			validation.Required.Error(msgMessage),
			validation.RuneLength(10, 0).Error(msgMessage),
		),
	)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"form": err.Error()}
	}
	out := make(map[string]string, len(fieldErrs))
	for field, fe := range fieldErrs {
		out[field] = fe.Error()
	}
	return out
}
