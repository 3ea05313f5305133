package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type progressInput struct {
	RunID  string `validate:"required,uuid"`
	Rating int    `validate:"gte=1,lte=5"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(progressInput{Rating: 9})
	msg := FormatValidationError(err)

	if !strings.Contains(msg, "Run id is required") {
		t.Errorf("message %q missing run id error", msg)
	}
	if !strings.Contains(msg, "Rating must be at most 5") {
		t.Errorf("message %q missing rating error", msg)
	}
}

func TestFormatValidationErrorPassthrough(t *testing.T) {
	if got := FormatValidationError(errors.New("EOF")); got != "EOF" {
		t.Errorf("got %q, want EOF", got)
	}
}
