package service

import (
	"errors"
	"fmt"

	"github.com/caffe-cappuccino/dl/pkg/catalog"
	"github.com/caffe-cappuccino/dl/pkg/translate"
)

// ErrEmptyInput is a local validation failure: the submitted text is
// empty or whitespace-only. It is raised before the model layer is
// touched and is recoverable by re-entry.
var ErrEmptyInput = errors.New("input text is empty")

// TranslationFailedError wraps an inference-time failure. It is the
// catch-all at the request handler boundary: nothing from the model
// runtime propagates as a raw fault to callers.
type TranslationFailedError struct {
	Reason string
	Err    error
}

func (e *TranslationFailedError) Error() string {
	return fmt.Sprintf("translation failed: %s", e.Reason)
}

func (e *TranslationFailedError) Unwrap() error { return e.Err }

// DisplayMessage maps a failure to a user-facing message. It is a pure
// function of the error kind, independent of any UI widget state, and
// returns "" for a nil error.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}

	var unavailable *translate.ModelUnavailableError
	var failed *TranslationFailedError

	switch {
	case errors.Is(err, ErrEmptyInput):
		return "Please enter some text to translate."
	case errors.Is(err, catalog.ErrUnknownLanguage):
		return "The selected language is not supported."
	case errors.As(err, &unavailable):
		return "No translation model is published for this language pair. Please choose a different combination."
	case errors.As(err, &failed):
		return fmt.Sprintf("Translation failed: %s. Please try again.", failed.Reason)
	default:
		return "An unexpected error occurred. Please try again."
	}
}
