package labeler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the Ollama server could not be reached.
	ErrUnavailable = errors.New("ollama is not running")

	// ErrModelNotFound indicates the configured model is not pulled.
	ErrModelNotFound = errors.New("model not available in ollama")
)

// APIError is a non-200 response from the Ollama API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Message)
}
