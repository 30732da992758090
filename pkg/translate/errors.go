package translate

import "fmt"

// ModelUnavailableError indicates that the resolved model identifier
// does not correspond to a model published by the upstream provider.
// This is the only way an unsupported language pair is detected; there
// is no upfront whitelist of valid pairs.
type ModelUnavailableError struct {
	ModelID string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %s", e.ModelID)
}
