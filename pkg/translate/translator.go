package translate

import (
	"context"
	"fmt"
)

// modelIDPrefix is the upstream naming scheme for per-pair pretrained
// translation checkpoints (e.g. "Helsinki-NLP/opus-mt-en-es").
const modelIDPrefix = "Helsinki-NLP/opus-mt"

// Pair identifies a source/target language combination using ISO 639-1
// codes. A Pair exists only for the duration of one request.
type Pair struct {
	Source string
	Target string
}

// ModelID composes the model identifier for this pair. Pure string
// composition: deterministic, injective over distinct pairs, never fails.
func (p Pair) ModelID() string {
	return fmt.Sprintf("%s-%s-%s", modelIDPrefix, p.Source, p.Target)
}

// Resolve maps a source/target code pair to its model identifier.
func Resolve(sourceLang, targetLang string) string {
	return Pair{Source: sourceLang, Target: targetLang}.ModelID()
}

// Handle wraps a loaded translation model and its text preprocessor.
// Handles are expensive to construct, owned by the ModelCache, and
// never mutated after construction, so concurrent use is safe.
type Handle interface {
	// Translate runs the text through the model's tokenizer/inference
	// pipeline and returns one translated string. Single input, single
	// output; sequences beyond the model's maximum length are handled
	// (or truncated) by the model itself.
	Translate(ctx context.Context, text string) (string, error)

	// ModelID returns the identifier this handle was loaded for.
	ModelID() string
}

// Backend is the external model runtime. Implementations load
// pretrained models on demand; whether a pair is supported is only
// discovered when the load fails.
type Backend interface {
	// LoadModel fetches and loads the model for the given pair. This
	// is a potentially slow, network- and disk-bound operation. If the
	// pair has no published model it fails with *ModelUnavailableError.
	LoadModel(ctx context.Context, pair Pair) (Handle, error)

	// CheckHealth verifies that the backend is ready and operational.
	CheckHealth(ctx context.Context) error
}
