package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/caffe-cappuccino/dl/pkg/catalog"
	"github.com/caffe-cappuccino/dl/pkg/translate"
)

// Result is the outcome of one successful translation request.
// Ephemeral: produced and consumed within a single request cycle.
type Result struct {
	Text             string  `json:"translated_text"`
	ModelID          string  `json:"model_id"`
	SourceCode       string  `json:"source_lang"`
	TargetCode       string  `json:"target_lang"`
	InferenceSeconds float64 `json:"inference_time_seconds"`
}

// TranslationService orchestrates one translation request: validate
// input, resolve display names to codes, fetch the cached model handle
// (loading it on first use), run inference. Each request starts fresh;
// no state is carried between requests beyond the model cache.
type TranslationService struct {
	cache  *translate.ModelCache
	logger *logrus.Logger
}

// NewTranslationService creates a new TranslationService instance.
func NewTranslationService(cache *translate.ModelCache, logger *logrus.Logger) *TranslationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TranslationService{
		cache:  cache,
		logger: logger,
	}
}

// Languages returns the catalog entries for populating the UI selectors.
func (s *TranslationService) Languages() []catalog.Entry {
	return catalog.Entries()
}

// Translate translates text between the two named languages.
//
// Failure modes, all surfaced as typed errors rather than crashes:
// ErrEmptyInput for blank text (the model layer is never touched),
// catalog.ErrUnknownLanguage for names outside the catalog,
// *translate.ModelUnavailableError for pairs with no published model,
// *TranslationFailedError for any inference-time failure. There is no
// retry: a failed translation is reported once.
func (s *TranslationService) Translate(ctx context.Context, sourceName, targetName, text string) (Result, error) {
	startTime := time.Now()

	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}

	sourceCode, err := catalog.CodeOf(sourceName)
	if err != nil {
		return Result{}, fmt.Errorf("source language: %w", err)
	}
	targetCode, err := catalog.CodeOf(targetName)
	if err != nil {
		return Result{}, fmt.Errorf("target language: %w", err)
	}

	pair := translate.Pair{Source: sourceCode, Target: targetCode}

	s.logger.WithFields(logrus.Fields{
		"source_lang": sourceCode,
		"target_lang": targetCode,
		"model_id":    pair.ModelID(),
		"text_length": len(text),
	}).Info("Translation request received")

	// May block for a long time on the first request for this pair
	// while the backend fetches and loads model weights.
	handle, err := s.cache.Get(ctx, pair)
	if err != nil {
		translate.RecordTranslationRequest(time.Since(startTime), false, len(text), 0)
		return Result{}, err
	}

	// Time inference alone: a cold load above can dominate the first
	// request and would otherwise be reported as inference time.
	inferStart := time.Now()
	translated, err := handle.Translate(ctx, text)
	if err != nil {
		translate.RecordTranslationRequest(time.Since(startTime), false, len(text), 0)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"model_id": handle.ModelID(),
		}).Error("Inference failed")
		return Result{}, &TranslationFailedError{Reason: err.Error(), Err: err}
	}

	inference := time.Since(inferStart)
	translate.RecordTranslationRequest(time.Since(startTime), true, len(text), len(translated))

	s.logger.WithFields(logrus.Fields{
		"model_id":       handle.ModelID(),
		"inference_time": inference.Seconds(),
	}).Info("Translation completed successfully")

	return Result{
		Text:             translated,
		ModelID:          handle.ModelID(),
		SourceCode:       sourceCode,
		TargetCode:       targetCode,
		InferenceSeconds: inference.Seconds(),
	}, nil
}

// ExportFilename names the plain-text download for a translation.
func ExportFilename(sourceCode, targetCode string) string {
	return fmt.Sprintf("translation_%s_%s.txt", sourceCode, targetCode)
}
