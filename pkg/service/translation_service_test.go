package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caffe-cappuccino/dl/pkg/catalog"
	"github.com/caffe-cappuccino/dl/pkg/translate"
)

// echoBackend serves every pair unless listed as unavailable, and
// counts load and inference calls.
type echoBackend struct {
	mu          sync.Mutex
	loads       int
	inferences  int
	unavailable map[string]bool
	inferErr    error
	loadDelay   time.Duration
}

func newEchoBackend() *echoBackend {
	return &echoBackend{unavailable: make(map[string]bool)}
}

func (b *echoBackend) LoadModel(ctx context.Context, pair translate.Pair) (translate.Handle, error) {
	if b.loadDelay > 0 {
		time.Sleep(b.loadDelay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.loads++
	if b.unavailable[pair.ModelID()] {
		return nil, &translate.ModelUnavailableError{ModelID: pair.ModelID()}
	}
	return &echoHandle{backend: b, modelID: pair.ModelID()}, nil
}

func (b *echoBackend) CheckHealth(ctx context.Context) error { return nil }

type echoHandle struct {
	backend *echoBackend
	modelID string
}

func (h *echoHandle) ModelID() string { return h.modelID }

func (h *echoHandle) Translate(ctx context.Context, text string) (string, error) {
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()

	h.backend.inferences++
	if h.backend.inferErr != nil {
		return "", h.backend.inferErr
	}
	return fmt.Sprintf("[%s] %s", h.modelID, text), nil
}

func newTestService(backend translate.Backend) *TranslationService {
	return NewTranslationService(translate.NewModelCache(backend, nil), nil)
}

func TestTranslateEndToEnd(t *testing.T) {
	backend := newEchoBackend()
	svc := newTestService(backend)

	result, err := svc.Translate(context.Background(), "English", "Spanish", "Hello, how are you?")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}

	if result.Text == "" {
		t.Error("result text is empty")
	}
	if result.ModelID != "Helsinki-NLP/opus-mt-en-es" {
		t.Errorf("model id = %q, want Helsinki-NLP/opus-mt-en-es", result.ModelID)
	}
	if result.SourceCode != "en" || result.TargetCode != "es" {
		t.Errorf("codes = %q/%q, want en/es", result.SourceCode, result.TargetCode)
	}
	if !strings.Contains(result.Text, "Hello, how are you?") {
		t.Errorf("result %q does not carry the input through the fake model", result.Text)
	}
}

func TestTranslateEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "spaces only", text: "   "},
		{name: "tabs and newlines", text: "\t\n  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newEchoBackend()
			svc := newTestService(backend)

			_, err := svc.Translate(context.Background(), "English", "Spanish", tt.text)
			if !errors.Is(err, ErrEmptyInput) {
				t.Fatalf("error = %v, want ErrEmptyInput", err)
			}
			if backend.loads != 0 || backend.inferences != 0 {
				t.Errorf("model layer was touched: loads=%d inferences=%d", backend.loads, backend.inferences)
			}
		})
	}
}

func TestTranslateUnknownLanguage(t *testing.T) {
	backend := newEchoBackend()
	svc := newTestService(backend)

	_, err := svc.Translate(context.Background(), "Klingon", "Spanish", "Heghlu'meH QaQ jajvam")
	if !errors.Is(err, catalog.ErrUnknownLanguage) {
		t.Fatalf("error = %v, want ErrUnknownLanguage", err)
	}
	if backend.loads != 0 {
		t.Errorf("model layer was touched: loads=%d", backend.loads)
	}
}

func TestTranslateUnavailablePairThenValidRequest(t *testing.T) {
	backend := newEchoBackend()
	backend.unavailable[translate.Resolve("th", "he")] = true
	svc := newTestService(backend)

	_, err := svc.Translate(context.Background(), "Thai", "Hebrew", "สวัสดี")
	var unavailable *translate.ModelUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want ModelUnavailableError", err)
	}

	// Catalog and cache must remain usable after the failure.
	result, err := svc.Translate(context.Background(), "English", "Spanish", "Hello")
	if err != nil {
		t.Fatalf("valid request after failure returned error: %v", err)
	}
	if result.Text == "" {
		t.Error("valid request returned empty text")
	}
}

func TestTranslateInferenceFailureIsWrapped(t *testing.T) {
	backend := newEchoBackend()
	backend.inferErr = errors.New("out of memory")
	svc := newTestService(backend)

	_, err := svc.Translate(context.Background(), "English", "Spanish", "Hello")
	var failed *TranslationFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want TranslationFailedError", err)
	}
	if !strings.Contains(failed.Reason, "out of memory") {
		t.Errorf("reason %q does not carry the cause", failed.Reason)
	}
}

func TestTranslateReusesLoadedModel(t *testing.T) {
	backend := newEchoBackend()
	svc := newTestService(backend)

	for i := 0; i < 5; i++ {
		if _, err := svc.Translate(context.Background(), "English", "Spanish", "Hello"); err != nil {
			t.Fatalf("request %d returned error: %v", i, err)
		}
	}

	if backend.loads != 1 {
		t.Errorf("backend loaded %d times across 5 requests, want 1", backend.loads)
	}
	if backend.inferences != 5 {
		t.Errorf("backend ran %d inferences, want 5", backend.inferences)
	}
}

func TestInferenceTimeExcludesModelLoad(t *testing.T) {
	backend := newEchoBackend()
	backend.loadDelay = 300 * time.Millisecond
	svc := newTestService(backend)

	result, err := svc.Translate(context.Background(), "English", "Spanish", "Hello")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}

	// The fake model answers instantly; only the load is slow. The
	// reported inference time must not absorb the cold load.
	if result.InferenceSeconds >= backend.loadDelay.Seconds() {
		t.Errorf("inference time %.3fs includes the %.3fs model load", result.InferenceSeconds, backend.loadDelay.Seconds())
	}
}

func TestDisplayMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "nil error",
			err:      nil,
			contains: "",
		},
		{
			name:     "empty input",
			err:      ErrEmptyInput,
			contains: "enter some text",
		},
		{
			name:     "wrapped empty input",
			err:      fmt.Errorf("request: %w", ErrEmptyInput),
			contains: "enter some text",
		},
		{
			name:     "unknown language",
			err:      fmt.Errorf("source language: %w", catalog.ErrUnknownLanguage),
			contains: "not supported",
		},
		{
			name:     "model unavailable",
			err:      &translate.ModelUnavailableError{ModelID: "Helsinki-NLP/opus-mt-th-he"},
			contains: "No translation model",
		},
		{
			name:     "translation failed",
			err:      &TranslationFailedError{Reason: "worker died"},
			contains: "worker died",
		},
		{
			name:     "unexpected error",
			err:      errors.New("boom"),
			contains: "unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DisplayMessage(tt.err)
			if tt.contains == "" {
				if got != "" {
					t.Errorf("DisplayMessage(nil) = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("DisplayMessage(%v) = %q, want it to contain %q", tt.err, got, tt.contains)
			}
		})
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename("en", "es"); got != "translation_en_es.txt" {
		t.Errorf("ExportFilename = %q, want translation_en_es.txt", got)
	}
}
