package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLibreTranslateURL is the default base URL for LibreTranslate API.
	DefaultLibreTranslateURL = "http://localhost:5000"
	// DefaultLibreTranslateTimeout is the default timeout for HTTP requests.
	DefaultLibreTranslateTimeout = 5 * time.Minute
)

// LibreTranslateClient implements the Backend interface using
// LibreTranslate, a self-hosted, open-source machine translation API.
// LibreTranslate keeps one shared engine rather than per-pair models,
// so "loading a model" here means validating the pair against the
// /languages endpoint and binding a handle to it.
type LibreTranslateClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewLibreTranslateClient creates a new LibreTranslate client.
// baseURL should point to the LibreTranslate server (default: http://localhost:5000).
func NewLibreTranslateClient(baseURL string, logger *logrus.Logger) *LibreTranslateClient {
	if baseURL == "" {
		baseURL = DefaultLibreTranslateURL
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &LibreTranslateClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultLibreTranslateTimeout,
		},
		logger: logger,
	}
}

// translateRequest represents a LibreTranslate API request.
type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"` // e.g., "en"
	Target string `json:"target"` // e.g., "fr"
	Format string `json:"format"` // "text" or "html"
}

// translateResponse represents a LibreTranslate API response.
type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// languagesResponse represents one entry from the /languages endpoint.
type languagesResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LoadModel validates the pair against the languages advertised by the
// server and returns a handle bound to it. Pairs with a source or
// target the engine does not serve fail with *ModelUnavailableError.
func (c *LibreTranslateClient) LoadModel(ctx context.Context, pair Pair) (Handle, error) {
	codes, err := c.supportedLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch supported languages: %w", err)
	}

	supported := make(map[string]bool, len(codes))
	for _, code := range codes {
		supported[code] = true
	}
	if !supported[pair.Source] || !supported[pair.Target] {
		return nil, &ModelUnavailableError{ModelID: pair.ModelID()}
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": pair.Source,
		"target_lang": pair.Target,
	}).Debug("LibreTranslate pair validated")

	return &libreTranslateHandle{client: c, pair: pair}, nil
}

// CheckHealth verifies that LibreTranslate is ready and operational.
func (c *LibreTranslateClient) CheckHealth(ctx context.Context) error {
	// Use the /languages endpoint as a health check
	endpoint := c.baseURL + "/languages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url": endpoint,
		}).Error("Health check request failed")
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.logger.Debug("LibreTranslate health check passed")
	return nil
}

// supportedLanguages returns the language codes served by the engine.
func (c *LibreTranslateClient) supportedLanguages(ctx context.Context) ([]string, error) {
	endpoint := c.baseURL + "/languages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create languages request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var languages []languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		codes = append(codes, lang.Code)
	}

	c.logger.WithFields(logrus.Fields{
		"count": len(codes),
	}).Debug("Fetched supported languages")

	return codes, nil
}

// libreTranslateHandle is a Handle bound to one validated pair.
type libreTranslateHandle struct {
	client *LibreTranslateClient
	pair   Pair
}

func (h *libreTranslateHandle) ModelID() string { return h.pair.ModelID() }

// Translate translates text through the shared LibreTranslate engine.
func (h *libreTranslateHandle) Translate(ctx context.Context, text string) (string, error) {
	c := h.client

	c.logger.WithFields(logrus.Fields{
		"source_lang": h.pair.Source,
		"target_lang": h.pair.Target,
		"text_length": len(text),
	}).Debug("Translating text with LibreTranslate")

	reqPayload := translateRequest{
		Q:      text,
		Source: h.pair.Source,
		Target: h.pair.Target,
		Format: "text",
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&reqPayload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL + "/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url": endpoint,
		}).Error("Translation request failed")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(bodyBytes),
		}).Error("Translation request returned non-OK status")
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var ltResp translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ltResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"source_lang": h.pair.Source,
		"target_lang": h.pair.Target,
		"duration_ms": duration.Milliseconds(),
	}).Info("Translation completed successfully")

	return ltResp.TranslatedText, nil
}
