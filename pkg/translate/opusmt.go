package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultOpusMTURL is the default base URL for the opus-mt model server.
	DefaultOpusMTURL = "http://localhost:8000"
	// DefaultOpusMTLoadTimeout bounds a cold model load. First use of a
	// pair downloads weights, so this is deliberately generous.
	DefaultOpusMTLoadTimeout = 10 * time.Minute
	// DefaultOpusMTTranslateTimeout bounds a single inference call.
	DefaultOpusMTTranslateTimeout = 2 * time.Minute
)

// OpusMTClient implements the Backend interface against a model server
// that hosts the pretrained Helsinki-NLP opus-mt checkpoints. Each
// language pair is a separate published model; the server fetches and
// loads weights on the first load request for an identifier.
type OpusMTClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewOpusMTClient creates a new opus-mt model server client.
// baseURL should point to the model server (default: http://localhost:8000).
// apiToken is optional and sent as a bearer token when set.
func NewOpusMTClient(baseURL, apiToken string, logger *logrus.Logger) *OpusMTClient {
	if baseURL == "" {
		baseURL = DefaultOpusMTURL
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &OpusMTClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: DefaultOpusMTLoadTimeout,
		},
		logger: logger,
	}
}

// loadResponse represents the model server's response to a load request.
type loadResponse struct {
	ModelID string `json:"model_id"`
	Loaded  bool   `json:"loaded"`
}

// inferRequest represents an inference request for a loaded model.
type inferRequest struct {
	Text string `json:"text"`
}

// inferResponse represents an inference response.
type inferResponse struct {
	TranslatedText string `json:"translated_text"`
	Error          string `json:"error,omitempty"`
}

// LoadModel asks the server to fetch and load the model for the pair.
// The call blocks until the model is resident (seconds to minutes on a
// cold load). A 404 means the identifier is not a published model.
func (c *OpusMTClient) LoadModel(ctx context.Context, pair Pair) (Handle, error) {
	modelID := pair.ModelID()

	c.logger.WithFields(logrus.Fields{
		"model_id":    modelID,
		"source_lang": pair.Source,
		"target_lang": pair.Target,
	}).Debug("Requesting model load from opus-mt server")

	endpoint := c.modelURL(modelID, "load")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create load request: %w", err)
	}
	c.authorize(req)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url": endpoint,
		}).Error("Model load request failed")
		return nil, fmt.Errorf("load request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Model is resident.
	case http.StatusNotFound:
		// The only signal that the language pair is unsupported.
		return nil, &ModelUnavailableError{ModelID: modelID}
	default:
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(bodyBytes),
		}).Error("Model load returned non-OK status")
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var loadResp loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&loadResp); err != nil {
		return nil, fmt.Errorf("decode load response: %w", err)
	}
	if !loadResp.Loaded {
		return nil, fmt.Errorf("model server reported %s as not loaded", modelID)
	}

	c.logger.WithFields(logrus.Fields{
		"model_id":    modelID,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Model loaded on opus-mt server")

	return &opusMTHandle{client: c, modelID: modelID}, nil
}

// CheckHealth verifies that the model server is ready and operational.
func (c *OpusMTClient) CheckHealth(ctx context.Context) error {
	endpoint := c.baseURL + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.logger.Debug("opus-mt server health check passed")
	return nil
}

func (c *OpusMTClient) modelURL(modelID, action string) string {
	return fmt.Sprintf("%s/models/%s/%s", c.baseURL, url.PathEscape(modelID), action)
}

func (c *OpusMTClient) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

// opusMTHandle is a Handle bound to one loaded model on the server.
type opusMTHandle struct {
	client  *OpusMTClient
	modelID string
}

func (h *opusMTHandle) ModelID() string { return h.modelID }

// Translate runs one inference call against the loaded model.
func (h *opusMTHandle) Translate(ctx context.Context, text string) (string, error) {
	c := h.client

	c.logger.WithFields(logrus.Fields{
		"model_id":    h.modelID,
		"text_length": len(text),
	}).Debug("Translating text with opus-mt server")

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&inferRequest{Text: text}); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.modelURL(h.modelID, "translate")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

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

	var inferResp inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&inferResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if inferResp.Error != "" {
		return "", fmt.Errorf("inference failed: %s", inferResp.Error)
	}

	c.logger.WithFields(logrus.Fields{
		"model_id":    h.modelID,
		"duration_ms": duration.Milliseconds(),
	}).Info("Translation completed successfully")

	return inferResp.TranslatedText, nil
}
