package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/caffe-cappuccino/dl/pkg/service"
	"github.com/caffe-cappuccino/dl/pkg/translate"
)

// stubBackend serves every pair except the ones marked unavailable.
type stubBackend struct {
	unavailable map[string]bool
}

func (b *stubBackend) LoadModel(ctx context.Context, pair translate.Pair) (translate.Handle, error) {
	if b.unavailable[pair.ModelID()] {
		return nil, &translate.ModelUnavailableError{ModelID: pair.ModelID()}
	}
	return &stubHandle{modelID: pair.ModelID()}, nil
}

func (b *stubBackend) CheckHealth(ctx context.Context) error { return nil }

type stubHandle struct {
	modelID string
}

func (h *stubHandle) ModelID() string { return h.modelID }

func (h *stubHandle) Translate(ctx context.Context, text string) (string, error) {
	return fmt.Sprintf("[%s] %s", h.modelID, text), nil
}

func newTestServer(backend translate.Backend) *httptest.Server {
	svc := service.NewTranslationService(translate.NewModelCache(backend, nil), nil)
	queue := service.NewJobQueue(nil)
	queue.SetProcessor(service.NewJobProcessor(svc, nil))
	s := NewHTTPServer(svc, queue, nil, 0)
	return httptest.NewServer(s.Handler())
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestLanguagesEndpoint(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/languages")
	if err != nil {
		t.Fatalf("GET languages: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Languages []struct {
			Name string `json:"name"`
			Code string `json:"code"`
		} `json:"languages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Languages) != 28 {
		t.Errorf("got %d languages, want 28", len(body.Languages))
	}
}

func TestTranslateEndpoint(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/translate", map[string]string{
		"source": "English",
		"target": "Spanish",
		"text":   "Hello, how are you?",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result service.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Text == "" {
		t.Error("translated text is empty")
	}
	if result.ModelID != "Helsinki-NLP/opus-mt-en-es" {
		t.Errorf("model id = %q", result.ModelID)
	}
}

func TestTranslateEndpointErrors(t *testing.T) {
	backend := &stubBackend{unavailable: map[string]bool{
		translate.Resolve("th", "he"): true,
	}}
	ts := newTestServer(backend)
	defer ts.Close()

	tests := []struct {
		name       string
		payload    map[string]string
		wantStatus int
	}{
		{
			name:       "empty text",
			payload:    map[string]string{"source": "English", "target": "Spanish", "text": "   "},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown language",
			payload:    map[string]string{"source": "Klingon", "target": "Spanish", "text": "hi"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "model unavailable",
			payload:    map[string]string{"source": "Thai", "target": "Hebrew", "text": "hi"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/v1/translate", tt.payload)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body struct {
				Error string `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == "" {
				t.Error("error response has no user-facing message")
			}
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/jobs", map[string]string{
		"source": "English",
		"target": "Spanish",
		"text":   "Hello",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.JobID == "" {
		t.Fatal("no job id returned")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		statusResp, err := http.Get(ts.URL + "/api/v1/jobs/" + created.JobID)
		if err != nil {
			t.Fatalf("GET job: %v", err)
		}

		var job struct {
			Status         string `json:"status"`
			TranslatedText string `json:"translated_text"`
			Error          string `json:"error"`
		}
		if err := json.NewDecoder(statusResp.Body).Decode(&job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		statusResp.Body.Close()

		if job.Status == "completed" {
			if job.TranslatedText == "" {
				t.Error("completed job has no translated text")
			}
			return
		}
		if job.Status == "failed" {
			t.Fatalf("job failed: %s", job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in status %q", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJobNotFound(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/does-not-exist")
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEmptyJobRejectedImmediately(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/jobs", map[string]string{
		"source": "English",
		"target": "Spanish",
		"text":   "",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExportDownload(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	form := url.Values{}
	form.Set("source", "English")
	form.Set("target", "Spanish")
	form.Set("text", "Hola, ¿cómo estás?")

	resp, err := http.PostForm(ts.URL+"/api/v1/export", form)
	if err != nil {
		t.Fatalf("POST export: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	disposition := resp.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, `translation_en_es.txt`) {
		t.Errorf("Content-Disposition = %q, want filename translation_en_es.txt", disposition)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if buf.String() != "Hola, ¿cómo estás?" {
		t.Errorf("body = %q", buf.String())
	}
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	page := buf.String()

	if !strings.Contains(page, "<select id=\"source\">") {
		t.Error("page is missing the source selector")
	}
	if !strings.Contains(page, "English") || !strings.Contains(page, "Vietnamese") {
		t.Error("page is missing catalog languages")
	}
	if !strings.Contains(page, `value="French" selected`) {
		t.Error("Accept-Language: fr did not preselect French")
	}
}

func TestIndexPageThemeToggle(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	page := buf.String()

	if !strings.Contains(page, `id="theme"`) {
		t.Error("page is missing the theme toggle")
	}
	if !strings.Contains(page, "body.dark") {
		t.Error("page is missing the dark theme styles")
	}
	for _, color := range []string{"#0d1117", "#161b22", "#e6edf3", "#00d8ff"} {
		if !strings.Contains(page, color) {
			t.Errorf("dark palette is missing %s", color)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&stubBackend{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
