package translate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultWorkerScript is the bundled MarianMT worker entrypoint.
	DefaultWorkerScript = "scripts/marian_worker.py"
	// DefaultPythonPath is the interpreter used to run the worker.
	DefaultPythonPath = "python3"
)

// LocalBackend runs pretrained models in Python worker subprocesses,
// one worker per model identifier. The worker downloads the checkpoint
// on startup and keeps the pipeline resident; requests and responses
// are JSON lines over stdin/stdout.
type LocalBackend struct {
	pythonPath string
	scriptPath string
	logger     *logrus.Logger
}

// NewLocalBackend creates a subprocess-based backend. Empty pythonPath
// or scriptPath fall back to the defaults.
func NewLocalBackend(pythonPath, scriptPath string, logger *logrus.Logger) *LocalBackend {
	if pythonPath == "" {
		pythonPath = DefaultPythonPath
	}
	if scriptPath == "" {
		scriptPath = DefaultWorkerScript
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &LocalBackend{
		pythonPath: pythonPath,
		scriptPath: scriptPath,
		logger:     logger,
	}
}

// workerStatus is the first line a worker writes after startup.
type workerStatus struct {
	Ready       bool   `json:"ready"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Error       string `json:"error,omitempty"`
}

// workerRequest is one translation request sent to a worker.
type workerRequest struct {
	Text string `json:"text"`
}

// workerResponse is one translation response read from a worker.
type workerResponse struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translated_text,omitempty"`
	Error          string `json:"error,omitempty"`
}

// LoadModel starts a worker for the pair's model and waits for it to
// report ready. The worker downloads weights on a cold start, so this
// blocks for as long as the fetch takes. A worker that reports the
// checkpoint as unpublished fails with *ModelUnavailableError.
func (b *LocalBackend) LoadModel(ctx context.Context, pair Pair) (Handle, error) {
	modelID := pair.ModelID()
	workerLogger := b.logger.WithField("model_id", modelID)

	cmd := exec.Command(b.pythonPath, b.scriptPath, "--model", modelID)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker for %s: %w", modelID, err)
	}
	workerLogger.WithField("pid", cmd.Process.Pid).Info("Model worker started")

	reader := bufio.NewReader(stdout)

	// The worker writes a single status line once the pipeline is
	// constructed (or the download failed). Honor ctx while waiting.
	statusCh := make(chan workerStatus, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := reader.ReadString('\n')
		if err != nil {
			errCh <- fmt.Errorf("read worker status: %w", err)
			return
		}
		var status workerStatus
		if err := json.Unmarshal([]byte(line), &status); err != nil {
			errCh <- fmt.Errorf("decode worker status: %w", err)
			return
		}
		statusCh <- status
	}()

	var status workerStatus
	select {
	case status = <-statusCh:
	case err := <-errCh:
		cmd.Process.Kill()
		return nil, err
	case <-ctx.Done():
		cmd.Process.Kill()
		return nil, ctx.Err()
	}

	if !status.Ready {
		cmd.Process.Kill()
		if status.Unavailable {
			return nil, &ModelUnavailableError{ModelID: modelID}
		}
		return nil, fmt.Errorf("worker failed to load %s: %s", modelID, status.Error)
	}

	workerLogger.Info("Model worker ready")

	handle := &localHandle{
		modelID: modelID,
		process: cmd,
		stdin:   stdin,
		reader:  reader,
		logger:  workerLogger,
	}

	// Log unexpected worker exits. Handles live for the process
	// lifetime, so an exit here means subsequent requests will fail.
	go func() {
		err := cmd.Wait()
		handle.mu.Lock()
		handle.dead = true
		handle.mu.Unlock()
		workerLogger.WithError(err).Warn("Model worker exited")
	}()

	return handle, nil
}

// CheckHealth verifies the Python interpreter is available. Model
// availability is only known per identifier at load time.
func (b *LocalBackend) CheckHealth(ctx context.Context) error {
	if _, err := exec.LookPath(b.pythonPath); err != nil {
		return fmt.Errorf("python interpreter not found: %w", err)
	}
	return nil
}

// localHandle is a Handle backed by one resident worker subprocess.
// The worker processes one request at a time, so calls are serialized.
type localHandle struct {
	modelID string
	process *exec.Cmd
	stdin   io.WriteCloser
	reader  *bufio.Reader
	logger  *logrus.Entry

	mu   sync.Mutex
	dead bool
}

func (h *localHandle) ModelID() string { return h.modelID }

// Translate sends one request to the worker and reads one response.
func (h *localHandle) Translate(ctx context.Context, text string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dead {
		return "", fmt.Errorf("worker for %s is not running", h.modelID)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	startTime := time.Now()

	payload, err := json.Marshal(&workerRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	if _, err := h.stdin.Write(append(payload, '\n')); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	line, err := h.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var resp workerResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("inference failed: %s", resp.Error)
	}

	h.logger.WithFields(logrus.Fields{
		"duration_ms": time.Since(startTime).Milliseconds(),
		"text_length": len(text),
	}).Debug("Worker translation completed")

	return resp.TranslatedText, nil
}
