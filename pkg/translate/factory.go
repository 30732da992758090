package translate

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EngineType represents the type of model backend to use.
type EngineType string

const (
	// EngineOpusMT uses a hosted opus-mt model server as the backend.
	EngineOpusMT EngineType = "opusmt"
	// EngineLocal runs MarianMT pipelines in local Python workers.
	EngineLocal EngineType = "local"
	// EngineLibreTranslate uses LibreTranslate as the backend.
	EngineLibreTranslate EngineType = "libretranslate"
)

// Config holds configuration for creating a Backend instance.
type Config struct {
	// Engine specifies which model backend to use.
	Engine EngineType
	// BaseURL is the base URL for HTTP backends. Ignored by the local
	// engine. Defaults depend on the engine when not specified.
	BaseURL string
	// APIToken is an optional bearer token for the opus-mt server.
	APIToken string
	// PythonPath and WorkerScript configure the local engine.
	PythonPath   string
	WorkerScript string
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewBackend creates a new Backend instance based on the configuration.
// This factory function allows switching between model runtimes without
// changing the service or HTTP layers.
func NewBackend(cfg Config) (Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine":   cfg.Engine,
		"base_url": cfg.BaseURL,
	}).Info("Creating model backend")

	switch cfg.Engine {
	case EngineOpusMT:
		return NewOpusMTClient(cfg.BaseURL, cfg.APIToken, cfg.Logger), nil
	case EngineLocal:
		return NewLocalBackend(cfg.PythonPath, cfg.WorkerScript, cfg.Logger), nil
	case EngineLibreTranslate:
		return NewLibreTranslateClient(cfg.BaseURL, cfg.Logger), nil
	default:
		cfg.Logger.WithFields(logrus.Fields{
			"engine": cfg.Engine,
		}).Error("Unknown model backend")
		return nil, fmt.Errorf("unknown model backend: %s", cfg.Engine)
	}
}

// ParseEngineType parses a string into an EngineType.
// Returns an error if the string is not a valid engine type.
func ParseEngineType(s string) (EngineType, error) {
	switch s {
	case "opusmt", "opus-mt", "OpusMT":
		return EngineOpusMT, nil
	case "local", "Local":
		return EngineLocal, nil
	case "libretranslate", "LibreTranslate", "LIBRETRANSLATE":
		return EngineLibreTranslate, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: opusmt, local, libretranslate)", s)
	}
}
