package translate

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ModelCache memoizes loaded model handles by model identifier.
// It is the only shared mutable state in the process: initialized
// empty at startup, populated lazily on cache misses, never torn down.
//
// Guarantee: for a fixed identifier the expensive load happens at most
// once per process lifetime. Concurrent misses on the same identifier
// are collapsed into a single backend load via singleflight, and every
// caller observes the identical handle afterwards. Failed loads are
// not cached, so a later request may retry the load.
type ModelCache struct {
	backend Backend
	logger  *logrus.Logger

	mu      sync.RWMutex
	handles map[string]Handle
	group   singleflight.Group
}

// defaultLoadTimeout bounds a detached model load. Cold loads download
// weights, so this matches the generous backend load timeouts.
const defaultLoadTimeout = 15 * time.Minute

// NewModelCache creates an empty cache backed by the given model runtime.
func NewModelCache(backend Backend, logger *logrus.Logger) *ModelCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &ModelCache{
		backend: backend,
		logger:  logger,
		handles: make(map[string]Handle),
	}
}

// Get returns the handle for the pair's model, loading it on first use.
// A cache hit returns immediately and never blocks on loads of other
// identifiers. A miss may block the caller for a long time while the
// backend fetches and loads model weights.
func (c *ModelCache) Get(ctx context.Context, pair Pair) (Handle, error) {
	modelID := pair.ModelID()

	c.mu.RLock()
	handle, ok := c.handles[modelID]
	c.mu.RUnlock()
	if ok {
		recordCacheHit()
		return handle, nil
	}
	recordCacheMiss()

	v, err, shared := c.group.Do(modelID, func() (interface{}, error) {
		// Re-check under the flight: another caller may have completed
		// the load between our miss and the group admitting us.
		c.mu.RLock()
		h, ok := c.handles[modelID]
		c.mu.RUnlock()
		if ok {
			return h, nil
		}

		c.logger.WithFields(logrus.Fields{
			"model_id":    modelID,
			"source_lang": pair.Source,
			"target_lang": pair.Target,
		}).Info("Loading translation model")

		// The load is shared with every concurrent request for this
		// identifier, so it must not die with the initiating caller's
		// context. Detach it and bound it with its own timeout.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultLoadTimeout)
		defer cancel()

		start := time.Now()
		h, err := c.backend.LoadModel(loadCtx, pair)
		recordModelLoad(time.Since(start), err)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"model_id": modelID,
			}).Error("Model load failed")
			return nil, err
		}

		c.mu.Lock()
		c.handles[modelID] = h
		loaded := len(c.handles)
		c.mu.Unlock()
		setModelsLoaded(loaded)

		c.logger.WithFields(logrus.Fields{
			"model_id":      modelID,
			"load_duration": time.Since(start).String(),
			"models_loaded": loaded,
		}).Info("Translation model loaded")
		return h, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.logger.WithFields(logrus.Fields{
			"model_id": modelID,
		}).Debug("Model load shared with concurrent request")
	}
	return v.(Handle), nil
}

// Len returns the number of loaded models.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}
