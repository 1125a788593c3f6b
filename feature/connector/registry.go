package connector

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"guildsync/feature/roster/models"
)

// ErrNotRegistered is returned when no connector serves the requested system.
var ErrNotRegistered = errors.New("no connector registered for remote system")

// Key identifies one remote system by platform type and platform-side id.
type Key struct {
	Type     models.RemoteSystemType
	SystemID int64
}

// Registry holds the active connectors, keyed by (type, system id).
type Registry struct {
	mu         sync.RWMutex
	connectors map[Key]Connector
	log        *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		connectors: make(map[Key]Connector),
		log:        log,
	}
}

// Register adds a connector. Re-registering a key replaces (and closes) the
// previous connector.
func (r *Registry) Register(key Key, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.connectors[key]; ok {
		if err := old.Close(); err != nil {
			r.log.Warn("failed to close replaced connector", zap.Error(err))
		}
	}
	r.connectors[key] = c
}

// Find returns the connector serving the given remote system.
func (r *Registry) Find(system models.RemoteSystem) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[Key{Type: system.Type, SystemID: system.SystemID}]
	if !ok {
		return nil, ErrNotRegistered
	}
	return c, nil
}

// CloseAll closes every registered connector and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, c := range r.connectors {
		if err := c.Close(); err != nil {
			r.log.Warn("failed to close connector",
				zap.String("type", string(key.Type)),
				zap.Int64("system_id", key.SystemID),
				zap.Error(err))
		}
	}
	r.connectors = make(map[Key]Connector)
}
