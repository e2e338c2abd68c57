// Package badger is the badgerhold-backed persistence layer: one embedded,
// on-disk store shared by the pattern and repository components, each
// through its own thin typed wrapper.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/dno-gatherer/internal/config"
)

// Manager owns the Badger database connection and exposes the per-entity
// storage types built on top of it. Construct once at process start and
// pass Patterns()/Repository() to the pattern.Store and
// repository.Repository constructors.
type Manager struct {
	store      *badgerhold.Store
	patterns   *PatternBacking
	repository *RepositoryStore
	logger     arbor.ILogger
}

// NewManager opens (or creates) the Badger database at cfg.Path -- wiping
// any existing database there first when cfg.ResetOnStartup is set -- and
// wires up the per-entity stores on top of the resulting handle.
func NewManager(logger arbor.ILogger, cfg config.BadgerConfig) (*Manager, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			logger.Debug().Str("path", cfg.Path).Msg("deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Path).Msg("failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("opening badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	m := &Manager{
		store:  store,
		logger: logger,
	}
	m.patterns = NewPatternBacking(store, logger)
	m.repository = NewRepositoryStore(store, logger)

	logger.Info().Str("path", cfg.Path).Msg("badger storage manager initialized")
	return m, nil
}

// Patterns returns the pattern.Backing implementation.
func (m *Manager) Patterns() *PatternBacking {
	return m.patterns
}

// Repository returns the repository.Store implementation.
func (m *Manager) Repository() *RepositoryStore {
	return m.repository
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
