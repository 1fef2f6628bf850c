// Package store persists each user's last rewrite, keyed by email.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/types"
)

// KeyPrefix namespaces rewrite entries
const KeyPrefix = "vault_redo_"

// Key derives the storage key for a user
func Key(email string) string {
	return KeyPrefix + email
}

// Store reads and writes rewrite results. Writes are last-write-wins.
type Store struct {
	backend Backend
	logger  *errors.Logger
}

// New wraps a backend
func New(backend Backend, logger *errors.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Open builds the backend named in the storage config
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (*Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		logger.Info("Using in-memory rewrite storage")
		return New(NewMemoryBackend(), logger), nil
	case "redis":
		backend, err := NewRedisBackend(ctx, cfg.Redis, cfg.TTL)
		if err != nil {
			return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to connect to Redis", err)
		}
		logger.Info("Using Redis rewrite storage", "ttl", cfg.TTL.String())
		return New(backend, logger), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown storage backend %q", cfg.Backend), nil)
	}
}

// Backend returns the underlying backend
func (s *Store) Backend() Backend {
	return s.backend
}

// Load returns the stored rewrite for email, or nil when nothing is stored.
// Undecodable entries yield a CORRUPT_STATE error.
func (s *Store) Load(ctx context.Context, email string) (*types.RewriteResult, error) {
	if email == "" {
		return nil, nil
	}

	data, ok, err := s.backend.Get(ctx, Key(email))
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to read stored rewrite", err).
			WithContext("key", Key(email))
	}
	if !ok {
		return nil, nil
	}

	var result types.RewriteResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeCorruptState, "Stored rewrite is not valid", err).
			WithContext("key", Key(email))
	}
	return &result, nil
}

// Save serializes result under the user's key
func (s *Store) Save(ctx context.Context, email string, result *types.RewriteResult) error {
	if email == "" || result == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeStorageFailed, "Failed to encode rewrite", err)
	}

	if err := s.backend.Set(ctx, Key(email), data); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to write rewrite", err).
			WithContext("key", Key(email))
	}

	s.logger.Debug("Stored rewrite", "key", Key(email), "bytes", len(data))
	return nil
}

// Ping checks the backend connection
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}
