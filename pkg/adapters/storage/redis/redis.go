package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/pkg/ports"
)

// DocumentStore implements ports.DocumentStore on Redis string keys
type DocumentStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewDocumentStore creates a new Redis document store. A zero ttl stores
// documents without expiry.
func NewDocumentStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Get returns the document stored under key
func (s *DocumentStore) Get(ctx context.Context, key string) (string, error) {
	doc, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s", ports.ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to get document %s: %w", key, err)
	}

	s.logger.Debug("document loaded",
		zap.String("key", key),
		zap.Int("bytes", len(doc)))

	return doc, nil
}

// Put stores document under key
func (s *DocumentStore) Put(ctx context.Context, key, document string) error {
	if err := s.client.Set(ctx, key, document, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}

	s.logger.Debug("document saved",
		zap.String("key", key),
		zap.Int("bytes", len(document)))

	return nil
}
