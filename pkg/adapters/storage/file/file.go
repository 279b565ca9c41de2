package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/pkg/ports"
)

// DocumentStore implements ports.DocumentStore with one file per key in a
// directory. Documents are cached after the first read; with watching
// enabled, changed files are evicted from the cache.
type DocumentStore struct {
	basePath string
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
	// gen changes on every eviction so a read racing a change is not cached
	gen uint64

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewDocumentStore creates a file document store rooted at basePath
func NewDocumentStore(basePath string, watch bool, logger *zap.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}

	s := &DocumentStore{
		basePath: basePath,
		logger:   logger,
		cache:    make(map[string]string),
		done:     make(chan struct{}),
	}

	if !watch {
		close(s.done)
		return s, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(basePath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	s.watcher = watcher
	go s.watchLoop()

	logger.Info("file document store watching", zap.String("path", basePath))
	return s, nil
}

// Get returns the document stored under key
func (s *DocumentStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	doc, ok := s.cache[key]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ports.ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to read document %s: %w", key, err)
	}

	doc = string(data)
	if s.watcher != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.cache[key] = doc
		}
		s.mu.Unlock()
	}

	return doc, nil
}

// Put writes document under key. The file is replaced atomically.
func (s *DocumentStore) Put(ctx context.Context, key, document string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(document); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}

	s.evict(key)
	return nil
}

// Close stops watching the directory
func (s *DocumentStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	return err
}

// path maps key to a file directly inside the base directory
func (s *DocumentStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid document key: %q", key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *DocumentStore) evict(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.gen++
	s.mu.Unlock()
}

func (s *DocumentStore) watchLoop() {
	defer close(s.done)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			key := filepath.Base(event.Name)
			s.evict(key)
			s.logger.Debug("document changed",
				zap.String("key", key),
				zap.String("op", event.Op.String()))

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}
