package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Listener is a network listener joined by the manager
type Listener interface {
	Name() string
	Addr() string
	Bind() error
	Serve() error
	Shutdown(ctx context.Context) error
	Close() error
}

// Refresher is the background loop started alongside the listeners
type Refresher interface {
	Run(ctx context.Context)
	Wait(ctx context.Context) error
}

// Manager coordinates the listeners and the refresher
type Manager struct {
	listeners       []Listener
	refresher       Refresher
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// NewManager creates a new manager
func NewManager(
	listeners []Listener,
	refresher Refresher,
	logger *zap.Logger,
	shutdownTimeout time.Duration,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		listeners:       listeners,
		refresher:       refresher,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run binds all listeners, starts the refresher and serves until ctx is
// cancelled or a listener fails. A bind failure returns before anything is
// served. Run returns nil after a graceful shutdown and the first listener
// error otherwise.
func (m *Manager) Run(ctx context.Context) error {
	if len(m.listeners) == 0 {
		return errors.New("no listeners configured")
	}

	if err := m.bindAll(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if m.refresher != nil {
		go m.refresher.Run(gctx)
	}

	for _, l := range m.listeners {
		l := l
		g.Go(func() error {
			return l.Serve()
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		m.shutdown()
		return nil
	})

	err := g.Wait()

	if m.refresher != nil {
		waitCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
		if werr := m.refresher.Wait(waitCtx); werr != nil {
			m.logger.Error("refresher shutdown error", zap.Error(werr))
		}
		cancel()
	}

	if err != nil {
		m.logger.Error("serving tier failed", zap.Error(err))
		return err
	}

	m.logger.Info("serving tier shut down complete")
	return nil
}

// bindAll binds every listener. On failure the listeners bound so far are
// released.
func (m *Manager) bindAll() error {
	for i, l := range m.listeners {
		if err := l.Bind(); err != nil {
			for _, bound := range m.listeners[:i] {
				if cerr := bound.Close(); cerr != nil {
					m.logger.Warn("failed to release listener",
						zap.String("listener", bound.Name()),
						zap.Error(cerr))
				}
			}
			return err
		}

		m.logger.Info("listener bound",
			zap.String("listener", l.Name()),
			zap.String("addr", l.Addr()))
	}
	return nil
}

// shutdown gracefully stops every listener
func (m *Manager) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	for _, l := range m.listeners {
		if err := l.Shutdown(ctx); err != nil {
			m.logger.Error("listener shutdown error",
				zap.String("listener", l.Name()),
				zap.Error(err))
		}
	}
}

