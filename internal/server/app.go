package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const shutdownTimeout = 10 * time.Second

// App runs the HTTP server for process lifetime and shuts it down gracefully
// when the context is cancelled.
type App struct {
	server *http.Server
	logger *log.Logger
}

// NewApp creates an App listening on addr and serving router.
func NewApp(addr string, router Router, logger *log.Logger) *App {
	return &App{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
