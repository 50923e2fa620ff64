package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vk/mosaicflow/internal/ctxlog"
)

// newStatusServer builds the routes of the status server.
func (a *App) newStatusServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/health", a.healthHandler)
	e.GET("/status", a.statusHandler)
	return e
}

func (a *App) healthHandler(c echo.Context) error {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", c.RealIP(), "path", c.Path())
	return c.String(http.StatusOK, "OK\n")
}

func (a *App) statusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, a.tracker.Snapshot())
}

// startStatusServer runs the status server in the background when a port
// is configured.
func (a *App) startStatusServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.config.StatusPort <= 0 {
		logger.Debug("Status server not started: disabled")
		return
	}

	a.server = a.newStatusServer()
	addr := fmt.Sprintf(":%d", a.config.StatusPort)

	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/status", addr))
		// Start returns http.ErrServerClosed on graceful shutdown.
		if err := a.server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeStatusServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Debug("Shutting down status server...")
	if err := a.server.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	return nil
}
