package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/scheduler"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewOperatorFacade,
		newHTTPServer,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

// Loop is the background order loop driven by the lifecycle.
type Loop interface {
	Start(ctx context.Context)
	Shutdown(ctx context.Context) error
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Scheduler  *scheduler.Scheduler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	register(p.Lifecycle, p.Shutdowner, p.Logger, p.Server, p.Scheduler, p.Config)
}

func register(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *slog.Logger, server *http.Server, loop Loop, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting sixxer", slog.String("addr", server.Addr))
			loop.Start(ctx)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, cfg.ShutdownTimeout)
			}
			defer cancel()

			if err := loop.Shutdown(shutdownCtx); err != nil {
				logger.Warn("scheduler did not stop in time, in-flight work cancelled", slog.String("error", err.Error()))
				return server.Close()
			}

			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("sixxer stopped")
			return nil
		},
	})
}
