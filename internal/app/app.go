package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/tvoloshin/orderdesk/internal/config"
	"github.com/tvoloshin/orderdesk/internal/domain/repository"
	"github.com/tvoloshin/orderdesk/internal/index"
	"github.com/tvoloshin/orderdesk/internal/worker"
)

// Module wires the runtime components and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newHTTPServer,
		newIndexRefresher,
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

type refresherParams struct {
	fx.In

	Orders repository.OrderRepository
	Index  *index.OrderIndex
	Config *config.Config
	Logger *slog.Logger
}

func newIndexRefresher(p refresherParams) *worker.IndexRefresher {
	return worker.NewIndexRefresher(p.Orders, p.Index, p.Config.IndexRefreshInterval, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Orders     repository.OrderRepository
	Index      *index.OrderIndex
	Refresher  *worker.IndexRefresher
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Index.Initialize(ctx, p.Orders); err != nil {
				return err
			}
			p.Logger.Info("index initialized", slog.Int("orders", p.Index.Snapshot().Len()))

			p.Refresher.Start(ctx)

			p.Logger.Info("starting orderdesk", slog.String("addr", p.Server.Addr))
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Refresher.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("orderdesk stopped")
			return nil
		},
	})
}
