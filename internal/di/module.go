package di

import (
	"go.uber.org/fx"

	"github.com/tvoloshin/orderdesk/internal/app"
	"github.com/tvoloshin/orderdesk/internal/config"
	"github.com/tvoloshin/orderdesk/internal/index"
	"github.com/tvoloshin/orderdesk/internal/logger"
	"github.com/tvoloshin/orderdesk/internal/server/http/handlers"
	"github.com/tvoloshin/orderdesk/internal/server/http/router"
	"github.com/tvoloshin/orderdesk/internal/storage/postgres"
	"github.com/tvoloshin/orderdesk/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		index.Module,
		usecase.Module,
		fx.Provide(func(u *usecase.OrderUseCase) handlers.OrderFacade { return u }),
		fx.Provide(func(idx *index.OrderIndex) handlers.OrderFeed { return idx }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
