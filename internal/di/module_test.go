package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/tvoloshin/orderdesk/internal/config"
	"github.com/tvoloshin/orderdesk/internal/domain/repository"
	"github.com/tvoloshin/orderdesk/internal/index"
	"github.com/tvoloshin/orderdesk/internal/server/http/handlers"
	"github.com/tvoloshin/orderdesk/internal/storage/postgres"
	"github.com/tvoloshin/orderdesk/internal/test"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:           ":0",
		DatabaseURI:          "postgres://stub",
		IndexRefreshInterval: time.Millisecond,
		ShutdownTimeout:      time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orderRepo := test.NewOrderRepositoryStub()

	var (
		facade handlers.OrderFacade
		feed   handlers.OrderFeed
		engine *gin.Engine
		idx    *index.OrderIndex
	)
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.OrderRepository(orderRepo)),
		),
		fx.Populate(&facade, &feed, &engine, &idx),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })

	if facade == nil {
		t.Fatal("expected order facade instance")
	}
	if feed == nil {
		t.Fatal("expected order feed instance")
	}
	if engine == nil {
		t.Fatal("expected configured router")
	}
	if idx == nil {
		t.Fatal("expected order index instance")
	}
}
