package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tvoloshin/orderdesk/internal/config"
	"github.com/tvoloshin/orderdesk/internal/domain/model"
	"github.com/tvoloshin/orderdesk/internal/index"
	testhelpers "github.com/tvoloshin/orderdesk/internal/test"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestNewIndexRefresherUsesConfig(t *testing.T) {
	refresher := newIndexRefresher(refresherParams{
		Orders: testhelpers.NewOrderRepositoryStub(),
		Index:  index.New(index.NewStatsAggregator()),
		Config: &config.Config{IndexRefreshInterval: 15 * time.Second},
		Logger: testLogger(),
	})
	if refresher == nil {
		t.Fatal("expected refresher instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	repo := testhelpers.NewOrderRepositoryStub()
	repo.Seed(model.Order{ID: 7, State: model.OrderStateNew, DueDate: time.Now()})
	idx := index.New(index.NewStatsAggregator())
	cfg := &config.Config{IndexRefreshInterval: time.Minute, ShutdownTimeout: 100 * time.Millisecond}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     testLogger(),
		Server:     server,
		Orders:     repo,
		Index:      idx,
		Refresher:  newIndexRefresher(refresherParams{Orders: repo, Index: idx, Config: cfg, Logger: testLogger()}),
		Config:     cfg,
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	if idx.Snapshot().Len() != 1 {
		t.Fatalf("expected index bootstrapped from store, got %d orders", idx.Snapshot().Len())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleFailsWhenBootstrapFails(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	repo := testhelpers.NewOrderRepositoryStub()
	repo.FindErr = context.DeadlineExceeded
	idx := index.New(index.NewStatsAggregator())
	cfg := &config.Config{ShutdownTimeout: time.Second}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: &testhelpers.ShutdownerStub{},
		Logger:     testLogger(),
		Server:     &http.Server{Addr: "127.0.0.1:0"},
		Orders:     repo,
		Index:      idx,
		Refresher:  newIndexRefresher(refresherParams{Orders: repo, Index: idx, Config: cfg, Logger: testLogger()}),
		Config:     cfg,
	})

	if err := recorder.Hooks[0].OnStart(context.Background()); err == nil {
		t.Fatal("expected start to fail when the index cannot load")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	repo := testhelpers.NewOrderRepositoryStub()
	idx := index.New(index.NewStatsAggregator())
	cfg := &config.Config{IndexRefreshInterval: time.Minute, ShutdownTimeout: time.Second}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     testLogger(),
		Server:     &http.Server{Addr: "bad addr"},
		Orders:     repo,
		Index:      idx,
		Refresher:  newIndexRefresher(refresherParams{Orders: repo, Index: idx, Config: cfg, Logger: testLogger()}),
		Config:     cfg,
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}
