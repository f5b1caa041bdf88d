package router

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tvoloshin/orderdesk/internal/index"
	"github.com/tvoloshin/orderdesk/internal/server/http/dto"
	"github.com/tvoloshin/orderdesk/internal/server/http/handlers"
	"github.com/tvoloshin/orderdesk/internal/usecase"

	testhelpers "github.com/tvoloshin/orderdesk/internal/test"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := testhelpers.NewOrderRepositoryStub()
	idx := index.New(index.NewStatsAggregator())
	uc := usecase.NewOrderUseCase(repo, idx)
	return Setup(uc, idx, logger)
}

func orderBody() []byte {
	body, _ := json.Marshal(dto.OrderRequest{
		DueDate:        time.Now().Format("2006-01-02"),
		CustomerID:     1,
		PickupLocation: "STOREFRONT",
		Items: []dto.OrderItemPayload{
			{ProductID: 1, Quantity: 1, PricePerUnit: "5.00"},
		},
	})
	return body
}

func TestSetupRoutes(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(orderBody()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for create, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for list, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for dashboard, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown route, got %d", resp.Code)
	}
}

func TestSetupAcceptsGzippedRequests(t *testing.T) {
	engine := newTestEngine()

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(orderBody()); err != nil {
		t.Fatalf("compress body: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/orders", &compressed)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for gzipped create, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSetupCompressesResponses(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if resp.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("expected gzip encoded response")
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("open gzip reader: %v", err)
	}
	defer zr.Close()
	var orders []dto.OrderResponse
	if err := json.NewDecoder(zr).Decode(&orders); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected empty list, got %d", len(orders))
	}
}

var _ handlers.OrderFacade = (*usecase.OrderUseCase)(nil)
var _ handlers.OrderFeed = (*index.OrderIndex)(nil)
