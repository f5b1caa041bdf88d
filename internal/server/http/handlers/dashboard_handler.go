package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tvoloshin/orderdesk/internal/index"
	"github.com/tvoloshin/orderdesk/internal/server/http/dto"
)

// DashboardHandler serves derived order statistics: a one-shot endpoint for
// polling and an SSE stream that makes each connected session a subscriber
// of the reactive index.
type DashboardHandler struct {
	feed OrderFeed
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(feed OrderFeed) *DashboardHandler {
	return &DashboardHandler{feed: feed}
}

// Stats handles GET /api/dashboard.
func (h *DashboardHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, toDashboard(h.feed.Snapshot(), h.feed.Stats()))
}

// Stream handles GET /api/dashboard/stream. Events arrive in mutation
// order; a slow consumer skips intermediate states but each delivered event
// is a complete, self-consistent figure set, so the session converges.
func (h *DashboardHandler) Stream(c *gin.Context) {
	events := make(chan dto.DashboardResponse, 16)
	events <- toDashboard(h.feed.Snapshot(), h.feed.Stats())

	sub := h.feed.Subscribe(func(snap index.Snapshot, stats index.Stats) {
		select {
		case events <- toDashboard(snap, stats):
		default:
		}
	})
	defer h.feed.Unsubscribe(sub)

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event := <-events:
			c.SSEvent("stats", event)
			return true
		}
	})
}

func toDashboard(snap index.Snapshot, stats index.Stats) dto.DashboardResponse {
	return dto.DashboardResponse{
		TotalOrders: snap.Len(),
		DueToday:    stats.DueToday,
		New:         stats.New,
		Ready:       stats.Ready,
		Delivered:   stats.Delivered,
		Cancelled:   stats.Cancelled,
	}
}
