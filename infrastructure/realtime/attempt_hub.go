package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ig-oauth-service/domain/model"
)

// AttemptEvent is the SSE payload for a recorded publish attempt.
type AttemptEvent struct {
	Type           string    `json:"type"`
	FacebookPageID string    `json:"facebook_page_id"`
	Status         string    `json:"status"`
	ErrorCode      *string   `json:"error_code,omitempty"`
	MediaID        *string   `json:"media_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Hub fans publish attempt events out to connected admin dashboards.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan AttemptEvent]struct{}
}

func NewAttemptHub() *Hub {
	return &Hub{subscribers: make(map[chan AttemptEvent]struct{})}
}

// PublishAttempt broadcasts the attempt to every subscriber. Slow consumers
// drop events rather than block the publish path.
func (h *Hub) PublishAttempt(_ context.Context, attempt *model.PostAttempt) {
	if attempt == nil {
		return
	}
	evt := AttemptEvent{
		Type:           "post_attempt",
		FacebookPageID: attempt.FacebookPageID,
		Status:         attempt.Status,
		ErrorCode:      attempt.ErrorCode,
		MediaID:        attempt.MediaID,
		OccurredAt:     attempt.CreatedAt,
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Serve streams attempt events to an authenticated admin over SSE.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := make(chan AttemptEvent, 8)
	h.addSubscriber(ch)
	defer h.removeSubscriber(ch)

	// Initial comment keeps the connection open through proxies.
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: post_attempt\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(ch chan AttemptEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan AttemptEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, ch)
}
