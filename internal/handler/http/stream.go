package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/sse"
)

const streamKeepalive = 30 * time.Second

// SSETokenResponse is returned by GetSSEToken.
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// StreamHandler serves the live clock event feed to managers.
type StreamHandler interface {
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type streamHandlerImpl struct {
	hub        *sse.Hub
	jwtService jwt.Service
	metrics    *metrics.Metrics
	keepalive  time.Duration
}

func NewStreamHandler(hub *sse.Hub, jwtService jwt.Service, m *metrics.Metrics) StreamHandler {
	return &streamHandlerImpl{
		hub:        hub,
		jwtService: jwtService,
		metrics:    m,
		keepalive:  streamKeepalive,
	}
}

// GetSSEToken issues a short-lived token for the stream endpoint, since
// EventSource cannot send an Authorization header.
func (h *streamHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(actor)
	if err != nil {
		slog.Error("Failed to generate SSE token", "error", err, "user_id", actor.UserID)
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, SSETokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream handles the SSE connection for the caller's business.
func (h *streamHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	actor, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}
	if !actor.Can(user.PermissionClockViewAll) {
		response.HandleError(w, user.ErrManagerAccessRequired)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(actor.BusinessID)
	h.metrics.SetFeedSubscribers(h.hub.TotalSubscribers())
	defer func() {
		cleanup()
		h.metrics.SetFeedSubscribers(h.hub.TotalSubscribers())
	}()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"business_id\":%q}\n\n", actor.BusinessID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Error("Failed to encode feed event", "error", err, "event", event.Event)
				continue
			}
			if event.ID != "" {
				fmt.Fprintf(w, "id: %s\n", event.ID)
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
