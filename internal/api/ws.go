package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"investment-monitor/observability"
	"investment-monitor/portfolio"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 10 * time.Second

// StreamMessage is one frame of the snapshot stream.
type StreamMessage struct {
	Type      string            `json:"type"`
	Version   uint64            `json:"version"`
	Reason    string            `json:"reason"`
	Portfolio PortfolioResponse `json:"portfolio"`
}

func newStreamMessage(snap portfolio.Snapshot) StreamMessage {
	return StreamMessage{
		Type:      "snapshot",
		Version:   snap.Version,
		Reason:    snap.Reason,
		Portfolio: newPortfolioResponse(snap.Portfolio),
	}
}

// HandleStream upgrades to a websocket and pushes every committed snapshot,
// starting with the current one. Slow clients skip intermediate versions.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		observability.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	metrics := observability.GetMetrics()
	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	snaps, unsubscribe := h.app.Subscribe()
	defer unsubscribe()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	if h.streamSubscribed != nil {
		h.streamSubscribed()
	}

	current := h.app.Current()
	if err := writeSnapshot(ctx, conn, current); err != nil {
		logStreamError(err)
		return
	}
	sent := current.Version

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if snap.Version <= sent {
				continue
			}
			if err := writeSnapshot(ctx, conn, snap); err != nil {
				logStreamError(err)
				return
			}
			sent = snap.Version
		}
	}
}

// acceptOptions mirrors the CORS origins. Websocket origin patterns match
// hosts, so any scheme is dropped.
func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	origins := parseOrigins(h.cfg.HTTP.CORSAllowedOrigins)
	if origins == nil {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	patterns := make([]string, len(origins))
	for i, o := range origins {
		patterns[i] = originHost(o)
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, snap portfolio.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, newStreamMessage(snap))
}

func logStreamError(err error) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		return
	}
	observability.Debug("snapshot stream closed", "error", err)
}
