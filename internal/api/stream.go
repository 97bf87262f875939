package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/safetywatch/internal/models"
)

const wsWriteTimeout = 10 * time.Second

// stream pushes snapshots as server-sent events, or as newline delimited
// JSON with ?format=ndjson.
func (h *Handler) stream(c *gin.Context) {
	ndjson := c.Query("format") == "ndjson"
	channel := "sse"

	w := c.Writer
	if ndjson {
		channel = "ndjson"
		w.Header().Set("Content-Type", "application/x-ndjson")
	} else {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Connection", "keep-alive")
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	done := h.metrics.FeedClientConnected(channel)
	defer done()
	slog.Debug("feed client connected", "channel", channel, "remote", c.ClientIP())

	err := h.feed.Run(c.Request.Context(), func(snap *models.Snapshot) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if ndjson {
			_, err = w.Write(append(data, '\n'))
		} else {
			_, err = fmt.Fprintf(w, "data: %s\n\n", data)
		}
		if err != nil {
			return err
		}
		w.Flush()
		return nil
	})
	if err != nil {
		slog.Debug("feed client write failed", "channel", channel, "error", err)
	}
	slog.Debug("feed client disconnected", "channel", channel)
}

func (h *Handler) serveWebsocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	done := h.metrics.FeedClientConnected("ws")
	defer done()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only detect the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.feed.Run(ctx, func(snap *models.Snapshot) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(snap)
	})
	if err != nil {
		slog.Debug("websocket write failed", "error", err)
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}
