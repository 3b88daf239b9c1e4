package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/engine"
)

const (
	streamInterval = 2 * time.Second
	writeWait      = 10 * time.Second
)

// StreamHandler pushes engine status and scan results over a websocket so
// a dashboard can follow the loop live without polling.
type StreamHandler struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

type streamFrame struct {
	Status        engine.Status `json:"status"`
	Opportunities interface{}   `json:"opportunities"`
	Timestamp     time.Time     `json:"timestamp"`
}

func NewStreamHandler(eng *engine.Engine) *StreamHandler {
	return &StreamHandler{
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logrus.New(),
	}
}

// Stream upgrades the connection and pushes a frame every streamInterval
// until the client disconnects.
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			h.logger.WithError(err).Debug("Websocket close failed")
		}
	}()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			frame := streamFrame{
				Status:        h.engine.GetStatus(),
				Opportunities: h.engine.Opportunities(),
				Timestamp:     time.Now(),
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}
