package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsEvent struct {
	ID string `json:"id"`
	models.Event
}

type wsMessage struct {
	Type   string    `json:"type"`
	Events []wsEvent `json:"events,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// watchEvents streams the caller's events as JSON snapshots until either
// side goes away.
func (s *HTTPServer) watchEvents(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream, err := s.calendar.WatchEvents(ctx, caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer stream.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(ctx, "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	s.metrics.WSConnected()
	defer s.metrics.WSDisconnected()

	go s.readLoop(conn, cancel)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case u, ok := <-stream.Updates():
			if !ok {
				return
			}
			msg := wsMessage{Type: "snapshot"}
			if u.Err != nil {
				s.logger.Warn(ctx, "events snapshot failed", logging.Err(u.Err))
				msg = wsMessage{Type: "error", Error: "Error watching events"}
			} else {
				msg.Events = make([]wsEvent, 0, len(u.Items))
				for _, e := range u.Items {
					msg.Events = append(msg.Events, wsEvent{ID: e.ID, Event: e})
				}
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so control messages are handled; it
// cancels the feed when the client disconnects.
func (s *HTTPServer) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
