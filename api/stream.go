package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/rustyeddy/feedrouter/feed"
)

const streamWriteTimeout = 5 * time.Second

// handleStream upgrades to a websocket and forwards routed samples until the
// client goes away or the hub shuts down. A client that stops reading first
// loses samples to the hub buffer, then hits the write timeout.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "stream aborted")

	id, sub := s.hub.Subscribe(0)
	defer s.hub.Unsubscribe(id)

	s.log.Info("stream client connected", "subscriber", id, "remote_addr", r.RemoteAddr)
	defer s.log.Info("stream client disconnected", "subscriber", id)

	// The client never sends data frames. CloseRead keeps control frames
	// flowing and cancels the context when the peer disconnects.
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case sample, ok := <-sub:
			if !ok {
				c.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := writeSample(ctx, c, sample); err != nil {
				s.log.Debug("stream write failed", "subscriber", id, "error", err)
				return
			}
		}
	}
}

func writeSample(ctx context.Context, c *websocket.Conn, s feed.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, payload)
}
