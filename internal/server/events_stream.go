package server

import (
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleProgress streams run progress events over a websocket. The client
// receives every bus event published while connected; history is not
// replayed (use /api/runs for that).
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Same-origin dashboards only; the API carries no credentials but
		// there is no reason to allow arbitrary origins either.
		InsecureSkipVerify: false,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ch, cancel := s.bus.Subscribe()
	defer cancel()

	// The stream is write-only. CloseRead keeps answering control frames
	// (pings, the client's close) and cancels the context when the peer
	// goes away; r.Context() alone no longer does after the hijack.
	ctx := conn.CloseRead(r.Context())
	s.log.Debug().Msg("Progress stream connected")

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				s.log.Debug().Err(err).Msg("Progress stream write failed, closing")
				return
			}
		}
	}
}
