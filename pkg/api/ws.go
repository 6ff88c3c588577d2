package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/metrics"
	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/search"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxMessage   = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HandleSearchWS runs queries sent as WSRequest messages. Every query is
// answered with one "kind" message per requested kind, as each completes,
// followed by a "results" message with the merged hits. Rejected queries
// get a single "error" message. The caller is resolved once, at upgrade.
func (s *Server) HandleSearchWS(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		logger.Errorf("resolving caller: %v", err)
		s.writeError(w, http.StatusServiceUnavailable, "Caller lookup failed", err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(wsMaxMessage)

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	for {
		var msg WSRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket read: %v", err)
			}
			return
		}

		req := search.Request{Query: msg.Query, Kinds: msg.Kinds, Limit: msg.Limit, Caller: caller}
		var writeErr error
		results, err := s.search.SearchStream(r.Context(), req, func(kr search.KindResult) {
			if writeErr != nil {
				return
			}
			out := WSKindMessage{Type: "kind", Kind: kr.Kind, Hits: kr.Hits}
			if out.Hits == nil {
				out.Hits = []search.Hit{}
			}
			if kr.Err != nil {
				out.Error = kr.Err.Error()
			}
			writeErr = write(out)
		})
		if err != nil {
			metrics.SearchesTotal.WithLabelValues("ws", "rejected").Inc()
			_, title := requestErrorStatus(err)
			writeErr = write(WSErrorMessage{Type: "error", ErrorResponse: ErrorResponse{Error: title, Message: err.Error()}})
		} else if writeErr == nil {
			metrics.SearchesTotal.WithLabelValues("ws", wsOutcome(results)).Inc()
			writeErr = write(WSResultsMessage{Type: "results", SearchResponse: NewSearchResponse(results)})
		}
		if writeErr != nil {
			if !errors.Is(writeErr, websocket.ErrCloseSent) {
				logger.Debugf("websocket write: %v", writeErr)
			}
			return
		}
	}
}

func wsOutcome(res *search.Results) string {
	switch {
	case res.Failed():
		return "failed"
	case len(res.Errors) > 0:
		return "partial"
	}
	return "ok"
}
