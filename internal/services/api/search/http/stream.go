package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"sync"
	"time"

	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
	phttp "sibyl/internal/platform/net/http"
	"sibyl/internal/services/api/search/domain"
	dom "sibyl/internal/services/pipeline/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write to a slow client
	writeWait = 10 * time.Second
	// pongWait is how long the read side tolerates silence
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameBytes = 16 << 10
	busBuffer     = 256
	outBuffer     = 64
)

// origin policy matches the permissive CORS stack on the http routes
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*stdhttp.Request) bool { return true },
}

// clientFrame is one message from the streaming client
type clientFrame struct {
	Type    string                `json:"type"`
	Query   string                `json:"query"`
	Context map[string]any        `json:"context,omitempty"`
	Options *domain.SearchOptions `json:"options,omitempty"`
}

// greeting is the first frame sent after a successful upgrade
type greeting struct {
	Type      dom.EventType `json:"event_type"`
	ClientID  string        `json:"client_id"`
	Timestamp time.Time     `json:"timestamp"`
}

type pongFrame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamHandler upgrades /search/stream connections and dispatches
// pipeline events to the client. One connection may carry any number of
// sequential or concurrent search requests; events across requests are
// unordered, events within a request keep emit order via seq
func StreamHandler(search dom.SearchPort, def dom.Strategy) phttp.Handler {
	log := logger.Named("search-stream")
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
		if clientID == "" {
			clientID = uuid.NewString()
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an http error
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		s := newSession(r.Context(), conn, search, def, clientID, log.With().Str("client_id", clientID).Logger())
		go s.writePump()

		s.send(greeting{
			Type:      dom.EventConnectionEstablished,
			ClientID:  clientID,
			Timestamp: time.Now().UTC(),
		})
		s.readPump()
	}
}

// session owns one websocket connection. writePump is the only goroutine
// writing to conn; everything else goes through out
type session struct {
	conn     *websocket.Conn
	search   dom.SearchPort
	def      dom.Strategy
	clientID string
	log      logger.Logger

	out    chan any
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

func newSession(ctx context.Context, conn *websocket.Conn, search dom.SearchPort, def dom.Strategy, clientID string, log logger.Logger) *session {
	s := &session{
		conn:      conn,
		search:    search,
		def:       def,
		clientID:  clientID,
		log:       log,
		out:       make(chan any, outBuffer),
		closeCode: websocket.CloseNormalClosure,
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s
}

// fail records the close frame to send and ends the session. The stores
// precede cancel, so writePump sees them after ctx.Done fires
func (s *session) fail(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closeCode = code
		s.closeReason = reason
		s.cancel()
	})
}

// send queues v for the writer. Returns false once the session is ending
func (s *session) send(v any) bool {
	select {
	case s.out <- v:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *session) readPump() {
	defer func() {
		s.fail(websocket.CloseNormalClosure, "")
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
		s.handleFrame(raw)
	}
}

func (s *session) handleFrame(raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.sendError("", perr.JSONErrf("malformed frame: %v", err))
		return
	}
	switch frame.Type {
	case "ping":
		s.send(pongFrame{Type: "pong", Timestamp: time.Now().UTC()})
	case "search_request":
		s.startSearch(frame)
	default:
		s.sendError("", perr.Validationf("unsupported frame type %q", frame.Type))
	}
}

// startSearch runs one search request on its own bus and context. Client
// disconnect cancels the session context and unwinds every in-flight
// request, which keeps the cache from being written on abandoned work
func (s *session) startSearch(frame clientFrame) {
	reqID := uuid.NewString()

	in := domain.SearchInput{Query: frame.Query, Context: frame.Context, Options: frame.Options}
	req, err := in.ToDomain(s.def)
	if err != nil {
		s.sendError(reqID, err)
		return
	}
	req.RequestID = reqID

	bus := dom.NewBus(busBuffer)
	ctx, cancel := context.WithCancel(logger.WithRequest(s.ctx, reqID, s.clientID))

	go func() {
		defer cancel()
		// failures surface as error events through the bus
		_, _ = s.search.Search(ctx, req, bus)
	}()
	go s.dispatch(ctx, cancel, reqID, bus)
}

// dispatch forwards one request's events until its terminal event. On bus
// overflow the request is canceled and the whole stream is cut with a
// backpressure error, matching the bounded-queue policy
func (s *session) dispatch(ctx context.Context, cancel context.CancelFunc, reqID string, bus *dom.Bus) {
	defer cancel()
	for {
		select {
		case ev := <-bus.Events():
			if !s.send(ev) {
				return
			}
			if ev.Terminal() {
				return
			}
		case <-bus.Overflowed():
			cancel()
			s.send(dom.Event{
				Type:      dom.EventError,
				RequestID: reqID,
				Seq:       bus.Next(),
				ErrorKind: "backpressure",
				Message:   "client cannot keep up with the event stream",
				Timestamp: time.Now().UTC(),
			})
			s.fail(websocket.CloseTryAgainLater, "backpressure")
			return
		case <-ctx.Done():
			// the pipeline emits before it returns, so whatever remains is
			// already buffered; flush it before exiting
			for {
				select {
				case ev := <-bus.Events():
					if !s.send(ev) || ev.Terminal() {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// sendError emits a request-less or pre-pipeline error event. Seq restarts
// at 1 because no bus exists for the request yet
func (s *session) sendError(reqID string, err error) {
	s.send(dom.Event{
		Type:      dom.EventError,
		RequestID: reqID,
		Seq:       1,
		ErrorKind: perr.Kind(err),
		Message:   perr.WireFrom(err).Message,
		Timestamp: time.Now().UTC(),
	})
}

// writePump is the single connection writer. It drains queued frames on
// shutdown so terminal events reach the client before the close frame
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case v := <-s.out:
			if !s.writeJSON(v) {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.fail(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-s.ctx.Done():
			for {
				select {
				case v := <-s.out:
					if !s.writeJSON(v) {
						return
					}
				default:
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(s.closeCode, s.closeReason))
					return
				}
			}
		}
	}
}

func (s *session) writeJSON(v any) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		s.fail(websocket.CloseAbnormalClosure, "write failed")
		return false
	}
	return true
}
