package livegate

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/gridhall/tictac-arena/internal/httpapi"
	"github.com/gridhall/tictac-arena/internal/obslog"
	"github.com/gridhall/tictac-arena/internal/room"
	"github.com/gridhall/tictac-arena/pkg/gamedto"
)

// Gateway streams live room snapshots to websocket subscribers. Each
// mutation publishes the fresh document on the room's Redis channel; the
// gateway fans those out as RoomEvent frames. It runs on its own listener
// because the websocket handshake needs net/http.
type Gateway struct {
	store *room.Store
	srv   *http.Server
}

func New(store *room.Store) *Gateway {
	g := &Gateway{store: store}
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/", g.handleSubscribe)
	g.srv = &http.Server{Handler: mux}
	return g
}

func (g *Gateway) ListenAndServe(addr string) error {
	g.srv.Addr = addr
	return g.srv.ListenAndServe()
}

func (g *Gateway) Shutdown(ctx context.Context) error { return g.srv.Shutdown(ctx) }

// handleSubscribe serves GET /rooms/{code}/ws.
func (g *Gateway) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "rooms" || parts[2] != "ws" {
		http.NotFound(w, r)
		return
	}
	code := parts[1]

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		// Browsers on other origins are allowed; identity is header-based
		// and the stream is read-only.
		InsecureSkipVerify: true,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("code", code), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	// The client never sends; CloseRead gives us a context that cancels
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	snapshot, err := g.store.Load(ctx, code)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "store unavailable")
		return
	}
	if snapshot == nil {
		conn.Close(websocket.StatusPolicyViolation, "room not found")
		return
	}
	if err := wsjson.Write(ctx, conn, gamedto.RoomEvent{Room: httpapi.RoomView(snapshot)}); err != nil {
		return
	}

	sub := g.store.Subscribe(ctx, code)
	defer sub.Close()

	obslog.L().Info("ws_subscribe", zap.String("code", code))
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			ev, perr := parseEvent([]byte(msg.Payload))
			if perr != nil {
				obslog.L().Warn("ws_event_parse_error", zap.String("code", code), zap.Error(perr))
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return
			}
			if ev.Deleted {
				conn.Close(websocket.StatusNormalClosure, "room closed")
				return
			}
		}
	}
}

func parseEvent(payload []byte) (gamedto.RoomEvent, error) {
	var probe struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return gamedto.RoomEvent{}, err
	}
	if probe.Deleted {
		return gamedto.RoomEvent{Deleted: true}, nil
	}
	var r room.Room
	if err := json.Unmarshal(payload, &r); err != nil {
		return gamedto.RoomEvent{}, err
	}
	return gamedto.RoomEvent{Room: httpapi.RoomView(&r)}, nil
}
