package httpapi

import (
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/gridhall/tictac-arena/internal/config"
	"github.com/gridhall/tictac-arena/internal/match"
	"github.com/gridhall/tictac-arena/internal/msgcat"
	"github.com/gridhall/tictac-arena/internal/room"
	"github.com/gridhall/tictac-arena/pkg/gamedto"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	cfg := &config.AppConfig{LeaderboardSize: 10, LeaderboardMinGames: 3, HistoryLimit: 20}
	return NewServer(room.NewManager(rdb, time.Hour), match.NewMemoryRepository(), cat, cfg)
}

func doRequest(t *testing.T, s *Server, method, uri, userID string, body []byte) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Name", "Player "+userID)
	}
	if body != nil {
		req.SetBody(body)
	}
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.route(&ctx)
	return &ctx
}

func decodeRoom(t *testing.T, ctx *fasthttp.RequestCtx) *gamedto.RoomView {
	t.Helper()
	var v gamedto.RoomView
	if err := json.Unmarshal(ctx.Response.Body(), &v); err != nil {
		t.Fatalf("decode room: %v (%s)", err, ctx.Response.Body())
	}
	return &v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodGet, "/healthz", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("healthz status %d", ctx.Response.StatusCode())
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/rooms", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", ctx.Response.StatusCode())
	}
}

func TestRoomFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, fasthttp.MethodPost, "/rooms", "u1", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("create status %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	var created gamedto.CreateRoomResponse
	if err := json.Unmarshal(ctx.Response.Body(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	code := created.Code
	if len(code) != 6 {
		t.Fatalf("bad room code %q", code)
	}

	ctx = doRequest(t, s, fasthttp.MethodPost, "/rooms/"+code+"/join", "u2", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("join status %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	doRequest(t, s, fasthttp.MethodPost, "/rooms/"+code+"/ready", "u1", nil)
	ctx = doRequest(t, s, fasthttp.MethodPost, "/rooms/"+code+"/ready", "u2", nil)
	view := decodeRoom(t, ctx)
	if view.Status != "playing" || view.CurrentTurnID != "u1" {
		t.Fatalf("game not started correctly: %+v", view)
	}

	ctx = doRequest(t, s, fasthttp.MethodPost, "/rooms/"+code+"/moves", "u1",
		[]byte(`{"cellIndex":4}`))
	view = decodeRoom(t, ctx)
	if view.Board[4] != "X" || view.CurrentTurnID != "u2" {
		t.Fatalf("move not applied: %+v", view)
	}

	// Out-of-turn move maps to a conflict with a typed code.
	ctx = doRequest(t, s, fasthttp.MethodPost, "/rooms/"+code+"/moves", "u1",
		[]byte(`{"cellIndex":0}`))
	if ctx.Response.StatusCode() != fasthttp.StatusConflict {
		t.Fatalf("expected 409, got %d", ctx.Response.StatusCode())
	}
	var derr gamedto.DomainError
	if err := json.Unmarshal(ctx.Response.Body(), &derr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if derr.Code != "NotYourTurn" || derr.Message == "" {
		t.Fatalf("unexpected error payload: %+v", derr)
	}

	ctx = doRequest(t, s, fasthttp.MethodGet, "/rooms/"+code+"/board.png", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK ||
		string(ctx.Response.Header.ContentType()) != "image/png" {
		t.Fatalf("board image: status %d type %s",
			ctx.Response.StatusCode(), ctx.Response.Header.ContentType())
	}
}

func TestUnknownRoomIs404(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodGet, "/rooms/ZZZZZZ", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", ctx.Response.StatusCode())
	}
	var derr gamedto.DomainError
	if err := json.Unmarshal(ctx.Response.Body(), &derr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if derr.Code != "NotFound" {
		t.Fatalf("unexpected code %q", derr.Code)
	}
}

func TestStatsForFreshUserIsZero(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodGet, "/users/nobody/stats", "", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("stats status %d", ctx.Response.StatusCode())
	}
	var stats gamedto.StatsView
	if err := json.Unmarshal(ctx.Response.Body(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.UserID != "nobody" || stats.TotalGames != 0 {
		t.Fatalf("expected zero aggregate, got %+v", stats)
	}
}
