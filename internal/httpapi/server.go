package httpapi

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/gridhall/tictac-arena/internal/board"
	"github.com/gridhall/tictac-arena/internal/config"
	"github.com/gridhall/tictac-arena/internal/match"
	"github.com/gridhall/tictac-arena/internal/msgcat"
	"github.com/gridhall/tictac-arena/internal/obslog"
	"github.com/gridhall/tictac-arena/internal/room"
	"github.com/gridhall/tictac-arena/pkg/gamedto"
)

// Server exposes the room state machine and the match/stats projections over
// HTTP. Identity comes from the X-User-Id / X-User-Name headers supplied by
// the fronting identity layer; the server trusts them and performs no
// authentication of its own.
type Server struct {
	rooms *room.Manager
	repo  match.Repository
	cat   *msgcat.Catalog
	cfg   *config.AppConfig

	srv *fasthttp.Server
}

func NewServer(rooms *room.Manager, repo match.Repository, cat *msgcat.Catalog, cfg *config.AppConfig) *Server {
	s := &Server{rooms: rooms, repo: repo, cat: cat, cfg: cfg}
	s.srv = &fasthttp.Server{
		Handler:            s.route,
		Name:               "tictac-arena",
		MaxRequestBodySize: 64 * 1024,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case path == "/healthz" && method == fasthttp.MethodGet:
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})

	case path == "/rooms" && method == fasthttp.MethodPost:
		s.handleCreateRoom(ctx)
	case path == "/rooms" && method == fasthttp.MethodGet:
		s.handleListRooms(ctx)

	case len(parts) == 2 && parts[0] == "rooms" && method == fasthttp.MethodGet:
		s.handleGetRoom(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "rooms" && parts[2] == "board.png" && method == fasthttp.MethodGet:
		s.handleBoardImage(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "rooms" && method == fasthttp.MethodPost:
		s.handleRoomAction(ctx, parts[1], parts[2])

	case path == "/leaderboard" && method == fasthttp.MethodGet:
		s.handleLeaderboard(ctx)
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "stats" && method == fasthttp.MethodGet:
		s.handleUserStats(ctx, parts[1])
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "matches" && method == fasthttp.MethodGet:
		s.handleUserMatches(ctx, parts[1])

	default:
		s.writeJSON(ctx, fasthttp.StatusNotFound,
			gamedto.DomainError{Code: "NotFound", Message: "no such route"})
	}
}

// identity reads the acting principal from the trusted headers.
func (s *Server) identity(ctx *fasthttp.RequestCtx) (userID, displayName string, ok bool) {
	userID = strings.TrimSpace(string(ctx.Request.Header.Peek("X-User-Id")))
	displayName = strings.TrimSpace(string(ctx.Request.Header.Peek("X-User-Name")))
	if displayName == "" {
		displayName = "Anonymous"
	}
	if userID == "" {
		s.writeJSON(ctx, fasthttp.StatusUnauthorized,
			gamedto.DomainError{Code: "Unauthenticated", Message: "X-User-Id header is required"})
		return "", "", false
	}
	return userID, displayName, true
}

func (s *Server) handleCreateRoom(ctx *fasthttp.RequestCtx) {
	userID, name, ok := s.identity(ctx)
	if !ok {
		return
	}
	r, err := s.rooms.Create(ctx, userID, name)
	if err != nil {
		s.writeRoomError(ctx, "", err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, gamedto.CreateRoomResponse{
		Code: r.Code,
		Room: RoomView(r),
	})
}

func (s *Server) handleListRooms(ctx *fasthttp.RequestCtx) {
	list, err := s.rooms.ListOpen(ctx)
	if err != nil {
		s.writeInternalError(ctx, err)
		return
	}
	views := make([]*gamedto.RoomView, 0, len(list))
	for _, r := range list {
		views = append(views, RoomView(r))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, views)
}

func (s *Server) handleGetRoom(ctx *fasthttp.RequestCtx, code string) {
	r, err := s.rooms.Get(ctx, code)
	if err != nil {
		s.writeRoomError(ctx, code, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, RoomView(r))
}

func (s *Server) handleRoomAction(ctx *fasthttp.RequestCtx, code, action string) {
	userID, name, ok := s.identity(ctx)
	if !ok {
		return
	}

	var (
		r   *room.Room
		err error
	)
	switch action {
	case "join":
		r, err = s.rooms.Join(ctx, code, userID, name)
	case "ready":
		r, err = s.rooms.ToggleReady(ctx, code, userID)
	case "moves":
		var req gamedto.MoveRequest
		if jerr := json.Unmarshal(ctx.PostBody(), &req); jerr != nil {
			s.writeJSON(ctx, fasthttp.StatusBadRequest,
				gamedto.DomainError{Code: "BadRequest", Message: "body must be {\"cellIndex\": n}"})
			return
		}
		r, err = s.rooms.MakeMove(ctx, code, userID, req.CellIndex)
	case "leave":
		r, err = s.rooms.Leave(ctx, code, userID)
		if err == nil && r == nil {
			// room deleted (or already gone): nothing left to show
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}
	default:
		s.writeJSON(ctx, fasthttp.StatusNotFound,
			gamedto.DomainError{Code: "NotFound", Message: "no such room action"})
		return
	}
	if err != nil {
		s.writeRoomError(ctx, code, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, RoomView(r))
}

func (s *Server) handleBoardImage(ctx *fasthttp.RequestCtx, code string) {
	r, err := s.rooms.Get(ctx, code)
	if err != nil {
		s.writeRoomError(ctx, code, err)
		return
	}
	opts := board.RenderOptions{Caption: r.Code + "  " + string(r.Status)}
	if res := board.Evaluate(r.Board); res.Winner != board.Empty {
		line := res.Line
		opts.Highlight = &line
	}
	png, err := board.RenderPNG(r.Board, opts)
	if err != nil {
		s.writeInternalError(ctx, err)
		return
	}
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

func (s *Server) handleLeaderboard(ctx *fasthttp.RequestCtx) {
	list, err := s.repo.Leaderboard(ctx, s.cfg.LeaderboardMinGames, s.cfg.LeaderboardSize)
	if err != nil {
		s.writeInternalError(ctx, err)
		return
	}
	views := make([]*gamedto.StatsView, 0, len(list))
	for _, st := range list {
		views = append(views, statsView(st))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, views)
}

func (s *Server) handleUserStats(ctx *fasthttp.RequestCtx, userID string) {
	st, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		s.writeInternalError(ctx, err)
		return
	}
	if st == nil {
		// no games yet: an all-zero aggregate, not an error
		st = &match.UserStats{UserID: userID}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, statsView(st))
}

func (s *Server) handleUserMatches(ctx *fasthttp.RequestCtx, userID string) {
	list, err := s.repo.RecentMatches(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		s.writeInternalError(ctx, err)
		return
	}
	views := make([]*gamedto.MatchView, 0, len(list))
	for _, m := range list {
		views = append(views, matchView(m))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, views)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.writeInternalError(ctx, err)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(raw)
}

func (s *Server) writeInternalError(ctx *fasthttp.RequestCtx, err error) {
	obslog.L().Error("http_internal_error",
		zap.String("path", string(ctx.Path())),
		zap.Error(err),
	)
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBodyString(`{"code":"Internal","message":"internal server error"}`)
}
