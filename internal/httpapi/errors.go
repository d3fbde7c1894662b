package httpapi

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/gridhall/tictac-arena/internal/room"
	"github.com/gridhall/tictac-arena/pkg/gamedto"
)

type errorMapping struct {
	status int
	code   string
	msgKey string
}

// Every rejected precondition surfaces a distinct code and a distinct
// human-readable message, so clients can react specifically.
var roomErrors = map[error]errorMapping{
	room.ErrNotFound:      {fasthttp.StatusNotFound, "NotFound", "room.not_found"},
	room.ErrInvalidState:  {fasthttp.StatusConflict, "InvalidState", "room.invalid_state"},
	room.ErrRoomFull:      {fasthttp.StatusConflict, "RoomFull", "room.full"},
	room.ErrAlreadyJoined: {fasthttp.StatusConflict, "AlreadyJoined", "room.already_joined"},
	room.ErrNotAPlayer:    {fasthttp.StatusForbidden, "NotAPlayer", "room.not_a_player"},
	room.ErrNotYourTurn:   {fasthttp.StatusConflict, "NotYourTurn", "room.not_your_turn"},
	room.ErrCellOccupied:  {fasthttp.StatusConflict, "CellOccupied", "room.cell_occupied"},
	room.ErrInvalidIndex:  {fasthttp.StatusBadRequest, "InvalidIndex", "room.invalid_index"},
	room.ErrCodeExhausted: {fasthttp.StatusServiceUnavailable, "CodeExhausted", "room.code_exhausted"},
}

func (s *Server) writeRoomError(ctx *fasthttp.RequestCtx, code string, err error) {
	for sentinel, m := range roomErrors {
		if errors.Is(err, sentinel) {
			msg, rerr := s.cat.Render(m.msgKey, map[string]string{"Code": code})
			if rerr != nil {
				msg = sentinel.Error()
			}
			s.writeJSON(ctx, m.status, gamedto.DomainError{Code: m.code, Message: msg})
			return
		}
	}
	s.writeInternalError(ctx, err)
}
