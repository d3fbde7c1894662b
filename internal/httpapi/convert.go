package httpapi

import (
	"github.com/gridhall/tictac-arena/internal/match"
	"github.com/gridhall/tictac-arena/internal/room"
	"github.com/gridhall/tictac-arena/pkg/gamedto"
)

// RoomView converts a room snapshot to its wire form.
func RoomView(r *room.Room) *gamedto.RoomView {
	players := make([]gamedto.PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, gamedto.PlayerView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			IsReady:     p.IsReady,
			Symbol:      string(r.SymbolFor(p.UserID)),
		})
	}
	cells := make([]string, len(r.Board))
	for i, c := range r.Board {
		cells[i] = string(c)
	}
	return &gamedto.RoomView{
		Code:          r.Code,
		HostID:        r.HostID,
		Players:       players,
		Status:        string(r.Status),
		CurrentTurnID: r.CurrentTurnID,
		Board:         cells,
		WinnerID:      r.WinnerID,
		CreatedAt:     r.CreatedAt,
	}
}

func matchView(m *match.Match) *gamedto.MatchView {
	players := make([]gamedto.MatchPlayerView, 0, len(m.Players))
	for _, p := range m.Players {
		players = append(players, gamedto.MatchPlayerView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Symbol:      string(p.Symbol),
		})
	}
	history := make([]gamedto.MoveView, 0, len(m.MoveHistory))
	for _, mv := range m.MoveHistory {
		history = append(history, gamedto.MoveView{
			UserID:    mv.UserID,
			CellIndex: mv.CellIndex,
			Symbol:    string(mv.Symbol),
			Timestamp: mv.Timestamp,
		})
	}
	return &gamedto.MatchView{
		MatchID:     m.MatchID,
		RoomCode:    m.RoomCode,
		Players:     players,
		WinnerID:    m.WinnerID,
		MoveHistory: history,
		DurationMS:  m.DurationMS,
		CreatedAt:   m.CreatedAt,
	}
}

func statsView(s *match.UserStats) *gamedto.StatsView {
	return &gamedto.StatsView{
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Wins:        s.Wins,
		Losses:      s.Losses,
		Draws:       s.Draws,
		TotalGames:  s.TotalGames,
		WinRate:     s.WinRate,
	}
}
