package match

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gridhall/tictac-arena/internal/board"
	"github.com/gridhall/tictac-arena/internal/obslog"
	"github.com/gridhall/tictac-arena/internal/room"
)

// Finalizer turns a just-finished room into an immutable match record and
// folds the result into both players' aggregates. It runs decoupled from the
// finishing request; failures are logged and swallowed, never surfaced to a
// player.
type Finalizer struct {
	store *room.Store
	repo  Repository
}

func NewFinalizer(store *room.Store, repo Repository) *Finalizer {
	return &Finalizer{store: store, repo: repo}
}

// Handler adapts the finalizer to the room manager's game-end hook.
func (f *Finalizer) Handler() room.GameEndHandler {
	return func(code string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f.Finalize(ctx, code)
	}
}

// Finalize re-fetches the room and, if it is still finished, records the
// match once and updates both players' stats. Stale or duplicate triggers
// are no-ops: a room that vanished or moved on is skipped, and a match id
// already recorded means another trigger got here first.
func (f *Finalizer) Finalize(ctx context.Context, code string) {
	if err := f.finalize(ctx, code); err != nil {
		obslog.L().Error("match_finalize_error", zap.String("code", code), zap.Error(err))
	}
}

func (f *Finalizer) finalize(ctx context.Context, code string) error {
	r, err := f.store.Load(ctx, code)
	if err != nil {
		return err
	}
	if r == nil || r.Status != room.StatusFinished {
		obslog.L().Debug("match_finalize_skip", zap.String("code", code))
		return nil
	}
	if r.MatchID == "" || len(r.Players) != 2 {
		obslog.L().Warn("match_finalize_malformed",
			zap.String("code", code),
			zap.String("match_id", r.MatchID),
			zap.Int("players", len(r.Players)),
		)
		return nil
	}

	m := buildMatch(r)
	if err := f.repo.InsertMatch(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateMatch) {
			obslog.L().Info("match_finalize_duplicate", zap.String("match_id", m.MatchID))
			return nil
		}
		return err
	}

	for _, p := range r.Players {
		var d StatDelta
		switch {
		case r.WinnerID == room.WinnerDraw:
			d.Draws = 1
		case r.WinnerID == p.UserID:
			d.Wins = 1
		default:
			d.Losses = 1
		}
		if err := f.repo.ApplyStatDelta(ctx, p.UserID, p.DisplayName, d); err != nil {
			obslog.L().Error("match_stats_error",
				zap.String("match_id", m.MatchID),
				zap.String("user_id", p.UserID),
				zap.Error(err),
			)
		}
	}

	obslog.L().Info("match_finalized",
		zap.String("match_id", m.MatchID),
		zap.String("code", r.Code),
		zap.String("winner_id", r.WinnerID),
		zap.Int64("duration_ms", m.DurationMS),
	)
	return nil
}

func buildMatch(r *room.Room) *Match {
	players := make([]PlayerRecord, 0, len(r.Players))
	for i, p := range r.Players {
		sym := board.X
		if i == 1 {
			sym = board.O
		}
		players = append(players, PlayerRecord{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Symbol:      sym,
		})
	}
	var durationMS int64
	if n := len(r.MoveHistory); n > 0 {
		durationMS = r.MoveHistory[n-1].Timestamp.Sub(r.MoveHistory[0].Timestamp).Milliseconds()
		if durationMS < 0 {
			durationMS = 0
		}
	}
	return &Match{
		MatchID:     r.MatchID,
		RoomCode:    r.Code,
		Players:     players,
		WinnerID:    r.WinnerID,
		MoveHistory: append([]room.Move(nil), r.MoveHistory...),
		DurationMS:  durationMS,
		CreatedAt:   time.Now(),
	}
}
