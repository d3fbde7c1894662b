package room

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gridhall/tictac-arena/internal/board"
	"github.com/gridhall/tictac-arena/internal/obslog"
)

// GameEndHandler is invoked asynchronously after a room's finishing mutation
// has committed. Handlers receive the room code and re-fetch whatever state
// they need.
type GameEndHandler func(code string)

// Manager drives the room lifecycle. Every mutation is a single-document
// read-then-write against Redis under WATCH: the write only lands if the
// snapshot read at the start is still current, otherwise the operation
// re-reads and re-validates. No in-process locks guard room state, so any
// number of server instances can share one Redis.
type Manager struct {
	rdb   *redis.Client
	store *Store

	// registered during wiring, before the server accepts traffic
	onGameEnd []GameEndHandler
}

func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb, ttl)}
}

// Store exposes the underlying document store for read-side consumers
// (subscriptions, reaper).
func (m *Manager) Store() *Store { return m.store }

// OnGameEnd registers a handler fired once per finishing mutation.
func (m *Manager) OnGameEnd(h GameEndHandler) {
	if h != nil {
		m.onGameEnd = append(m.onGameEnd, h)
	}
}

// Create allocates a fresh room code and inserts the room with the creator
// seated as host. Codes are claimed with SetNX; a collision just burns one
// of the retry attempts.
func (m *Manager) Create(ctx context.Context, userID, displayName string) (*Room, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNotAPlayer
	}
	for i := 0; i < 5; i++ {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		ok, err := m.store.TryClaim(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		r := &Room{
			Code:   code,
			HostID: userID,
			Players: []Player{{
				UserID:      userID,
				DisplayName: displayName,
			}},
			Status:      StatusWaiting,
			MoveHistory: []Move{},
			CreatedAt:   time.Now(),
		}
		if err := m.store.Save(ctx, r); err != nil {
			return nil, err
		}
		if err := m.store.AddOpen(ctx, code); err != nil {
			return nil, err
		}
		_ = m.store.Publish(ctx, r)
		obslog.L().Info("room_create",
			zap.String("code", code),
			zap.String("host_id", userID),
		)
		return r, nil
	}
	return nil, ErrCodeExhausted
}

// Join seats userID in a waiting room.
func (m *Manager) Join(ctx context.Context, code, userID, displayName string) (*Room, error) {
	r, err := m.mutate(ctx, code, func(cur *Room) error {
		if cur.Status != StatusWaiting {
			return ErrInvalidState
		}
		if len(cur.Players) >= 2 {
			return ErrRoomFull
		}
		if cur.PlayerIndex(userID) >= 0 {
			return ErrAlreadyJoined
		}
		cur.Players = append(cur.Players, Player{UserID: userID, DisplayName: displayName})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(r.Players) >= 2 {
		_ = m.store.RemoveOpen(ctx, code)
	}
	_ = m.store.Publish(ctx, r)
	obslog.L().Info("room_join",
		zap.String("code", r.Code),
		zap.String("user_id", userID),
		zap.Int("players", len(r.Players)),
	)
	return r, nil
}

// ToggleReady flips the player's ready flag in a waiting room. When that
// leaves two seated and ready players the game starts, host to move. Rooms
// already playing or finished reject the toggle: the start transition must
// not re-fire once the game is underway.
func (m *Manager) ToggleReady(ctx context.Context, code, userID string) (*Room, error) {
	r, err := m.mutate(ctx, code, func(cur *Room) error {
		if cur.Status != StatusWaiting {
			return ErrInvalidState
		}
		idx := cur.PlayerIndex(userID)
		if idx < 0 {
			return ErrNotAPlayer
		}
		cur.Players[idx].IsReady = !cur.Players[idx].IsReady
		if len(cur.Players) == 2 && cur.Players[0].IsReady && cur.Players[1].IsReady {
			cur.Status = StatusPlaying
			cur.CurrentTurnID = cur.HostID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = m.store.Publish(ctx, r)
	obslog.L().Info("room_ready",
		zap.String("code", r.Code),
		zap.String("user_id", userID),
		zap.String("status", string(r.Status)),
	)
	return r, nil
}

// MakeMove applies one move for userID. A finishing move stamps the room
// with a match id and schedules the game-end handlers after commit.
func (m *Manager) MakeMove(ctx context.Context, code, userID string, cellIndex int) (*Room, error) {
	r, err := m.mutate(ctx, code, func(cur *Room) error {
		if cur.Status != StatusPlaying {
			return ErrInvalidState
		}
		if cur.CurrentTurnID != userID {
			return ErrNotYourTurn
		}
		if !board.Valid(cellIndex) {
			return ErrInvalidIndex
		}
		if cur.Board[cellIndex] != board.Empty {
			return ErrCellOccupied
		}

		sym := cur.SymbolFor(userID)
		cur.Board[cellIndex] = sym
		cur.MoveHistory = append(cur.MoveHistory, Move{
			UserID:    userID,
			CellIndex: cellIndex,
			Symbol:    sym,
			Timestamp: time.Now(),
		})

		res := board.Evaluate(cur.Board)
		switch {
		case res.Winner != board.Empty:
			cur.Status = StatusFinished
			cur.WinnerID = userID
			cur.CurrentTurnID = ""
			cur.MatchID = uuid.NewString()
		case res.Draw:
			cur.Status = StatusFinished
			cur.WinnerID = WinnerDraw
			cur.CurrentTurnID = ""
			cur.MatchID = uuid.NewString()
		default:
			if opp := cur.Opponent(userID); opp != nil {
				cur.CurrentTurnID = opp.UserID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = m.store.Publish(ctx, r)
	obslog.L().Info("room_move",
		zap.String("code", r.Code),
		zap.String("user_id", userID),
		zap.Int("cell", cellIndex),
		zap.String("status", string(r.Status)),
		zap.String("winner_id", r.WinnerID),
	)
	if r.Status == StatusFinished {
		for _, h := range m.onGameEnd {
			go h(r.Code)
		}
	}
	return r, nil
}

// Leave unseats userID. An emptied room is deleted; otherwise the room falls
// back to waiting with the game abandoned unscored. A missing room is a
// no-op, matching the original semantics of leaving twice.
func (m *Manager) Leave(ctx context.Context, code, userID string) (*Room, error) {
	key := m.store.KeyRoom(code)
	var out *Room
	var deleted bool
	for attempt := 0; attempt < 3; attempt++ {
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				out, deleted = nil, false
				return nil
			}
			if err != nil {
				return err
			}
			var cur Room
			if jerr := json.Unmarshal(raw, &cur); jerr != nil {
				return jerr
			}
			idx := cur.PlayerIndex(userID)
			if idx < 0 {
				out = &cur
				return nil
			}
			cur.Players = append(cur.Players[:idx], cur.Players[idx+1:]...)
			pipe := tx.TxPipeline()
			if len(cur.Players) == 0 {
				pipe.Del(ctx, key)
				deleted = true
				out = nil
			} else {
				// Abandoned game: back to a clean waiting room. The departed
				// host hands the room over to whoever stayed.
				cur.Status = StatusWaiting
				cur.CurrentTurnID = ""
				cur.WinnerID = ""
				cur.MatchID = ""
				cur.Board = board.Board{}
				cur.MoveHistory = []Move{}
				cur.HostID = cur.Players[0].UserID
				for i := range cur.Players {
					cur.Players[i].IsReady = false
				}
				newRaw, _ := json.Marshal(&cur)
				pipe.Set(ctx, key, newRaw, m.store.TTL())
				out = &cur
			}
			_, perr := pipe.Exec(ctx)
			return perr
		}, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		if deleted {
			_ = m.store.RemoveOpen(ctx, code)
			_ = m.store.PublishDeleted(ctx, code)
		} else if out != nil {
			// Only a room that actually fell back to waiting is joinable
			// again; a non-player leave touches nothing.
			if out.Status == StatusWaiting {
				_ = m.store.AddOpen(ctx, code)
			}
			_ = m.store.Publish(ctx, out)
		}
		obslog.L().Info("room_leave",
			zap.String("code", code),
			zap.String("user_id", userID),
			zap.Bool("deleted", deleted),
		)
		return out, nil
	}
	return nil, redis.TxFailedErr
}

// Get returns a read-only snapshot, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, code string) (*Room, error) {
	r, err := m.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// ListOpen returns joinable rooms.
func (m *Manager) ListOpen(ctx context.Context) ([]*Room, error) {
	return m.store.ListOpen(ctx)
}

// mutate runs fn against the freshest snapshot of the room document under
// WATCH. Losing the CAS race re-reads and re-validates, so a concurrent
// writer's update is observed before this one is judged.
func (m *Manager) mutate(ctx context.Context, code string, fn func(cur *Room) error) (*Room, error) {
	key := m.store.KeyRoom(strings.TrimSpace(code))
	var out *Room
	for attempt := 0; attempt < 3; attempt++ {
		err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var cur Room
			if jerr := json.Unmarshal(raw, &cur); jerr != nil {
				return jerr
			}
			if cur.Code == "" {
				// SetNX placeholder not yet replaced by Create's Save
				return ErrNotFound
			}
			if err := fn(&cur); err != nil {
				return err
			}
			pipe := tx.TxPipeline()
			newRaw, _ := json.Marshal(&cur)
			pipe.Set(ctx, key, newRaw, m.store.TTL())
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			out = &cur
			return nil
		}, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, redis.TxFailedErr
}
