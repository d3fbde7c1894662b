package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// ErrDuplicateMatch means a match with this id was already recorded.
// Callers treat it as "another trigger finalized first" and skip the stats
// update.
var ErrDuplicateMatch = errors.New("match already recorded")

type Repository interface {
	// InsertMatch records an immutable match. Returns ErrDuplicateMatch when
	// the match id was already inserted.
	InsertMatch(ctx context.Context, m *Match) error
	// ApplyStatDelta increments one participant's aggregate and recomputes
	// win rate atomically.
	ApplyStatDelta(ctx context.Context, userID, displayName string, d StatDelta) error
	// GetStats returns the user's aggregate, or nil when they have none.
	GetStats(ctx context.Context, userID string) (*UserStats, error)
	// Leaderboard returns up to limit users with at least minGames played,
	// best win rate first.
	Leaderboard(ctx context.Context, minGames, limit int) ([]*UserStats, error)
	// RecentMatches returns the user's newest matches, newest first.
	RecentMatches(ctx context.Context, userID string, limit int) ([]*Match, error)
	Close() error
}

type repository struct {
	db *sql.DB
}

// NewRepository opens a Postgres-backed repository.
func NewRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	r := &repository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *repository) ensureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS matches (
			match_id      text PRIMARY KEY,
			room_code     text NOT NULL,
			player_x_id   text NOT NULL,
			player_x_name text NOT NULL DEFAULT '',
			player_o_id   text NOT NULL,
			player_o_name text NOT NULL DEFAULT '',
			winner_id     text NOT NULL,
			move_history  jsonb NOT NULL DEFAULT '[]',
			duration_ms   bigint NOT NULL DEFAULT 0,
			created_at    timestamptz NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS matches_player_x_idx ON matches (player_x_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS matches_player_o_idx ON matches (player_o_id, created_at DESC);
		CREATE TABLE IF NOT EXISTS user_stats (
			user_id      text PRIMARY KEY,
			display_name text NOT NULL DEFAULT '',
			wins         integer NOT NULL DEFAULT 0,
			losses       integer NOT NULL DEFAULT 0,
			draws        integer NOT NULL DEFAULT 0,
			total_games  integer NOT NULL DEFAULT 0,
			win_rate     double precision NOT NULL DEFAULT 0,
			updated_at   timestamptz NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS user_stats_win_rate_idx ON user_stats (win_rate DESC);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *repository) InsertMatch(ctx context.Context, m *Match) error {
	if m == nil {
		return fmt.Errorf("nil match payload")
	}
	if len(m.Players) != 2 {
		return fmt.Errorf("match %s has %d players, want 2", m.MatchID, len(m.Players))
	}
	history, err := json.Marshal(m.MoveHistory)
	if err != nil {
		return fmt.Errorf("marshal move_history: %w", err)
	}

	const query = `
		INSERT INTO matches (
			match_id, room_code,
			player_x_id, player_x_name,
			player_o_id, player_o_name,
			winner_id, move_history, duration_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)
		ON CONFLICT (match_id) DO NOTHING
		RETURNING match_id`

	var inserted sql.NullString
	err = r.db.QueryRowContext(
		ctx,
		query,
		m.MatchID,
		m.RoomCode,
		m.Players[0].UserID, m.Players[0].DisplayName,
		m.Players[1].UserID, m.Players[1].DisplayName,
		m.WinnerID,
		history,
		m.DurationMS,
		m.CreatedAt,
	).Scan(&inserted)
	if err == sql.ErrNoRows || (err == nil && !inserted.Valid) {
		return ErrDuplicateMatch
	}
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *repository) ApplyStatDelta(ctx context.Context, userID, displayName string, d StatDelta) error {
	// Single-statement upsert: two finalizations racing on the same user both
	// land, and win_rate is recomputed from the post-increment counters.
	const query = `
		INSERT INTO user_stats (user_id, display_name, wins, losses, draws, total_games, win_rate, updated_at)
		VALUES (
			$1, $2, $3, $4, $5, $3 + $4 + $5,
			CASE WHEN $3 + $4 + $5 > 0
				THEN CAST($3 AS double precision) / ($3 + $4 + $5)
				ELSE 0 END,
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			wins         = user_stats.wins + $3,
			losses       = user_stats.losses + $4,
			draws        = user_stats.draws + $5,
			total_games  = user_stats.total_games + $3 + $4 + $5,
			win_rate     = CAST(user_stats.wins + $3 AS double precision)
			               / (user_stats.total_games + $3 + $4 + $5),
			updated_at   = NOW()`
	_, err := r.db.ExecContext(ctx, query, userID, displayName, d.Wins, d.Losses, d.Draws)
	if err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}
	return nil
}

func (r *repository) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	const query = `
		SELECT user_id, display_name, wins, losses, draws, total_games, win_rate
		FROM user_stats
		WHERE user_id = $1`
	var s UserStats
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.DisplayName, &s.Wins, &s.Losses, &s.Draws, &s.TotalGames, &s.WinRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user stats: %w", err)
	}
	return &s, nil
}

func (r *repository) Leaderboard(ctx context.Context, minGames, limit int) ([]*UserStats, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT user_id, display_name, wins, losses, draws, total_games, win_rate
		FROM user_stats
		WHERE total_games >= $1
		ORDER BY win_rate DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, minGames, limit)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]*UserStats, 0, limit)
	for rows.Next() {
		var s UserStats
		if err := rows.Scan(&s.UserID, &s.DisplayName, &s.Wins, &s.Losses, &s.Draws, &s.TotalGames, &s.WinRate); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *repository) RecentMatches(ctx context.Context, userID string, limit int) ([]*Match, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT match_id, room_code,
			player_x_id, player_x_name,
			player_o_id, player_o_name,
			winner_id, move_history, duration_ms, created_at
		FROM matches
		WHERE player_x_id = $1 OR player_o_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	out := make([]*Match, 0, limit)
	for rows.Next() {
		var (
			m           Match
			px, po      PlayerRecord
			historyJSON []byte
		)
		if err := rows.Scan(
			&m.MatchID, &m.RoomCode,
			&px.UserID, &px.DisplayName,
			&po.UserID, &po.DisplayName,
			&m.WinnerID, &historyJSON, &m.DurationMS, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		px.Symbol, po.Symbol = "X", "O"
		m.Players = []PlayerRecord{px, po}
		if err := json.Unmarshal(historyJSON, &m.MoveHistory); err != nil {
			return nil, fmt.Errorf("unmarshal move_history: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
