package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists room documents as JSON values in Redis. One key per room;
// mutations elsewhere rely on per-key WATCH semantics, so the store itself
// never does read-modify-write.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) keyRoom(code string) string { return "room:" + strings.TrimSpace(code) }
func (s *Store) keyOpen() string            { return "room:open" }
func (s *Store) keyEvents(code string) string {
	return "room:events:" + strings.TrimSpace(code)
}

// KeyRoom exposes the document key for WATCH-based mutations.
func (s *Store) KeyRoom(code string) string { return s.keyRoom(code) }

// TTL returns the room document lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// TryClaim reserves a freshly generated code with SetNX. Returns false when
// the code is already taken.
func (s *Store) TryClaim(ctx context.Context, code string) (bool, error) {
	return s.rdb.SetNX(ctx, s.keyRoom(code), []byte("{}"), s.ttl).Result()
}

func (s *Store) Save(ctx context.Context, r *Room) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keyRoom(r.Code), raw, s.ttl).Err()
}

// Load returns the room document, or nil when absent.
func (s *Store) Load(ctx context.Context, code string) (*Room, error) {
	raw, err := s.rdb.Get(ctx, s.keyRoom(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if r.Code == "" {
		// SetNX placeholder not yet replaced by the creator's Save
		return nil, nil
	}
	return &r, nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, s.keyRoom(code)).Err()
}

// Open-room index: codes of rooms currently joinable.
func (s *Store) AddOpen(ctx context.Context, code string) error {
	if err := s.rdb.SAdd(ctx, s.keyOpen(), code).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyOpen(), s.ttl).Err()
}

func (s *Store) RemoveOpen(ctx context.Context, code string) error {
	return s.rdb.SRem(ctx, s.keyOpen(), code).Err()
}

// ListOpen loads every indexed room still in waiting state. Codes whose
// document has expired are skipped, not pruned; the reaper owns pruning.
func (s *Store) ListOpen(ctx context.Context) ([]*Room, error) {
	codes, err := s.rdb.SMembers(ctx, s.keyOpen()).Result()
	if err != nil {
		return nil, err
	}
	var out []*Room
	for _, c := range codes {
		r, _ := s.Load(ctx, c)
		if r == nil || r.Status != StatusWaiting {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// OpenCodes returns the raw open index for the reaper.
func (s *Store) OpenCodes(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyOpen()).Result()
}

// Exists reports whether the room document is still live.
func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.keyRoom(code)).Result()
	return n > 0, err
}

// Publish fans a fresh room snapshot out to subscribers of the room's event
// channel. Best-effort: a room with no subscribers publishes into the void.
func (s *Store) Publish(ctx context.Context, r *Room) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.keyEvents(r.Code), raw).Err()
}

// PublishDeleted signals subscribers that the room is gone.
func (s *Store) PublishDeleted(ctx context.Context, code string) error {
	return s.rdb.Publish(ctx, s.keyEvents(code), []byte(`{"deleted":true}`)).Err()
}

// Subscribe opens a pub/sub subscription on the room's event channel.
func (s *Store) Subscribe(ctx context.Context, code string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, s.keyEvents(code))
}

// ParseRedisURL turns redis:// and rediss:// URLs into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// NewCode returns 6 uppercase alphanumeric characters.
func NewCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}
