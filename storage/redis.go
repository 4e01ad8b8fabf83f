package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

// Storage wraps the Redis connection used for watch subscriptions and
// caches. Values go in as anything marshalable and come back out as raw
// bytes, so this package never imports the packages that own the types.
type Storage struct {
	client *redis.Client
}

func New(addr, password string, db int) *Storage {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Storage{client: rdb}
}

func (s *Storage) Ping() error {
	return s.client.Ping(ctx).Err()
}

// Watch is a standing request to be told about new openings on a tool.
type Watch struct {
	ChatID      int64
	ToolID      string
	ToolLabel   string
	MinDuration time.Duration // 0 keeps every opening
}

func watchKey(chatID int64, toolID string) string {
	return fmt.Sprintf("watch:%d:%s", chatID, toolID)
}

// SaveWatch stores a watch. One watch per chat and tool.
func (s *Storage) SaveWatch(w *Watch) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, watchKey(w.ChatID, w.ToolID), data, 0).Err()
}

// GetWatch loads one watch, or nil when none exists.
func (s *Storage) GetWatch(chatID int64, toolID string) (*Watch, error) {
	val, err := s.client.Get(ctx, watchKey(chatID, toolID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var w Watch
	if err := json.Unmarshal([]byte(val), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWatches returns every stored watch.
func (s *Storage) ListWatches() ([]*Watch, error) {
	return s.watchesByPattern("watch:*")
}

// ListChatWatches returns the watches belonging to one chat.
func (s *Storage) ListChatWatches(chatID int64) ([]*Watch, error) {
	return s.watchesByPattern(fmt.Sprintf("watch:%d:*", chatID))
}

func (s *Storage) watchesByPattern(pattern string) ([]*Watch, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	var watches []*Watch
	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var w Watch
		if json.Unmarshal([]byte(val), &w) == nil {
			watches = append(watches, &w)
		}
	}
	return watches, nil
}

// DeleteWatch removes one watch.
func (s *Storage) DeleteWatch(chatID int64, toolID string) error {
	return s.client.Del(ctx, watchKey(chatID, toolID)).Err()
}

// ===== Tool list cache =====

// SaveTools caches the portal's tool list (TTL: 24 hours).
func (s *Storage) SaveTools(tools interface{}) error {
	data, err := json.Marshal(tools)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "cache:tools", data, 24*time.Hour).Err()
}

// GetTools returns the cached tool list, or nil when the cache is cold.
func (s *Storage) GetTools() ([]byte, error) {
	val, err := s.client.Get(ctx, "cache:tools").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// ===== Last-seen openings, for new-opening notifications =====

func openingsKey(chatID int64, toolID string) string {
	return fmt.Sprintf("openings:%d:%s", chatID, toolID)
}

// SaveLastOpenings stores the openings last reported for a watch
// (TTL: 24 hours).
func (s *Storage) SaveLastOpenings(chatID int64, toolID string, openings interface{}) error {
	data, err := json.Marshal(openings)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, openingsKey(chatID, toolID), data, 24*time.Hour).Err()
}

// GetLastOpenings returns the stored openings for a watch, or nil when
// there are none.
func (s *Storage) GetLastOpenings(chatID int64, toolID string) ([]byte, error) {
	val, err := s.client.Get(ctx, openingsKey(chatID, toolID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// ===== Pending tool picks for the inline keyboard flow =====

func pickKey(chatID int64) string {
	return fmt.Sprintf("pick:%d", chatID)
}

// SavePick stores an unfinished tool selection with a short TTL as a
// safety net against abandoned keyboards.
func (s *Storage) SavePick(chatID int64, pick interface{}) error {
	data, err := json.Marshal(pick)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, pickKey(chatID), data, 5*time.Minute).Err()
}

// GetPick returns the pending selection, or nil when there is none.
func (s *Storage) GetPick(chatID int64) ([]byte, error) {
	val, err := s.client.Get(ctx, pickKey(chatID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// DeletePick drops the pending selection.
func (s *Storage) DeletePick(chatID int64) error {
	return s.client.Del(ctx, pickKey(chatID)).Err()
}
