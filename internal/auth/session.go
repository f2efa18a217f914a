package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"

	"github.com/mesadeayuda/helpdesk/internal/config"
)

const (
	sessionUserKey    = "user_id"
	sessionFlashesKey = "flashes"
	redisSessionScope = "sess:"
)

// Flash is a one-shot notice rendered on the next page load.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SessionManager wraps the fiber session store with the login and flash
// conventions used across handlers.
type SessionManager struct {
	store *session.Store
}

// NewSessionManager builds a redis-backed session store.
func NewSessionManager(cfg config.SessionConfig, client *redis.Client) *SessionManager {
	store := session.New(session.Config{
		Storage:        NewRedisStorage(client),
		Expiration:     cfg.Lifetime(),
		KeyLookup:      "cookie:" + cfg.CookieName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	return &SessionManager{store: store}
}

// SignIn records the authenticated user in the session.
func (m *SessionManager) SignIn(c *fiber.Ctx, userID int64) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return err
	}
	sess.Set(sessionUserKey, userID)
	return sess.Save()
}

// SignOut destroys the session.
func (m *SessionManager) SignOut(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// CurrentUserID returns the logged-in user's ID, if any.
func (m *SessionManager) CurrentUserID(c *fiber.Ctx) (int64, bool) {
	sess, err := m.store.Get(c)
	if err != nil {
		return 0, false
	}
	switch v := sess.Get(sessionUserKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// AddFlash queues a notice for the next rendered page.
func (m *SessionManager) AddFlash(c *fiber.Ctx, category, message string) {
	sess, err := m.store.Get(c)
	if err != nil {
		return
	}
	flashes := decodeFlashes(sess.Get(sessionFlashesKey))
	flashes = append(flashes, Flash{Category: category, Message: message})
	encoded, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	sess.Set(sessionFlashesKey, encoded)
	_ = sess.Save()
}

// ConsumeFlashes returns queued notices and clears them.
func (m *SessionManager) ConsumeFlashes(c *fiber.Ctx) []Flash {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil
	}
	flashes := decodeFlashes(sess.Get(sessionFlashesKey))
	if len(flashes) > 0 {
		sess.Delete(sessionFlashesKey)
		_ = sess.Save()
	}
	return flashes
}

func decodeFlashes(raw any) []Flash {
	data, ok := raw.([]byte)
	if !ok || len(data) == 0 {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}

// RedisStorage adapts the shared go-redis client to fiber's Storage interface.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage builds the adapter.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), redisSessionScope+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), redisSessionScope+key, val, exp).Err()
}

func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), redisSessionScope+key).Err()
}

func (s *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, redisSessionScope+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the underlying client is shared and closed at shutdown.
func (s *RedisStorage) Close() error {
	return nil
}
