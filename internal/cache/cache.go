package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

const (
	updatesChannel = "tracker_updates"
	opTimeout      = 5 * time.Second
)

// Manager layers redis over an in-process cache. When redis is unreachable
// (or no URL is configured) everything falls back to the local cache and
// update events are fanned out in-process only.
type Manager struct {
	redisClient *redis.Client
	localCache  *gocache.Cache
	pubSub      *redis.PubSub
	events      chan []byte
	ctx         context.Context
	mu          sync.RWMutex
}

// NewManager connects to redis at redisURL. An empty URL skips redis
// entirely, which is what the tests use.
func NewManager(redisURL string) *Manager {
	m := &Manager{
		ctx:        context.Background(),
		localCache: gocache.New(5*time.Minute, 10*time.Minute),
		events:     make(chan []byte, 64),
	}
	if redisURL == "" {
		return m
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(m.ctx, opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis connection failed, using local cache only")
		return m
	}

	m.redisClient = client
	m.pubSub = client.Subscribe(m.ctx, updatesChannel)
	go m.forwardUpdates()

	log.Info("redis connection established")
	return m
}

func (m *Manager) forwardUpdates() {
	for msg := range m.pubSub.Channel() {
		select {
		case m.events <- []byte(msg.Payload):
		default:
			// slow consumer, drop
		}
	}
}

// Events delivers published update messages, whether they arrived through
// redis pub/sub or the local fallback path.
func (m *Manager) Events() <-chan []byte {
	return m.events
}

// PublishServerUpdate announces a server ping to websocket subscribers.
func (m *Manager) PublishServerUpdate(hostname string, port int, gameUUID string) {
	m.publish(map[string]interface{}{
		"type":      "server_update",
		"hostname":  hostname,
		"port":      port,
		"game_uuid": gameUUID,
		"timestamp": time.Now().Unix(),
	})
}

// PublishStatsUpdate announces a leaderboard write for a player.
func (m *Manager) PublishStatsUpdate(gamePlayerID uint) {
	m.publish(map[string]interface{}{
		"type":           "stats_update",
		"game_player_id": gamePlayerID,
		"timestamp":      time.Now().Unix(),
	})
}

func (m *Manager) publish(event map[string]interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("failed to marshal update event")
		return
	}

	if m.redisClient != nil {
		ctx, cancel := context.WithTimeout(m.ctx, opTimeout)
		defer cancel()
		m.redisClient.Publish(ctx, updatesChannel, data)
		return
	}

	select {
	case m.events <- data:
	default:
	}
}

func (m *Manager) Set(key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.localCache.Set(key, value, ttl)

	if m.redisClient != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(m.ctx, opTimeout)
		defer cancel()
		return m.redisClient.Set(ctx, key, data, ttl).Err()
	}
	return nil
}

func (m *Manager) Get(key string, target interface{}) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if val, found := m.localCache.Get(key); found {
		data, err := json.Marshal(val)
		if err != nil {
			return false, err
		}
		return true, json.Unmarshal(data, target)
	}

	if m.redisClient != nil {
		ctx, cancel := context.WithTimeout(m.ctx, opTimeout)
		defer cancel()

		data, err := m.redisClient.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return false, nil
		} else if err != nil {
			return false, err
		}

		m.localCache.Set(key, json.RawMessage(data), 5*time.Minute)
		return true, json.Unmarshal(data, target)
	}

	return false, nil
}

func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.localCache.Delete(key)

	if m.redisClient != nil {
		ctx, cancel := context.WithTimeout(m.ctx, opTimeout)
		defer cancel()
		return m.redisClient.Del(ctx, key).Err()
	}
	return nil
}

func (m *Manager) Increment(key string, value int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redisClient != nil {
		ctx, cancel := context.WithTimeout(m.ctx, opTimeout)
		defer cancel()
		return m.redisClient.IncrBy(ctx, key, value).Result()
	}

	var current int64
	if val, found := m.localCache.Get(key); found {
		if n, ok := val.(int64); ok {
			current = n
		}
	}
	current += value
	m.localCache.Set(key, current, gocache.DefaultExpiration)
	return current, nil
}

// IsAvailable reports whether redis is connected.
func (m *Manager) IsAvailable() bool {
	return m.redisClient != nil
}
