package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prperemyshlev/bridge-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// FlowState is one pending authorization flow, keyed by its state value.
// It is single-use: Consume removes it atomically.
type FlowState struct {
	State       string    `json:"state"`
	Provider    string    `json:"provider"`
	Verifier    string    `json:"verifier"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
}

// FlowStore persists pending authorization flows. Consume must be atomic:
// two racing calls on the same state value see exactly one success.
type FlowStore interface {
	Save(ctx context.Context, flow *FlowState, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*FlowState, error)
}

// RedisFlowStore stores pending flows in Redis with a TTL
type RedisFlowStore struct {
	redis *database.Redis
}

// NewRedisFlowStore creates a new Redis-backed flow store
func NewRedisFlowStore(redis *database.Redis) *RedisFlowStore {
	return &RedisFlowStore{redis: redis}
}

func flowKey(state string) string {
	return fmt.Sprintf("oauthflow:%s", state)
}

// Save persists a pending flow under its state value
func (s *RedisFlowStore) Save(ctx context.Context, flow *FlowState, ttl time.Duration) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow state: %w", err)
	}

	if err := s.redis.Client.Set(ctx, flowKey(flow.State), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// Consume fetches and deletes a pending flow in one round trip. GETDEL keeps
// the read-and-invalidate atomic, so a state value can be redeemed once.
func (s *RedisFlowStore) Consume(ctx context.Context, state string) (*FlowState, error) {
	data, err := s.redis.Client.GetDel(ctx, flowKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("flow state %q is unknown or already consumed: %w", state, ErrStateMismatch)
		}
		return nil, fmt.Errorf("failed to consume flow state: %w", err)
	}

	var flow FlowState
	if err := json.Unmarshal([]byte(data), &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}
	return &flow, nil
}

// MemoryFlowStore is an in-process flow store for tests and single-node
// development runs.
type MemoryFlowStore struct {
	mu    sync.Mutex
	flows map[string]memoryFlowEntry
}

type memoryFlowEntry struct {
	flow      FlowState
	expiresAt time.Time
}

// NewMemoryFlowStore creates a new in-memory flow store
func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{flows: make(map[string]memoryFlowEntry)}
}

// Save persists a pending flow under its state value
func (s *MemoryFlowStore) Save(ctx context.Context, flow *FlowState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[flow.State] = memoryFlowEntry{flow: *flow, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Consume fetches and deletes a pending flow under the store lock
func (s *MemoryFlowStore) Consume(ctx context.Context, state string) (*FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flows[state]
	if !ok {
		return nil, fmt.Errorf("flow state %q is unknown or already consumed: %w", state, ErrStateMismatch)
	}
	delete(s.flows, state)

	if time.Now().After(entry.expiresAt) {
		return nil, fmt.Errorf("flow state %q is expired: %w", state, ErrFlowExpired)
	}

	flow := entry.flow
	return &flow, nil
}
