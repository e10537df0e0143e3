package coupons

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/adityakhanna/vastra-backend/pkg/redis"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// AppliedCouponStore remembers which coupon a session has applied between the
// apply call and checkout. Injected so the storage backend stays swappable.
type AppliedCouponStore interface {
	Save(ctx context.Context, sessionID string, applied types.AppliedCoupon) error
	Get(ctx context.Context, sessionID string) (*types.AppliedCoupon, error)
	Clear(ctx context.Context, sessionID string) error
}

// RedisAppliedStore keeps applied coupons in Redis with a TTL so abandoned
// sessions release their codes.
type RedisAppliedStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAppliedStore(client *redis.Client, ttl time.Duration) *RedisAppliedStore {
	return &RedisAppliedStore{client: client, ttl: ttl}
}

func (s *RedisAppliedStore) Save(ctx context.Context, sessionID string, applied types.AppliedCoupon) error {
	payload, err := json.Marshal(applied)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.client.AppliedCouponKey(sessionID), payload, s.ttl)
}

func (s *RedisAppliedStore) Get(ctx context.Context, sessionID string) (*types.AppliedCoupon, error) {
	raw, err := s.client.Get(ctx, s.client.AppliedCouponKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var applied types.AppliedCoupon
	if err := json.Unmarshal([]byte(raw), &applied); err != nil {
		return nil, err
	}
	return &applied, nil
}

func (s *RedisAppliedStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.client.AppliedCouponKey(sessionID))
}

// MemoryAppliedStore is the in-process fallback used by tests.
type MemoryAppliedStore struct {
	mu      sync.Mutex
	applied map[string]types.AppliedCoupon
}

func NewMemoryAppliedStore() *MemoryAppliedStore {
	return &MemoryAppliedStore{applied: map[string]types.AppliedCoupon{}}
}

func (s *MemoryAppliedStore) Save(_ context.Context, sessionID string, applied types.AppliedCoupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied[sessionID] = applied
	return nil
}

func (s *MemoryAppliedStore) Get(_ context.Context, sessionID string) (*types.AppliedCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if applied, ok := s.applied[sessionID]; ok {
		copied := applied
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryAppliedStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.applied, sessionID)
	return nil
}
