package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sivaraj16/medicals/internal/domain"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

const (
	keyPrefix = "cart:"

	// maxUpdateAttempts bounds optimistic retries when writers race on one
	// session.
	maxUpdateAttempts = 5
)

// CartStore implements repository.CartStore using Redis. Each session is a
// JSON document that expires after the configured TTL of inactivity.
type CartStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartStore creates a new Redis-backed cart session store.
func NewCartStore(client redis.UniversalClient, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

// Get retrieves a cart session by id.
func (s *CartStore) Get(ctx context.Context, id string) (*domain.Cart, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", id)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return decodeCart(data)
}

// Take atomically reads and removes a session. Of several concurrent
// callers only one receives the cart; the rest get not found.
func (s *CartStore) Take(ctx context.Context, id string) (*domain.Cart, error) {
	data, err := s.client.GetDel(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", id)
		}
		return nil, fmt.Errorf("redis getdel cart: %w", err)
	}
	return decodeCart(data)
}

// Update applies fn to a session inside a WATCH transaction and saves the
// result. If another writer changes or removes the session first, fn runs
// again against the fresh copy.
func (s *CartStore) Update(ctx context.Context, id string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	key := keyPrefix + id

	var cart *domain.Cart
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFound("cart", id)
			}
			return fmt.Errorf("redis get cart: %w", err)
		}
		c, err := decodeCart(data)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		out, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redis set cart: %w", err)
		}
		cart = c
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, apperrors.Conflict(fmt.Sprintf("cart %s is being modified concurrently, retry", id))
}

func decodeCart(data []byte) (*domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return &cart, nil
}

// Save persists a cart session and resets its TTL.
func (s *CartStore) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+cart.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Delete removes a cart session. Deleting a missing session reports not found.
func (s *CartStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("cart", id)
	}
	return nil
}
