package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/furnhaven/cart-service/internal/domain"
	apperrors "github.com/furnhaven/cart-service/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository stores carts as JSON blobs in Redis. Guest carts get a TTL
// derived from their ExpiresAt, so Redis itself destroys them on schedule;
// user carts are stored without expiry.
type CartRepository struct {
	client *redis.Client
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client) *CartRepository {
	return &CartRepository{client: client}
}

func cartKey(owner domain.Owner) string {
	return keyPrefix + owner.Key()
}

// Get retrieves the owner's cart.
func (r *CartRepository) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(owner)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", owner.Key())
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Save upserts the cart. A guest cart whose expiry has already passed is
// stored with a minimal TTL rather than resurrected.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	var ttl time.Duration // 0 = no expiry (user carts)
	if cart.ExpiresAt != nil {
		ttl = time.Until(*cart.ExpiresAt)
		if ttl <= 0 {
			ttl = time.Second
		}
	}

	if err := r.client.Set(ctx, cartKey(cart.Owner()), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes the owner's cart.
func (r *CartRepository) Delete(ctx context.Context, owner domain.Owner) error {
	if err := r.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
