package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no cart exists for the given id.
var ErrNotFound = errors.New("cart: not found")

// Item is a single cart line.
type Item struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
}

// Cart is a shopper's staged order contents, keyed by an opaque cart id.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service stores carts in Redis with a sliding TTL. Payment initiation clears
// the cart once a provider session is open.
type Service struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s Service) key(cartID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart"
	}
	return fmt.Sprintf("%s:%s", prefix, cartID)
}

func (s Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Save writes the cart and refreshes its TTL.
func (s Service) Save(ctx context.Context, c Cart) error {
	if s.R == nil {
		return errors.New("cart: redis client not configured")
	}
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("cart: id is required")
	}
	c.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart: encode: %w", err)
	}
	return s.R.Set(ctx, s.key(c.ID), payload, s.ttl()).Err()
}

// Get loads a cart, returning ErrNotFound when the key is absent or expired.
func (s Service) Get(ctx context.Context, cartID string) (Cart, error) {
	if s.R == nil {
		return Cart{}, errors.New("cart: redis client not configured")
	}
	raw, err := s.R.Get(ctx, s.key(cartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("cart: decode: %w", err)
	}
	return c, nil
}

// Clear removes the cart. Clearing a missing cart is not an error.
func (s Service) Clear(ctx context.Context, cartID string) error {
	if s.R == nil {
		return errors.New("cart: redis client not configured")
	}
	if strings.TrimSpace(cartID) == "" {
		return nil
	}
	return s.R.Del(ctx, s.key(cartID)).Err()
}
