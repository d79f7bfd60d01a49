package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-box-office/internal/model"
)

// ErrNoCheckout is returned when the session has no pending checkout.
var ErrNoCheckout = errors.New("no checkout for session")

// CheckoutStore keeps the latest booking summary of each session in Redis
// until the checkout page has been shown or the TTL passes.
type CheckoutStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCheckoutStore(rdb *redis.Client, ttl time.Duration) *CheckoutStore {
	return &CheckoutStore{rdb: rdb, ttl: ttl}
}

func checkoutKey(sessionID string) string { return "checkout:" + sessionID }

// Save replaces the session's checkout summary.
func (s *CheckoutStore) Save(ctx context.Context, sessionID string, summary *model.BookingSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode checkout: %w", err)
	}
	if err := s.rdb.Set(ctx, checkoutKey(sessionID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save checkout: %w", err)
	}
	return nil
}

// Load returns the session's checkout summary or ErrNoCheckout.
func (s *CheckoutStore) Load(ctx context.Context, sessionID string) (*model.BookingSummary, error) {
	b, err := s.rdb.Get(ctx, checkoutKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCheckout
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout: %w", err)
	}
	var summary model.BookingSummary
	if err := json.Unmarshal(b, &summary); err != nil {
		return nil, fmt.Errorf("decode checkout: %w", err)
	}
	return &summary, nil
}
