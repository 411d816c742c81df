package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// OrderLocker serializes payment attempts per order. The authorizer's
// already-placed check is not atomic against concurrent calls, so the
// HTTP layer takes this lock around every authorize / 3DS-completion
// request for the same order.
type OrderLocker interface {
	// Acquire takes the lock for an order. ok is false when another
	// attempt holds it. The returned release must be called when ok.
	Acquire(ctx context.Context, orderID string) (release func(), ok bool, err error)
}

type redisOrderLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (l *redisOrderLocker) Acquire(ctx context.Context, orderID string) (func(), bool, error) {
	key := l.prefix + ":" + orderID
	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		l.client.Del(context.Background(), key)
	}
	return release, true, nil
}

type memoryOrderLocker struct {
	mu     sync.Mutex
	held   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryOrderLocker(ttl time.Duration) *memoryOrderLocker {
	now := time.Now()
	return &memoryOrderLocker{
		held:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: now.Add(ttl),
	}
}

func (l *memoryOrderLocker) Acquire(_ context.Context, orderID string) (func(), bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.held[orderID]; ok && exp.After(now) {
		return nil, false, nil
	}

	l.held[orderID] = now.Add(l.ttl)
	if now.After(l.nextGC) {
		for id, exp := range l.held {
			if exp.Before(now) {
				delete(l.held, id)
			}
		}
		l.nextGC = now.Add(l.ttl)
	}

	release := func() {
		l.mu.Lock()
		delete(l.held, orderID)
		l.mu.Unlock()
	}
	return release, true, nil
}

// NewOrderLocker builds a Redis-backed locker and falls back to in-memory
// when Redis is unreachable (single-instance deployments).
func NewOrderLocker(addr, pass string, db int, ttl time.Duration) (OrderLocker, error) {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if addr == "" {
		return newMemoryOrderLocker(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryOrderLocker(ttl), err
	}

	return &redisOrderLocker{
		client: client,
		prefix: "opayo:order-lock",
		ttl:    ttl,
	}, nil
}

// LockOrder wraps a handler taking an :id route param so only one payment
// attempt per order runs at a time. A busy order answers 409.
func LockOrder(locker OrderLocker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orderID := c.Param("id")
			if orderID == "" {
				return next(c)
			}

			release, ok, err := locker.Acquire(c.Request().Context(), orderID)
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
					"status": false,
					"msg":    "payment temporarily unavailable",
				})
			}
			if !ok {
				return c.JSON(http.StatusConflict, map[string]interface{}{
					"status": false,
					"msg":    "a payment attempt for this order is already in progress",
				})
			}
			defer release()

			return next(c)
		}
	}
}
