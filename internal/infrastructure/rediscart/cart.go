package rediscart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"

	"github.com/redis/go-redis/v9"
)

// keyCart is a hash per user: field = product id, value = quantity.
const keyCart = "cart:%s"

// mergeScript adds ARGV[2] to field ARGV[1] unless the sum would exceed
// ARGV[3]. It returns the new quantity, or -1 when the limit blocks it.
var mergeScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local merged = current + tonumber(ARGV[2])
if merged > tonumber(ARGV[3]) then
  return -1
end
redis.call('HSET', KEYS[1], ARGV[1], merged)
if tonumber(ARGV[4]) > 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[4])
end
return merged
`)

// takeScript returns the whole hash as field/value pairs and deletes it.
var takeScript = redis.NewScript(`
local lines = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
return lines
`)

// restoreScript adds each (field, quantity) pair after ARGV[1], the ttl in
// seconds, back into the hash.
var restoreScript = redis.NewScript(`
for i = 2, #ARGV, 2 do
  redis.call('HINCRBY', KEYS[1], ARGV[i], ARGV[i + 1])
end
if tonumber(ARGV[1]) > 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return #ARGV / 2
`)

// Repository stores carts in Redis. Merge runs as a script so the
// read-check-write on a line is atomic across instances.
type Repository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New returns a cart store on client. A positive ttl expires idle carts.
func New(client redis.Cmdable, ttl time.Duration) *Repository {
	return &Repository{client: client, ttl: ttl}
}

func key(userID string) string { return fmt.Sprintf(keyCart, userID) }

func (r *Repository) Merge(ctx context.Context, userID, productID string, quantity, limit int) (*domain.Line, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	merged, err := mergeScript.Run(ctx, r.client, []string{key(userID)},
		productID, quantity, limit, int64(r.ttl/time.Second),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("rediscart: merge: %w", err)
	}
	if merged < 0 {
		return nil, domain.ErrLimitExceeded
	}
	return &domain.Line{
		UserID:    userID,
		ProductID: productID,
		Quantity:  merged,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (r *Repository) List(ctx context.Context, userID string) ([]domain.Line, error) {
	fields, err := r.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("rediscart: list: %w", err)
	}
	return toLines(userID, fields)
}

func toLines(userID string, fields map[string]string) ([]domain.Line, error) {
	out := make([]domain.Line, 0, len(fields))
	for productID, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("rediscart: line %s: bad quantity %q", productID, raw)
		}
		out = append(out, domain.Line{UserID: userID, ProductID: productID, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *Repository) Remove(ctx context.Context, userID, productID string) error {
	n, err := r.client.HDel(ctx, key(userID), productID).Result()
	if err != nil {
		return fmt.Errorf("rediscart: remove: %w", err)
	}
	if n == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("rediscart: clear: %w", err)
	}
	return nil
}

func (r *Repository) Take(ctx context.Context, userID string) ([]domain.Line, error) {
	pairs, err := takeScript.Run(ctx, r.client, []string{key(userID)}).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("rediscart: take: %w", err)
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("rediscart: take: odd reply length %d", len(pairs))
	}
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fields[pairs[i]] = pairs[i+1]
	}
	return toLines(userID, fields)
}

func (r *Repository) Restore(ctx context.Context, userID string, lines []domain.Line) error {
	args := make([]any, 0, 1+2*len(lines))
	args = append(args, int64(r.ttl/time.Second))
	for _, l := range lines {
		if l.Quantity > 0 {
			args = append(args, l.ProductID, l.Quantity)
		}
	}
	if len(args) == 1 {
		return nil
	}
	if err := restoreScript.Run(ctx, r.client, []string{key(userID)}, args...).Err(); err != nil {
		return fmt.Errorf("rediscart: restore: %w", err)
	}
	return nil
}

// NewClient opens a client and checks it answers.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("rediscart: ping %s: %w", addr, err)
	}
	return c, nil
}
