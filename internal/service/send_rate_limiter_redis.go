package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SendRateLimiter acota cuántos mensajes puede originar un usuario por
// ventana de tiempo. Ante cualquier duda deja pasar: perder un límite es
// preferible a perder mensajes.
type SendRateLimiter interface {
	Allow(userID string) bool
}

const redisSendAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisSendRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewRedisSendRateLimiter(client *redis.Client, window time.Duration, max int) SendRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisSendRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "msg:rl:",
	}
}

func (l *redisSendRateLimiter) Allow(userID string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key := strings.TrimSpace(userID)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisSendAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
