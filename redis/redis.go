package redis

import (
	"collaborative-notes/internal/config"
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var Ctx = context.Background()
var RedisClient *redis.Client

func InitRedis() {
	RedisClient = redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	_, err := RedisClient.Ping(Ctx).Result()
	if err != nil {
		log.Println("Redis not available. Running without Redis.")
		RedisClient = nil
		return
	}

	log.Println("Redis connected successfully.")
}

// StoreToken records a logged-in token so auth can check presence.
func StoreToken(ctx context.Context, token string, ttl time.Duration) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(ctx, token, "1", ttl).Err()
}

// RevokeToken removes a token on logout.
func RevokeToken(ctx context.Context, token string) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(ctx, token).Err()
}

// TokenExists reports whether a token is still live. Without Redis every
// signature-valid token is accepted.
func TokenExists(ctx context.Context, token string) bool {
	if RedisClient == nil {
		return true
	}
	exists, err := RedisClient.Exists(ctx, token).Result()
	return err == nil && exists > 0
}
