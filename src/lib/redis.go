package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

func gatewayEventKey(eventID string) string {
	return fmt.Sprintf("gateway:event:%s", eventID)
}

// GatewayEventSeen reports whether a gateway event id has already been fully
// processed. Without a cache it answers false and leaves dedupe to the
// projector, which is idempotent anyway.
func GatewayEventSeen(ctx context.Context, eventID string) bool {
	rdb := GetRedisClient()
	if rdb == nil {
		return false
	}
	n, err := rdb.Exists(ctx, gatewayEventKey(eventID)).Result()
	if err != nil {
		log.Printf("[redis] Error checking event %s: %s\n", eventID, err.Error())
		return false
	}
	return n > 0
}

// MarkGatewayEventSeen records an event id only after projection succeeded.
// A delivery that failed mid-flight leaves no claim behind, so the gateway's
// retry is reprocessed instead of dropped.
func MarkGatewayEventSeen(ctx context.Context, eventID string) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	if err := rdb.Set(ctx, gatewayEventKey(eventID), 1, 24*time.Hour).Err(); err != nil {
		log.Printf("[redis] Error recording event %s: %s\n", eventID, err.Error())
	}
}
