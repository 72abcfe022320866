package testutil

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTestRedisAddr is used when PLAYSAFE_TEST_REDIS_ADDR is unset.
const DefaultTestRedisAddr = "localhost:6379"

// SetupTestRedis connects to the test Redis and returns the client with a
// key prefix unique to the test. Keys under the prefix are deleted when the
// test ends. The test is skipped if Redis is not reachable or older than
// 7.0, which added EXPIRE NX.
func SetupTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()

	addr := os.Getenv("PLAYSAFE_TEST_REDIS_ADDR")
	if addr == "" {
		addr = DefaultTestRedisAddr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 2 * time.Second})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	if major := redisMajor(ctx, rdb); major < 7 {
		_ = rdb.Close()
		t.Skipf("redis 7 or newer required, server reports major version %d", major)
	}

	prefix := "playsafe_test_" + primitive.NewObjectID().Hex()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			_ = rdb.Del(ctx, iter.Val()).Err()
		}
		_ = rdb.Close()
	})

	return rdb, prefix
}

func redisMajor(ctx context.Context, rdb *redis.Client) int {
	info, err := rdb.Info(ctx, "server").Result()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(info, "\n") {
		v, ok := strings.CutPrefix(strings.TrimSpace(line), "redis_version:")
		if !ok {
			continue
		}
		major, _ := strconv.Atoi(strings.SplitN(v, ".", 2)[0])
		return major
	}
	return 0
}
