package database

import (
	"context"
	"log"
	"time"

	"auditoria-backend/internal/config"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// InitRedis prepara el cliente Redis y el locker distribuido que serializa
// las reconciliaciones por código de referencia entre instancias del servidor.
func InitRedis(cfg *config.Config) {
	rdb = redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("No se pudo conectar a Redis (%s): %v", cfg.RedisAddr, err)
	}

	locker = redislock.New(rdb)
}

func RedisLocker() *redislock.Client {
	return locker
}
