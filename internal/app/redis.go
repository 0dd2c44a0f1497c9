package app

import (
	"strconv"

	goredis "github.com/go-redis/redis/v8"

	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/redis"
)

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (local rate limits and locks, no pub/sub events)")
		return nil
	}

	// Validate guarantees these parse
	redisDB, _ := strconv.Atoi(app.Config.RedisDB)
	redisPoolSize, _ := strconv.Atoi(app.Config.RedisPoolSize)

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       redisDB,
		PoolSize: redisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.String("address", app.Config.RedisAddress))
	return nil
}

// goRedis returns the underlying client for packages that speak go-redis
// directly, or nil without Redis.
func (app *App) goRedis() *goredis.Client {
	if app.RedisClient == nil {
		return nil
	}
	return app.RedisClient.GetGoRedisClient()
}
