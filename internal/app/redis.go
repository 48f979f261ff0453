package app

import (
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.RedisEnabled() {
		app.Logger.Info("Redis: Not configured (rate limiting is per instance, session revocation disabled)")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected",
		logging.Field{Key: "address", Value: app.Config.RedisAddress},
		logging.Field{Key: "db", Value: app.Config.RedisDB},
	)
	return nil
}
