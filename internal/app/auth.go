package app

import (
	"timetrack-gateway/internal/auth"
)

func (app *App) initializeAuth() error {
	var revocations auth.RevocationStore
	if app.RedisClient != nil {
		revocations = app.RedisClient
	}

	authInstance, err := auth.New(app.Config.JWTSecret, app.Config.JWTIssuer, revocations, app.Logger)
	if err != nil {
		return err
	}
	app.Auth = authInstance
	return nil
}
