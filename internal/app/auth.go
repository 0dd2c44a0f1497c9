package app

import (
	"context"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/crypto"
	"newsletter-gate/internal/oauth2"
)

func (app *App) initializeEncryption() error {
	encryptionKey := app.Config.EncryptionKey
	if encryptionKey == "" {
		app.Logger.Info("Configuration encryption disabled (no encryption key provided)")
		return nil
	}

	encryptor, err := crypto.NewConfigEncryptor(encryptionKey)
	if err != nil {
		return err
	}

	app.Encryptor = encryptor
	app.Logger.Info("Configuration encryption enabled")
	return nil
}

func (app *App) initializeAuth() error {
	// Without Redis logout only clears the cookie; tokens live out their TTL
	var tokens auth.TokenStore
	if app.RedisClient != nil {
		tokens = app.RedisClient
	}
	app.Auth = auth.New(app.Storage, app.Config, tokens)

	_, err := app.Auth.EnsureDefaultAdmin(context.Background(), app.Config.AdminUsername, app.Config.AdminPassword)
	return err
}

// initializeOAuth keeps tokens next to the provider credentials in
// settings, encrypted like them.
func (app *App) initializeOAuth() {
	redirectURL := app.Config.BaseURL + "/oauth/callback"
	app.OAuthManager = oauth2.NewManager(
		app.Settings,
		oauth2.NewSettingsTokenStorage(app.Settings),
		redirectURL,
	)
	app.Logger.Info("OAuth manager initialized", logging.String("redirect_url", redirectURL))
}
