package app

import (
	"context"
	"time"

	"newsletter-gate/internal/circuitbreaker"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/ratelimit"
	"newsletter-gate/internal/config"
	"newsletter-gate/internal/providers"
	"newsletter-gate/internal/settings"

	gatehttp "newsletter-gate/internal/common/http"
)

// Outbound calls per provider, shared by every visitor of this instance
const providerRequestsPerMinute = 600

// initializeProviders builds the settings service, seeds it from
// SETTINGS_FILE and registers the provider clients on top of it.
func (app *App) initializeProviders() error {
	app.Settings = settings.NewService(app.Storage, app.Encryptor,
		providers.MailChimpID, providers.ConvertKitID, providers.MailerLiteID)

	seed, err := config.LoadSettingsSeed(app.Config.SettingsFile)
	if err != nil {
		return err
	}
	if len(seed.Settings) > 0 {
		written, err := app.Settings.Seed(context.Background(), seed.Settings)
		if err != nil {
			return err
		}
		app.Logger.Info("Settings seeded",
			logging.String("file", app.Config.SettingsFile),
			logging.Int("written", written),
		)
	}

	limiter, err := ratelimit.NewLocal(ratelimit.Config{
		Limit:  providerRequestsPerMinute,
		Window: time.Minute,
	})
	if err != nil {
		return err
	}

	breakers := circuitbreaker.NewManager(circuitbreaker.ProviderConfig,
		logging.GetGlobalLogger().WithFields(logging.String("component", "circuitbreaker")))

	app.HTTPClient = gatehttp.NewClient().
		WithCircuitBreakers(breakers).
		WithRateLimiter(limiter)
	app.Providers = providers.NewRegistry(app.HTTPClient, app.Settings)

	app.Logger.Info("Providers registered", logging.Strings("providers", app.Providers.IDs()))
	return nil
}

// oauthProviderIDs lists the enabled providers that use the OAuth code flow
func (app *App) oauthProviderIDs(ctx context.Context) []string {
	var ids []string
	for _, id := range app.Providers.IDs() {
		p, enabled, err := app.Providers.GetEnabled(ctx, id)
		if err != nil || !enabled || p.OAuth() == nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
