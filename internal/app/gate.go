package app

import (
	"time"

	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/templates"
	"newsletter-gate/internal/events"
	"newsletter-gate/internal/gate"
	"newsletter-gate/internal/locks"
)

const (
	eventBuffer  = 256
	eventTimeout = 5 * time.Second
)

func (app *App) initializeLocks() {
	if app.RedisClient != nil {
		manager, err := locks.NewRedsyncManager(app.RedisClient)
		if err == nil {
			app.Locks = manager
			app.Logger.Info("Locks: Redis")
			return
		}
		app.Logger.Warn("Failed to create Redis lock manager, using local locks", logging.Err(err))
	}
	app.Locks = locks.NewLocalManager()
	app.Logger.Info("Locks: local")
}

// initializeEvents fans subscription events out to Redis pub/sub and AMQP,
// whichever are configured. Publishing never blocks a visitor.
func (app *App) initializeEvents() {
	var sinks events.Multi
	if app.RedisClient != nil {
		sinks = append(sinks, events.NewRedisPublisher(app.RedisClient, app.Config.EventsChannel))
		app.Logger.Info("Events: Redis", logging.String("channel", app.Config.EventsChannel))
	}
	if app.Config.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(app.Config.AMQPURL, app.Config.AMQPExchange)
		if err != nil {
			app.Logger.Warn("AMQP unavailable, events will not be sent there", logging.Err(err))
		} else {
			sinks = append(sinks, publisher)
			app.Logger.Info("Events: AMQP", logging.String("exchange", app.Config.AMQPExchange))
		}
	}

	if len(sinks) == 0 {
		app.Events = events.Noop{}
		return
	}
	app.Events = events.NewAsync(sinks, eventBuffer, eventTimeout)
}

func (app *App) initializeGate() error {
	app.Templates = templates.NewEngine(&templates.EngineConfig{
		OverrideDir:    app.Config.TemplateDir,
		CacheTemplates: true,
	})

	app.Gate = gate.New(
		app.Storage,
		app.Providers,
		app.Settings,
		app.Templates,
		app.Auth,
		gate.Config{
			CookieTTL:    app.Config.CookieTTL(),
			CookieDomain: app.Config.CookieDomain,
			CookieSecure: app.Config.CookieSecure,
		},
		gate.WithLocks(app.Locks),
		gate.WithEvents(app.Events),
	)
	return nil
}
