package app

import (
	"time"

	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/scheduler"
)

func (app *App) initializeScheduler() error {
	app.Scheduler = scheduler.New(app.Locks)

	jobs := []scheduler.Job{
		{
			Name:     scheduler.PurgeJob,
			Schedule: app.Config.PurgeSchedule,
			Run:      scheduler.PurgeJobFunc(app.Storage, time.Now),
		},
		{
			Name:     scheduler.OAuthRefreshJob,
			Schedule: app.Config.OAuthRefreshSchedule,
			Run:      scheduler.OAuthRefreshJobFunc(app.OAuthManager, app.oauthProviderIDs),
		},
	}
	for _, job := range jobs {
		if err := app.Scheduler.Add(job); err != nil {
			return err
		}
		app.Logger.Debug("Scheduled job",
			logging.String("job", job.Name),
			logging.String("schedule", job.Schedule),
		)
	}
	return nil
}
