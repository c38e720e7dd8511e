package services

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// NewCronScheduler returns a cron scheduler using the standard five-field spec.
// Jobs that panic are recovered, and a job still running when its next
// activation fires is skipped.
func NewCronScheduler(log *slog.Logger) *cron.Cron {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))
	return cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}
