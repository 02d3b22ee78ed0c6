package app

import (
	"context"
	"fmt"
	"sync"

	"CatalogWatcher/internal/logger"

	"github.com/robfig/cron/v3"
)

// cronParser accepts the standard 5-field expressions plus descriptors
// like @hourly.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return s, nil
}

// Watch runs Run on schedule until ctx is cancelled. A tick that fires
// while a run is still in progress is skipped. With runNow the first run
// starts immediately instead of at the first tick.
func (a *App) Watch(ctx context.Context, expr string, runNow bool) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	cl := cronLogger{log: a.log}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		if _, err := a.Run(ctx); err != nil {
			a.log.Error("Run failed", logger.Error(err))
		}
	}))

	c := cron.New(cron.WithParser(cronParser), cron.WithLogger(cl))
	c.Schedule(schedule, job)

	a.log.Info("Starting watch loop", logger.String("schedule", expr), logger.Bool("run_now", runNow))
	c.Start()

	var first sync.WaitGroup
	if runNow {
		first.Add(1)
		go func() {
			defer first.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	a.log.Info("Stopping watch loop, waiting for the running job")
	<-c.Stop().Done()
	first.Wait()
	return nil
}

// cronLogger routes cron's own logging through the structured logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
