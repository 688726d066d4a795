package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-rental-ws/internal/bootstrap"
	"go-rental-ws/internal/config"
	"go-rental-ws/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const perOrderTimeout = 15 * time.Second

// The poller catches payments whose webhook never arrived. It runs as its own
// process so the API server stays free of schedulers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", false).WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.JSON)

	c, err := bootstrap.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Startup failed")
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err = scheduler.AddFunc(cfg.Poller.Schedule, func() {
		started := time.Now()
		synced, failed := c.Notifications.SyncStale(ctx, started.Add(-cfg.Poller.StaleAfter), cfg.Poller.BatchSize, perOrderTimeout)
		log.WithFields(logrus.Fields{
			"synced":   synced,
			"failed":   failed,
			"duration": time.Since(started).String(),
		}).Info("Stale order sweep finished")
	})
	if err != nil {
		log.WithError(err).WithField("schedule", cfg.Poller.Schedule).Fatal("Invalid poller schedule")
	}

	scheduler.Start()
	log.WithField("schedule", cfg.Poller.Schedule).Info("Poller started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Stopping poller...")
	cancel()
	<-scheduler.Stop().Done()
	log.Info("Poller exited")
}
