package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tazhate/fintrack/config"
	"github.com/tazhate/fintrack/internal/clients/caldav"
	"github.com/tazhate/fintrack/internal/email"
	"github.com/tazhate/fintrack/internal/scheduler"
	"github.com/tazhate/fintrack/internal/server"
	"github.com/tazhate/fintrack/internal/service"
	"github.com/tazhate/fintrack/internal/storage"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	sender := email.NewSender(email.Config{
		Host:     cfg.SMTPHost,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	sched := scheduler.New(log, cfg.AppURL, cfg.SweepTime, store, store, store, sender, store)

	reminderSvc := service.NewReminderService(store, sched)
	transactionSvc := service.NewTransactionService(store)
	categorySvc := service.NewCategoryService(store)
	notificationSvc := service.NewNotificationService(store)

	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("start scheduler")
	}

	publishCalendar(log, cfg, store)

	srv := server.New(log, cfg.ListenAddr, store, sched,
		reminderSvc, transactionSvc, categorySvc, notificationSvc)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server")
		}
	}()

	log.Info().Msg("fintrack started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("stop HTTP server")
	}

	log.Info().Msg("fintrack stopped")
}

// publishCalendar mirrors the current schedule to an external CalDAV
// calendar when one is configured. Failures are logged and never block
// startup.
func publishCalendar(log zerolog.Logger, cfg *config.Config, store *storage.Storage) {
	client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUser, cfg.CalDAVPassword)
	if !client.IsConfigured() {
		return
	}
	client.SetCalendarID(cfg.CalDAVCalendarID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	reminders, err := store.ListActiveReminders()
	if err != nil {
		log.Error().Err(err).Msg("load reminders for CalDAV publish")
		return
	}
	if err := client.PublishAll(ctx, reminders, time.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("publish reminders to CalDAV")
		return
	}
	log.Info().Int("count", len(reminders)).Msg("published reminders to CalDAV")
}
