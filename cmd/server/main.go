package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Praneeth-A/onebox/internal/classify"
	"github.com/Praneeth-A/onebox/internal/config"
	"github.com/Praneeth-A/onebox/internal/imap"
	"github.com/Praneeth-A/onebox/internal/notify"
	"github.com/Praneeth-A/onebox/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewConnection(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	emailStore := store.NewPostgresStore(pool)
	classifier := classify.NewHTTPClassifier(cfg.ClassifierURL)

	var notifiers []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL))
	}

	processor := imap.NewProcessor(emailStore, classifier, notifiers, log)
	orchestrator := imap.NewOrchestrator(emailStore, processor, imap.SupervisorOptions{
		BackfillWindow:  cfg.BackfillWindow,
		KeepAlivePeriod: cfg.KeepAlivePeriod,
		ReconnectDelay:  cfg.ReconnectDelay,
	}, log)

	if err := orchestrator.Start(ctx, cfg.Accounts); err != nil {
		log.WithError(err).Fatal("Failed to start sync orchestrator")
	}

	log.WithField("accounts", len(cfg.Accounts)).Info("Onebox sync engine started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.WithField("signal", sig.String()).Info("Shutting down")
	cancel()
}
