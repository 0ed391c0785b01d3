package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/pkg/logger"
)

// mailer consumes queued order confirmations and sends them through Resend.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}

	emailCfg := cfg.Email()
	notify.LogDiagnostics(log, notify.Diagnose(emailCfg, config.NotifierKafka))

	var mailer notify.Mailer = notify.NewDisabledMailer(log)
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewBreakerMailer(notify.NewResendMailer(emailCfg, log), cfg.Breaker("resend"), log)
	}

	worker := notify.NewWorker(mailer, log, cfg.KafkaTopic, cfg.KafkaGroupID, cfg.KafkaBrokers...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("mailer consuming", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
		worker.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down mailer...")
	cancel()
	<-done
	worker.Close()
	log.Info("mailer stopped")
}
