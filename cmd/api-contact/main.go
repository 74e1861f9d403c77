package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	dapr "github.com/dapr/go-sdk/client"
	"github.com/sirupsen/logrus"

	"contact-api/internal/app"
	"contact-api/internal/config"
	"contact-api/internal/logging"
	"contact-api/internal/notifier"
	"contact-api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	tp, err := telemetry.InitTracing(cfg.ServiceName, cfg.ServiceVersion, cfg.TracingStdout)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := telemetry.ShutdownTracing(context.Background(), tp); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	var transport notifier.Transport
	if cfg.Delivery.Transport == config.TransportDapr {
		client, err := dapr.NewClient()
		if err != nil {
			log.Fatalf("Failed to create dapr client: %v", err)
		}
		defer client.Close()
		transport = notifier.NewDaprTransport(client, cfg.Delivery.DaprBinding)
	}

	logger.WithFields(logrus.Fields{
		"transport": cfg.Delivery.Transport,
		"smtp_addr": cfg.Delivery.SMTPAddr(),
		"email_to":  cfg.Delivery.To,
	}).Info("Delivery configured")

	application := app.Build(&app.Config{
		ServiceName: cfg.ServiceName,
		Listen:      cfg.Listen,
		Logger:      logger,
		GinMode:     cfg.GinMode,
		Delivery:    &cfg.Delivery,
		Transport:   transport,
	})

	go func() {
		if err := application.Run(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
