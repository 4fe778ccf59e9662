package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"order-service/handlers"
	"order-service/internal/auth"
	"order-service/internal/consul"
	"order-service/internal/mailer"
	"order-service/internal/orders"
	"order-service/internal/payments"
	"order-service/internal/stores/kafka"
	"order-service/internal/stores/postgres"
	"order-service/pkg/logkey"

	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	if err := startApp(); err != nil {
		slog.Error("failed to start service", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	// Database
	db, err := postgres.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	orderConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}

	// Kafka producer; event publication is best-effort, so a missing
	// broker config only disables it.
	var producer orders.EventProducer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err := kafka.NewConf(brokers)
		if err != nil {
			return err
		}
		defer kafkaConf.Close()
		producer = kafkaConf
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	// Notification dispatcher
	sender, err := mailer.NewSMTPMailer(
		os.Getenv("SMTP_HOST"),
		os.Getenv("SMTP_PORT"),
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
		os.Getenv("SMTP_FROM"),
	)
	if err != nil {
		return err
	}

	confirmer, err := orders.NewConfirmer(orderConf, sender, producer, os.Getenv("OPERATOR_EMAIL"))
	if err != nil {
		return err
	}

	// Payment gateway
	gateway, err := payments.NewStripeGateway(os.Getenv("STRIPE_SECRET_KEY"))
	if err != nil {
		return err
	}

	// Auth keys for the operator endpoints
	publicPEM, err := os.ReadFile(envOrDefault("AUTH_PUBLIC_KEY_FILE", "pubkey.pem"))
	if err != nil {
		return err
	}
	keys, err := auth.NewKeys(publicPEM)
	if err != nil {
		return err
	}

	port, err := strconv.Atoi(envOrDefault("APP_PORT", "8080"))
	if err != nil {
		return err
	}

	// Service registration; the rest of the platform discovers this
	// service through consul.
	if client, err := consul.CreateConsulClient(); err != nil {
		slog.Warn("consul unavailable, skipping registration", slog.String(logkey.ERROR, err.Error()))
	} else if err := consul.RegisterService(client, "orders", port); err != nil {
		slog.Warn("consul registration failed", slog.String(logkey.ERROR, err.Error()))
	}

	deliveryFee, err := strconv.ParseInt(envOrDefault("DELIVERY_FEE_CENTS", "250"), 10, 64)
	if err != nil {
		return err
	}

	cfg := handlers.Config{
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		DeliveryFee:   deliveryFee,
		Currency:      envOrDefault("CURRENCY", "eur"),
		SuccessURL:    os.Getenv("CHECKOUT_SUCCESS_URL"),
		CancelURL:     os.Getenv("CHECKOUT_CANCEL_URL"),
	}

	api := handlers.API(envOrDefault("ENDPOINT_PREFIX", "/orders"), keys, orderConf, confirmer, gateway, cfg)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      api,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting order service", slog.Int("port", port))
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		slog.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return err
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
