package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/alerts"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/billing"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/config"
	kafkax "github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/kafka"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &alerts.Service{
		Log:         log,
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-stockwatch",
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch")
	workers := mustAtoi(os.Getenv("STOCKWATCH_WORKERS"), "4")
	cons := kafkax.NewConsumer(log, cfg.KafkaBrokers, group, billing.TopicStockLow, workers)

	go func() {
		log.Info("stockwatch consumer started", "group", group, "topic", billing.TopicStockLow, "workers", workers)
		if err := cons.Start(ctx, svc.HandleStockLow); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
