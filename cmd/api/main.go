package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/billing"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/config"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/httpx"
	kafkax "github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/kafka"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/postgres"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(log, cfg.KafkaBrokers, billing.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pPaid := kafkax.NewProducer(log, cfg.KafkaBrokers, billing.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pStockLow := kafkax.NewProducer(log, cfg.KafkaBrokers, billing.TopicStockLow, 256)
	pStockLow.Start(ctx)

	// Engine
	repo := billing.NewRepo(log, pool, cfg.DBAcquireTimeout)
	svc := billing.NewService(log, repo, nil)

	// HTTP
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Service:     svc,
		Redis:       rdb,
		Created:     pCreated,
		Paid:        pPaid,
		StockLow:    pStockLow,
		ServiceName: cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	pCreated.Close()
	pPaid.Close()
	pStockLow.Close()
	cancel()
	pCreated.WaitClosed()
	pPaid.WaitClosed()
	pStockLow.WaitClosed()
}
