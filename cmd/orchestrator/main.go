package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-order-saga.git/internal/config"
	"github.com/ariefcatur/go-order-saga.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-saga.git/internal/kafka"
	"github.com/ariefcatur/go-order-saga.git/internal/orders"
	"github.com/ariefcatur/go-order-saga.git/internal/redisx"
	"github.com/ariefcatur/go-order-saga.git/internal/saga"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis: cache hasil saga (durable, shared antar instance)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka: antrian kompensasi yang gagal inline
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicCompensation, 1024)
	prod.Start(ctx)

	orch := &saga.Orchestrator{
		Orders: saga.NewOrdersClient(cfg.OrdersAPIURL, cfg.ServiceToken),
		Cache:  &saga.RedisCache{RDB: rdb},
		Queue:  &saga.KafkaCompensationQueue{Producer: prod, Service: cfg.ServiceName},
	}

	router := httpx.NewRouter()
	sh := &httpx.SagaHandler{Orch: orch}
	sh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
	cancel()
}
