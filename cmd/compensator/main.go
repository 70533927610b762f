package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-order-saga.git/internal/compensator"
	"github.com/ariefcatur/go-order-saga.git/internal/config"
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

	// Redis (dedup event)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &compensator.Service{
		Orders:      saga.NewOrdersClient(cfg.OrdersAPIURL, cfg.ServiceToken),
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-compensator",
	}

	group := getenv("COMPENSATOR_GROUP", "compensator-svc")
	workers := mustAtoi(os.Getenv("COMPENSATOR_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicCompensation, workers)

	go func() {
		log.Printf("compensator consumer started: group=%s topic=%s workers=%d",
			group, orders.TopicCompensation, workers)
		if err := cons.Start(ctx, svc.HandleCompensationRequested); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
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

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
