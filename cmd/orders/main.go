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
	"github.com/ariefcatur/go-order-saga.git/internal/customers"
	"github.com/ariefcatur/go-order-saga.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-saga.git/internal/kafka"
	"github.com/ariefcatur/go-order-saga.git/internal/orders"
	"github.com/ariefcatur/go-order-saga.git/internal/postgres"
	"github.com/ariefcatur/go-order-saga.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers per lifecycle topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pConfirmed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderConfirmed, 1024)
	pConfirmed.Start(ctx)
	pCanceled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCanceled, 1024)
	pCanceled.Start(ctx)

	// Repo & handler
	repo := &orders.Repo{DB: db}
	idem := &orders.IdemRepo{DB: db, Lease: cfg.IdemLease}
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Repo:      repo,
		Confirm:   &orders.ConfirmService{Orders: repo, Idem: idem},
		Customers: customers.NewClient(cfg.CustomersAPIURL, cfg.ServiceToken),
		Producers: httpx.LifecycleProducers{
			Created:   pCreated,
			Confirmed: pConfirmed,
			Canceled:  pCanceled,
		},
		Redis:   rdb,
		Service: cfg.ServiceName,
	}
	oh.Register(router, httpx.RequireBearer(cfg.ServiceToken))

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range []*kafkax.Producer{pCreated, pConfirmed, pCanceled} {
		p.Close() // tutup inbox -> flush & close writer
	}
	for _, p := range []*kafkax.Producer{pCreated, pConfirmed, pCanceled} {
		p.WaitClosed()
	}
	cancel()
}
