package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

// messageSource: subset *kafka.Reader yang dipakai consumer; di-mock di test.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	src     messageSource
	topic   string
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit sinkron, bukan periodik
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{src: r, topic: topic, workers: workers}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.src.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)

	// workers
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					reportErr(errs, err)
					continue // offset TIDAK di-commit, event diproses ulang
				}
				// commit hanya setelah handler sukses
				if err := c.src.CommitMessages(ctx, m); err != nil {
					reportErr(errs, err)
				}
			}
		}()
	}

	// dispatcher loop. FetchMessage, bukan ReadMessage: ReadMessage
	// auto-commit di consumer group sebelum handler jalan.
	for {
		m, err := c.src.FetchMessage(ctx)
		if err != nil {
			close(jobs)
			wg.Wait()
			// kecilkan noise saat shutdown
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil
		}

		// non-blocking drain error agar tidak deadlock
		select {
		case e := <-errs:
			slog.Error("consumer worker error", "topic", c.topic, "error", e)
			time.Sleep(200 * time.Millisecond) // backoff ringan
		default:
		}
	}
}

// reportErr: non-blocking, channel penuh = drop; worker tidak boleh
// nge-block nungguin dispatcher.
func reportErr(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
