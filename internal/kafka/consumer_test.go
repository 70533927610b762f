package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

// fakeSource menyuplai pesan dari slice lalu EOF; mencatat offset yang
// di-commit.
type fakeSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	next      int
	committed []int64
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.msgs) {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[f.next]
	f.next++
	return m, nil
}

func (f *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) committedOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.committed))
	copy(out, f.committed)
	return out
}

func TestConsumer_CommitsOnlyAfterHandlerSuccess(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("ok")},
		{Offset: 2, Value: []byte("boom")},
		{Offset: 3, Value: []byte("ok")},
	}}
	c := &Consumer{src: src, topic: "t", workers: 1}

	err := c.Start(context.Background(), func(ctx context.Context, m kafka.Message) error {
		if string(m.Value) == "boom" {
			return errors.New("handler failed")
		}
		return nil
	})
	if !errors.Is(err, io.EOF) {
		t.Fatalf("start exit = %v, want EOF from source", err)
	}

	got := src.committedOffsets()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("committed offsets = %v, want [1 3]", got)
	}
}

func TestConsumer_StopsCleanlyOnCancel(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{{Offset: 1, Value: []byte("ok")}}}
	c := &Consumer{src: src, topic: "t", workers: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Start(ctx, func(ctx context.Context, m kafka.Message) error { return nil }); err != nil {
		t.Fatalf("start after cancel = %v, want nil", err)
	}
}
