package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEventEncoder_EncodeComparison(t *testing.T) {
	c := &domain.Comparison{
		ID:             uuid.New(),
		Best:           3,
		Recommendation: "Product 3 is a great choice.",
		ModelVersion:   "m+s",
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := range c.Products {
		c.Products[i] = domain.NewProductRating(i+1, domain.DefaultFeatureVector(), float64(i)+0.25)
	}

	data, err := NewEventEncoder().EncodeComparison(c)
	require.NoError(t, err)

	var event structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &event))

	m := event.AsMap()
	assert.Equal(t, c.ID.String(), m["comparison_id"])
	assert.EqualValues(t, 3, m["best_product"])
	assert.Equal(t, "2026-03-01T12:00:00Z", m["created_at"])

	products, ok := m["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 3)

	third := products[2].(map[string]any)
	assert.EqualValues(t, 3, third["number"])
	assert.Equal(t, "2.25", third["rounded"])
	features := third["features"].(map[string]any)
	assert.EqualValues(t, 250, features["calories"])
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.True(t, isRetryableError(errors.New("dial tcp: Connection Refused")))
	assert.True(t, isRetryableError(errors.New("read: i/o timeout")))
	assert.False(t, isRetryableError(errors.New("message too large")))
}

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []*usecase.OutboxEvent
	processed []int64
	failed    []int64
}

func (f *fakeOutbox) Create(context.Context, *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	return nil, errors.New("not used")
}

func (f *fakeOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := min(limit, len(f.pending))
	batch := f.pending[:n]
	f.pending = f.pending[n:]
	return batch, nil
}

func (f *fakeOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutbox) MarkAsFailed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

type fakeProducer struct {
	keys []string
	errs map[int]error // по номеру вызова
}

func (p *fakeProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	p.keys = append(p.keys, req.Key)
	return p.errs[len(p.keys)]
}

func events(n int) []*usecase.OutboxEvent {
	out := make([]*usecase.OutboxEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := usecase.NewOutboxEvent(usecase.ComparisonCreated, uuid.New(), []byte("x"))
		ev.ID = int64(i + 1)
		out = append(out, ev)
	}
	return out
}

func TestOutboxWorker_DrainSendsAllBatches(t *testing.T) {
	repo := &fakeOutbox{pending: events(5)}
	producer := &fakeProducer{}
	w := NewOutboxWorker(repo, logger.NewNop(), producer, 2, 0, "outbox_pending", "")

	w.drain(context.Background())

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, repo.processed)
	assert.Empty(t, repo.failed)
	assert.Len(t, producer.keys, 5)
}

func TestOutboxWorker_PermanentErrorSkipsEvent(t *testing.T) {
	repo := &fakeOutbox{pending: events(3)}
	producer := &fakeProducer{errs: map[int]error{2: errors.New("message too large")}}
	w := NewOutboxWorker(repo, logger.NewNop(), producer, 10, 0, "outbox_pending", "")

	hasMore, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Equal(t, []int64{1, 3}, repo.processed)
	assert.Equal(t, []int64{2}, repo.failed)
}

func TestOutboxWorker_RetryableErrorRequeuesRest(t *testing.T) {
	repo := &fakeOutbox{pending: events(4)}
	producer := &fakeProducer{errs: map[int]error{2: errors.New("broker not available")}}
	w := NewOutboxWorker(repo, logger.NewNop(), producer, 10, 0, "outbox_pending", "")

	hasMore, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Equal(t, []int64{1}, repo.processed)
	assert.Equal(t, []int64{2, 3, 4}, repo.failed)
	assert.Len(t, producer.keys, 2)
}

func TestOutboxWorker_ListenerRetriesAfterFailedInitialConnect(t *testing.T) {
	w := NewOutboxWorker(&fakeOutbox{}, logger.NewNop(), &fakeProducer{}, 10, 0, "outbox_pending", "")
	w.reconnectDelay = time.Millisecond

	var attempts atomic.Int32
	w.connect = func(context.Context, string) (*pgx.Conn, error) {
		attempts.Add(1)
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.listenOutboxNotifications(ctx)
	}()

	require.Eventually(t, func() bool { return attempts.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after context cancellation")
	}
}
