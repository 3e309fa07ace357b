package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	notificationWait = 30 * time.Second
	reconnectDelay   = 2 * time.Second
)

// OutboxWorker публикует события outbox в Kafka. Новые события приходят через LISTEN/NOTIFY,
// возвращённые в очередь после ошибки подбираются периодическим опросом.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	batchSize int
	poll      time.Duration
	channel   string
	dbConnStr string
	wg        sync.WaitGroup
	mu        sync.Mutex // один drain за раз

	connect        func(ctx context.Context, connStr string) (*pgx.Conn, error)
	reconnectDelay time.Duration
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	batchSize int,
	poll time.Duration,
	channel string,
	dbConnStr string,
) *OutboxWorker {
	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		batchSize: max(batchSize, 1),
		poll:      poll,
		channel:   channel,
		dbConnStr: dbConnStr,

		connect:        pgx.Connect,
		reconnectDelay: reconnectDelay,
	}
}

// Start запускает воркер. Для остановки отмените ctx и вызовите Wait.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	// Запускаем слушатель уведомлений
	go func() {
		defer w.wg.Done()
		w.listenOutboxNotifications(ctx)
	}()
}

// Wait дожидается завершения горутин воркера.
func (w *OutboxWorker) Wait() {
	w.wg.Wait()
}

func (w *OutboxWorker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	if w.poll <= 0 {
		<-ctx.Done()
		w.logger.Infof("Outbox worker stopped by context cancellation")
		return
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Outbox worker stopped by context cancellation")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	var conn *pgx.Conn
	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	subscribe := func() error {
		c, err := w.connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err := c.Exec(ctx, "LISTEN "+pgx.Identifier{w.channel}.Sanitize()); err != nil {
			_ = c.Close(ctx)
			return e.Wrap("failed to LISTEN", err)
		}

		conn = c
		w.logger.Infof("Subscribed to '%s' channel", w.channel)
		return nil
	}

	// Без подписки события подбирает опрос, пока переподключение не удастся
	if err := subscribe(); err != nil {
		w.logger.Warnf("Initial LISTEN failed, will retry: %v", err)
	}

	for ctx.Err() == nil {
		if conn == nil {
			if !sleepCtx(ctx, w.reconnectDelay) {
				return
			}
			if err := subscribe(); err != nil {
				w.logger.Warnf("Reconnect failed: %v", err)
			}
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, notificationWait)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
			_ = conn.Close(context.Background())
			conn = nil
			continue
		}

		if notif != nil && notif.Channel == w.channel {
			w.logger.Debugf("Received outbox notification, draining outbox events")
			w.drain(ctx)
		}
	}
}

// drain обрабатывает батчи, пока outbox не опустеет.
func (w *OutboxWorker) drain(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ctx.Err() == nil {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

// processBatch отправляет один батч. hasMore == false, если очередь пуста
// или все события батча завершились ошибкой (их подберёт следующий опрос).
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	sent := 0
	for i, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			w.logger.Warnf("Outbox event %s not sent: %v", event.EventID, err)
			if isRetryableError(err) {
				// брокер недоступен: возвращаем в очередь весь остаток батча
				w.markFailed(ctx, events[i:])
				return false, nil
			}
			w.markFailed(ctx, events[i:i+1])
			continue
		}
		sent++
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	return sent > 0, nil
}

func (w *OutboxWorker) markFailed(ctx context.Context, events []*usecase.OutboxEvent) {
	for _, event := range events {
		if err := w.repo.MarkAsFailed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark failed failed: %v", err)
		}
	}
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	req := usecase.NewWriteRawMessageReq(event.ComparisonID.String(), event.Payload)
	if err := w.producer.WriteRawMessage(ctx, req); err != nil {
		if isRetryableError(err) {
			return e.Wrap("Temporary Kafka failure, will retry", err)
		}
		return e.Wrap("Permanent Kafka failure", err)
	}
	return nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
