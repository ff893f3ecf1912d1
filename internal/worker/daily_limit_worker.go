package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"fitora-backend/internal/app"
	"fitora-backend/internal/model"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/platform/rabbitmq"
)

// LimitGenerator recalculates one user's daily limits.
type LimitGenerator interface {
	Generate(ctx context.Context, userID uint) (*model.DailyLimit, bool, error)
}

// outcome of one delivery
type outcome int

const (
	ack outcome = iota
	drop
	retry
)

// DailyLimitWorker consumes recalculation jobs from RabbitMQ.
type DailyLimitWorker struct {
	conn      *amqp.Connection
	generator LimitGenerator
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDailyLimitWorker(conn *amqp.Connection, generator LimitGenerator, queueName string, log *logger.Logger) *DailyLimitWorker {
	return &DailyLimitWorker{
		conn:      conn,
		generator: generator,
		queueName: queueName,
		log:       log.With("component", "worker.DailyLimitWorker", "queue", queueName),
	}
}

func (w *DailyLimitWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("delivery channel closed")
					return
				}
				switch w.handle(workerCtx, d.Body, d.Redelivered) {
				case ack:
					_ = d.Ack(false)
				case drop:
					_ = d.Nack(false, false)
				case retry:
					_ = d.Nack(false, true)
				}
			}
		}
	}()

	w.log.Info("worker started")
	return nil
}

// handle processes one job body. Bad payloads and users that can never be
// calculated are dropped; other failures are retried once.
func (w *DailyLimitWorker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	var job app.DailyLimitJob
	if err := json.Unmarshal(body, &job); err != nil || job.UserID == 0 {
		w.log.Error("decode daily limit job failed", "body", string(body), "error", err)
		return drop
	}

	_, created, err := w.generator.Generate(ctx, job.UserID)
	switch {
	case err == nil:
		w.log.Info("daily limits recalculated", "user_id", job.UserID, "created", created)
		return ack
	case errors.Is(err, app.ErrUserNotFound), errors.Is(err, app.ErrProfileIncomplete):
		w.log.Warn("daily limit job skipped", "user_id", job.UserID, "error", err)
		return drop
	case redelivered:
		w.log.Error("daily limit job failed again, dropping", "user_id", job.UserID, "error", err)
		return drop
	default:
		w.log.Warn("daily limit job failed, requeueing", "user_id", job.UserID, "error", err)
		return retry
	}
}

func (w *DailyLimitWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
