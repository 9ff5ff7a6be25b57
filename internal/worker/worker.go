package worker

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/queue"
)

// Worker consumes the short and long job queues from Kafka.
type Worker struct {
	config  *config.Config
	logger  *logger.Logger
	readers []*kafka.Reader
	handler queue.Handler
	wg      sync.WaitGroup
}

func New(cfg *config.Config, logger *logger.Logger, handler queue.Handler) *Worker {
	var readers []*kafka.Reader
	for _, name := range []string{queue.Short, queue.Long} {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.KafkaBrokers,
			GroupID:        cfg.KafkaTopicPrefix + "-worker",
			Topic:          queue.TopicName(cfg.KafkaTopicPrefix, name),
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			MaxWait:        time.Second,
			CommitInterval: time.Second,
		}))
	}

	return &Worker{
		config:  cfg,
		logger:  logger,
		readers: readers,
		handler: handler,
	}
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening for jobs...")

	for _, reader := range w.readers {
		w.wg.Add(1)
		go func(reader *kafka.Reader) {
			defer w.wg.Done()
			w.consume(ctx, reader)
		}(reader)
	}
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, reader *kafka.Reader) {
	topic := reader.Config().Topic
	for {
		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to read message from %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		w.logger.Debug("Received message on %s: %s", topic, string(message.Key))

		if err := w.process(ctx, message.Value); err != nil {
			w.logger.Error("Failed to process job: %v", err)
			continue
		}
	}
}

// process runs one encoded job. Failures are reported on the job's
// integration log; the message is not redelivered.
func (w *Worker) process(ctx context.Context, value []byte) error {
	job, err := queue.Decode(value)
	if err != nil {
		return err
	}
	if err := queue.Run(ctx, w.handler, job); err != nil {
		return err
	}
	w.logger.Debug("Job %s (%s) processed successfully", job.ID, job.Method)
	return nil
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	for _, reader := range w.readers {
		if err := reader.Close(); err != nil {
			w.logger.Error("Failed to close reader: %v", err)
		}
	}
}
