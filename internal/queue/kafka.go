package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"storesync/internal/logger"
)

// Producer publishes jobs to Kafka, one topic per queue. Jobs are keyed by
// method so a method's jobs land on one partition.
type Producer struct {
	writer *kafka.Writer
	prefix string
	logger *logger.Logger
}

func NewProducer(brokers []string, prefix string, logger *logger.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no Kafka brokers configured")
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
		prefix: prefix,
		logger: logger,
	}, nil
}

func (p *Producer) Enqueue(ctx context.Context, job Job) error {
	msg, err := encode(p.prefix, job)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", job.Method, err)
	}
	p.logger.Debug("Enqueued job %s (%s) on %s", job.ID, job.Method, msg.Topic)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(prefix string, job Job) (kafka.Message, error) {
	if job.Queue == "" {
		job.Queue = Short
	}
	value, err := json.Marshal(job)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode job: %w", err)
	}
	return kafka.Message{
		Topic: TopicName(prefix, job.Queue),
		Key:   []byte(job.Method),
		Value: value,
		Headers: []kafka.Header{
			{Key: "request_id", Value: []byte(job.RequestID)},
		},
	}, nil
}

// Decode reads a job back from a Kafka message value.
func Decode(value []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode job: %w", err)
	}
	if job.Method == "" {
		return Job{}, errors.New("job has no method")
	}
	return job, nil
}
