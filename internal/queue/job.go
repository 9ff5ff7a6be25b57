// Package queue carries background jobs from the API to the worker.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Queue names. Webhook jobs go to Short, full imports to Long.
const (
	Short = "short"
	Long  = "long"
)

// Job is one unit of background work. RequestID names the integration log
// the job reports to.
type Job struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Method      string          `json:"method"`
	ConnectorID string          `json:"connector_id"`
	RequestID   string          `json:"request_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timeout     time.Duration   `json:"timeout"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

func NewJob(queueName, method, connectorID, requestID string, payload []byte, timeout time.Duration) Job {
	return Job{
		ID:          uuid.NewString(),
		Queue:       queueName,
		Method:      method,
		ConnectorID: connectorID,
		RequestID:   requestID,
		Payload:     json.RawMessage(payload),
		Timeout:     timeout,
		EnqueuedAt:  time.Now().UTC(),
	}
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

type Handler interface {
	Handle(ctx context.Context, job Job) error
}

type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Run calls h with the job's timeout applied to ctx.
func Run(ctx context.Context, h Handler, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	return h.Handle(ctx, job)
}

// TopicName is the Kafka topic backing a queue.
func TopicName(prefix, queueName string) string {
	return prefix + "." + queueName
}
