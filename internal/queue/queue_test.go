package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/logger"
)

func TestEncode_TopicKeyAndHeaders(t *testing.T) {
	job := NewJob(Long, "customers.sync_all", "conn-1", "log-1", nil, time.Hour)

	msg, err := encode("storesync.jobs", job)
	require.NoError(t, err)

	assert.Equal(t, "storesync.jobs.long", msg.Topic)
	assert.Equal(t, []byte("customers.sync_all"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "log-1", string(msg.Headers[0].Value))

	decoded, err := Decode(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, time.Hour, decoded.Timeout)
	assert.Equal(t, "conn-1", decoded.ConnectorID)
}

func TestEncode_DefaultsToShortQueue(t *testing.T) {
	msg, err := encode("p", Job{Method: "customers.upsert"})
	require.NoError(t, err)
	assert.Equal(t, "p.short", msg.Topic)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte(`{`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"id":"x"}`))
	assert.EqualError(t, err, "job has no method")
}

func TestRun_AppliesTimeout(t *testing.T) {
	job := Job{Method: "slow", Timeout: 10 * time.Millisecond}

	err := Run(context.Background(), HandlerFunc(func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	}), job)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal_RunsJobsOutsideRequestContext(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	q := NewLocal(HandlerFunc(func(ctx context.Context, job Job) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mu.Lock()
		seen = append(seen, job.Method)
		mu.Unlock()
		return nil
	}), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, Job{Method: "a"}))
	require.NoError(t, q.Enqueue(ctx, Job{Method: "b"}))
	cancel()
	q.Wait()

	assert.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "p", logger.Nop())
	assert.Error(t, err)
}
