package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/onwatch/sentinel/internal/domain"
	"github.com/onwatch/sentinel/pkg/logger"
	"github.com/onwatch/sentinel/resilience"
)

// RedisQueue is a ZSET-backed DelayedQueue: the job id is the member,
// DueAt (unix seconds) is the score, and the payload lives in a
// parallel hash keyed by job id. Grounded on
// orchestration/redis_task_queue.go's Redis-list task queue, generalized
// from FIFO to due-time ordering because escalation jobs fire at a
// specific time rather than as soon as a worker is free.
type RedisQueue struct {
	client     *redis.Client
	zsetKey    string
	payloadKey string
	retry      *resilience.RetryConfig
	log        logger.Logger
}

func NewRedisQueue(client *redis.Client, keyPrefix string, log logger.Logger) *RedisQueue {
	if keyPrefix == "" {
		keyPrefix = "sentinel:escalation"
	}
	return &RedisQueue{
		client:     client,
		zsetKey:    keyPrefix + ":due",
		payloadKey: keyPrefix + ":payload",
		retry:      resilience.DefaultRetryConfig(),
		log:        log,
	}
}

func (q *RedisQueue) Schedule(ctx context.Context, job Job) error {
	return resilience.Retry(ctx, q.retry, func() error {
		pipe := q.client.TxPipeline()
		pipe.ZAdd(ctx, q.zsetKey, &redis.Z{Score: float64(job.DueAt.Unix()), Member: job.ID})
		pipe.HSet(ctx, q.payloadKey, job.ID, job.Payload)
		_, err := pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("queue: scheduling job %s: %w", job.ID, err)
		}
		return nil
	})
}

// due atomically pops the lowest-scored members up to now via a Lua
// script, so two workers polling concurrently never both claim the
// same job.
const duePopScript = `
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
if #ids == 0 then
	return {}
end
redis.call('ZREM', KEYS[1], unpack(ids))
return ids
`

func (q *RedisQueue) Due(ctx context.Context, max int) ([]Job, error) {
	var ids []string
	err := resilience.Retry(ctx, q.retry, func() error {
		res, err := q.client.Eval(ctx, duePopScript, []string{q.zsetKey}, strconv.FormatInt(time.Now().Unix(), 10), max).Result()
		if err != nil {
			return fmt.Errorf("queue: popping due jobs: %w", err)
		}
		raw, ok := res.([]interface{})
		if !ok {
			return nil
		}
		ids = make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
		return nil
	})
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	payloads, err := q.client.HMGet(ctx, q.payloadKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: fetching payloads: %w", err)
	}
	jobs := make([]Job, 0, len(ids))
	for i, id := range ids {
		var payload []byte
		if s, ok := payloads[i].(string); ok {
			payload = []byte(s)
		}
		jobs = append(jobs, Job{ID: id, Payload: payload})
	}
	if err := q.client.HDel(ctx, q.payloadKey, ids...).Err(); err != nil {
		q.log.Warn("queue: cleaning up popped payloads", "error", err)
	}
	return jobs, nil
}

func (q *RedisQueue) Cancel(ctx context.Context, id string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.zsetKey, id)
	pipe.HDel(ctx, q.payloadKey, id)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queue: canceling job %s: %w", id, err)
	}
	return nil
}

// CancelPrefix scans the full due set and removes every matching
// member. Escalation incidents carry at most RepeatCount*len(Levels)
// outstanding jobs, small enough that a full ZRANGE is cheap; this
// trades a Redis-side prefix index for simplicity.
func (q *RedisQueue) CancelPrefix(ctx context.Context, prefix string) error {
	ids, err := q.client.ZRange(ctx, q.zsetKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("queue: listing jobs for prefix cancel: %w", err)
	}
	var matched []string
	for _, id := range ids {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.zsetKey, toInterfaceSlice(matched)...)
	pipe.HDel(ctx, q.payloadKey, matched...)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queue: canceling jobs for prefix %s: %w", prefix, err)
	}
	return nil
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// EscalationJobID builds the canonical escalation job id.
func EscalationJobID(job *domain.EscalationJob) string {
	return fmt.Sprintf("escalation:%s:%d:%d", job.IncidentID, job.ToLevel, job.Cycle)
}
