package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// Task types handled by the worker.
const (
	TypeCacheInvalidate = "catalog:cache:invalidate"
	TypeCacheWarm       = "catalog:cache:warm"
)

// DefaultQueue is the asynq queue catalog maintenance tasks run on.
const DefaultQueue = "catalog"

// InvalidatePayload describes why the catalog cache is being dropped.
type InvalidatePayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requestedAt"`
	Warm        bool      `json:"warm"`
}

// NewInvalidateTask builds a cache invalidation task. When warm is set the
// worker reloads the primary source right after dropping the cache.
func NewInvalidateTask(reason string, warm bool, now time.Time) (*asynq.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual"
	}
	payload, err := json.Marshal(InvalidatePayload{Reason: reason, RequestedAt: now.UTC(), Warm: warm})
	if err != nil {
		return nil, fmt.Errorf("encode invalidate payload: %w", err)
	}
	return asynq.NewTask(TypeCacheInvalidate, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewWarmTask builds a cache warming task.
func NewWarmTask() *asynq.Task {
	return asynq.NewTask(TypeCacheWarm, nil, asynq.MaxRetry(2), asynq.Timeout(time.Minute))
}

func decodeInvalidate(data []byte) (InvalidatePayload, error) {
	var p InvalidatePayload
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode invalidate payload: %v: %w", err, asynq.SkipRetry)
	}
	return p, nil
}

// Enqueuer publishes catalog maintenance tasks.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
	Now    func() time.Time
}

// Invalidate schedules a cache invalidation. Duplicate requests within a
// short window collapse into one task.
func (e Enqueuer) Invalidate(ctx context.Context, reason string, warm bool) (*asynq.TaskInfo, error) {
	if e.Client == nil {
		return nil, errors.New("jobs: asynq client not configured")
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	task, err := NewInvalidateTask(reason, warm, now())
	if err != nil {
		return nil, err
	}
	info, err := e.Client.EnqueueContext(ctx, task, asynq.Queue(e.queue()), asynq.Unique(10*time.Second))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", TypeCacheInvalidate, err)
	}
	return info, nil
}

func (e Enqueuer) queue() string {
	if strings.TrimSpace(e.Queue) == "" {
		return DefaultQueue
	}
	return e.Queue
}

// RegisterSchedule adds periodic cache warming to s.
func RegisterSchedule(s *asynq.Scheduler, interval time.Duration, queue string) (string, error) {
	if interval <= 0 {
		return "", nil
	}
	if strings.TrimSpace(queue) == "" {
		queue = DefaultQueue
	}
	return s.Register(fmt.Sprintf("@every %s", interval), NewWarmTask(), asynq.Queue(queue))
}
