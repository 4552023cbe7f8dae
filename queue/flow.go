package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Enqueuer is the slice of asynq.Client the flow producer needs. Tests swap in
// a recording fake.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scripter abstracts the minimal Redis surface the completion tracker needs.
// Implementations may wrap github.com/redis/go-redis/v9 or any equivalent.
type Scripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

type goRedisScripter struct {
	client redis.Scripter
}

// NewScripter adapts a go-redis client to the Scripter interface.
func NewScripter(client redis.Scripter) Scripter {
	return goRedisScripter{client: client}
}

func (s goRedisScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return s.client.Eval(ctx, script, keys, args...).Result()
}

// RetryPolicy carries the enqueue-time retry knobs applied to every task the
// producer submits.
type RetryPolicy struct {
	Attempts  int
	Timeout   time.Duration
	Retention time.Duration
}

// flowRegisterScript records a new flow: the number of children still pending
// and the parent payload to enqueue once they all settle. A flow already in
// flight for the same parent keeps its original registration.
// Returns 1 if registered, 0 if the flow already existed.
const flowRegisterScript = `
local pendingKey = KEYS[1]
local payloadKey = KEYS[2]
local children = tonumber(ARGV[1])
local ttlSeconds = tonumber(ARGV[2])
if redis.call('SETNX', pendingKey, children) == 1 then
  redis.call('EXPIRE', pendingKey, ttlSeconds)
  redis.call('SET', payloadKey, ARGV[3], 'EX', ttlSeconds)
  return 1
end
return 0
`

// flowSettleScript marks one child settled and decrements the pending count.
// The per-child SETNX marker makes settlement idempotent: at-least-once
// redelivery of the same child cannot decrement twice. When the count reaches
// zero the flow keys are torn down and the parent payload is returned so the
// caller can enqueue it. Returns {fired, payload}.
const flowSettleScript = `
local markerKey = KEYS[1]
local pendingKey = KEYS[2]
local payloadKey = KEYS[3]
local ttlSeconds = tonumber(ARGV[1])
if redis.call('SETNX', markerKey, 1) == 0 then
  return {0, ''}
end
redis.call('EXPIRE', markerKey, ttlSeconds)
local remaining = redis.call('DECR', pendingKey)
if remaining > 0 then
  return {0, ''}
end
local payload = redis.call('GET', payloadKey)
redis.call('DEL', pendingKey, payloadKey)
if not payload then
  return {0, ''}
end
return {1, payload}
`

func flowPendingKey(parentID string) string { return fmt.Sprintf("flow:%s:pending", parentID) }
func flowPayloadKey(parentID string) string { return fmt.Sprintf("flow:%s:payload", parentID) }
func flowMarkerKey(parentID, childID string) string {
	return fmt.Sprintf("flow:%s:settled:%s", parentID, childID)
}

// FlowProducer submits parent-after-children flows: a wallet's credential
// issuance jobs as children and its loyalty refresh as the parent, which is
// enqueued only after every child has settled. The runner itself has no flow
// primitive, so completion is tracked in Redis alongside the queues.
type FlowProducer struct {
	enqueuer Enqueuer
	scripter Scripter
	policy   RetryPolicy
	flowTTL  time.Duration
	logger   *slog.Logger
}

// NewFlowProducer wires a producer over the runner client and the shared Redis
// instance. flowTTL bounds the lifetime of orphaned flow state; choose a
// duration comfortably larger than the maximum retry window.
func NewFlowProducer(enqueuer Enqueuer, scripter Scripter, policy RetryPolicy, flowTTL time.Duration, logger *slog.Logger) *FlowProducer {
	if flowTTL <= 0 {
		flowTTL = 24 * time.Hour
	}
	if policy.Attempts <= 0 {
		policy.Attempts = 5
	}
	if policy.Timeout <= 0 {
		policy.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FlowProducer{
		enqueuer: enqueuer,
		scripter: scripter,
		policy:   policy,
		flowTTL:  flowTTL,
		logger:   logger,
	}
}

func (p *FlowProducer) taskOptions(id, queueName string) []asynq.Option {
	opts := []asynq.Option{
		asynq.TaskID(id),
		asynq.Queue(queueName),
		// MaxRetry counts retries after the first attempt.
		asynq.MaxRetry(p.policy.Attempts - 1),
		asynq.Timeout(p.policy.Timeout),
	}
	if p.policy.Retention > 0 {
		opts = append(opts, asynq.Retention(p.policy.Retention))
	}
	return opts
}

// Dispatch submits one wallet's flow. With no children the parent is enqueued
// directly; otherwise the flow is registered first so a crash between child
// enqueues leaves a resumable registration, then every child is enqueued.
// Task-ID conflicts are dedupe no-ops, not errors.
func (p *FlowProducer) Dispatch(ctx context.Context, parent LoyaltyJob, children []CredentialJob) error {
	parentID := LoyaltyTaskID(parent.Wallet)
	if len(children) == 0 {
		return p.EnqueueLoyaltyRefresh(ctx, parent)
	}

	payload, err := json.Marshal(parent)
	if err != nil {
		return fmt.Errorf("queue: encode flow parent for %s: %w", parent.Wallet, err)
	}
	keys := []string{flowPendingKey(parentID), flowPayloadKey(parentID)}
	registered, err := p.scripter.Eval(ctx, flowRegisterScript, keys,
		len(children), int(p.flowTTL.Seconds()), string(payload))
	if err != nil {
		return fmt.Errorf("queue: register flow %s: %w", parentID, err)
	}
	if asInt(registered) == 0 {
		p.logger.Info("flow already registered", "parent", parentID)
	}

	for _, child := range children {
		child.ParentID = parentID
		task, err := NewCredentialTask(child)
		if err != nil {
			return err
		}
		_, err = p.enqueuer.EnqueueContext(ctx, task, p.taskOptions(child.ID, QueueCredentials)...)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			p.logger.Info("credential job already queued", "id", child.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("queue: enqueue credential job %s: %w", child.ID, err)
		}
	}
	return nil
}

// EnqueueLoyaltyRefresh submits a bare loyalty refresh for the wallet, outside
// any flow. Used directly by the loyalty-pass batch route.
func (p *FlowProducer) EnqueueLoyaltyRefresh(ctx context.Context, parent LoyaltyJob) error {
	task, err := NewLoyaltyTask(parent)
	if err != nil {
		return err
	}
	id := LoyaltyTaskID(parent.Wallet)
	_, err = p.enqueuer.EnqueueContext(ctx, task, p.taskOptions(id, QueueLoyalty)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		p.logger.Info("loyalty refresh already queued", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("queue: enqueue loyalty refresh %s: %w", id, err)
	}
	return nil
}

// ChildSettled records a terminal outcome for one child of a flow. When the
// last child settles, the stored parent is enqueued. Calling it again for the
// same child is a no-op.
func (p *FlowProducer) ChildSettled(ctx context.Context, parentID, childID string) error {
	keys := []string{flowMarkerKey(parentID, childID), flowPendingKey(parentID), flowPayloadKey(parentID)}
	result, err := p.scripter.Eval(ctx, flowSettleScript, keys, int(p.flowTTL.Seconds()))
	if err != nil {
		return fmt.Errorf("queue: settle child %s of %s: %w", childID, parentID, err)
	}
	fired, payload := decodeSettleReply(result)
	if !fired {
		return nil
	}

	var parent LoyaltyJob
	if err := json.Unmarshal([]byte(payload), &parent); err != nil {
		return fmt.Errorf("queue: decode flow parent %s: %w", parentID, err)
	}
	p.logger.Info("flow complete, enqueueing parent", "parent", parentID, "wallet", parent.Wallet)
	return p.EnqueueLoyaltyRefresh(ctx, parent)
}

// decodeSettleReply unpacks the {fired, payload} array the settle script
// returns. Redis hands integers back as int64 and strings as string, but a
// fake Scripter may use plain ints.
func decodeSettleReply(reply interface{}) (bool, string) {
	pair, ok := reply.([]interface{})
	if !ok || len(pair) != 2 {
		return false, ""
	}
	if asInt(pair[0]) != 1 {
		return false, ""
	}
	payload, _ := pair[1].(string)
	return payload != "", payload
}

func asInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
