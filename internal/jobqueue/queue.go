// Package jobqueue is a redis-backed work queue with priority lanes and
// per-lane worker pools. Jobs move from a pending list to a processing
// list atomically; a sweeper requeues jobs stuck in processing after a
// crash.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"recoup/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix   = "job:"
	batchKeyPrefix = "job_batch:"
	statsKey       = "job_stats"

	DefaultMaxRetries = 3
	jobTTL            = 24 * time.Hour
)

// Queue manages background jobs across priority lanes.
type Queue struct {
	client   *redis.Client
	workers  map[Lane]int
	handlers map[JobType]Handler

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewQueue(client *redis.Client, cfg config.QueueSettings) *Queue {
	if client == nil {
		panic("redis client is required")
	}
	workers := map[Lane]int{
		LaneCritical:   cfg.CriticalWorkers,
		LaneWebhooks:   cfg.WebhookWorkers,
		LaneOperations: cfg.OperationWorkers,
		LaneDefault:    cfg.DefaultWorkers,
	}
	for lane, n := range workers {
		if n <= 0 {
			workers[lane] = 1
		}
	}
	return &Queue{
		client:   client,
		workers:  workers,
		handlers: make(map[JobType]Handler),
		stopCh:   make(chan struct{}),
	}
}

// Register binds a handler to a job type. All handlers must be registered
// before Start.
func (q *Queue) Register(jobType JobType, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start launches the per-lane worker pools and the stuck-job sweeper.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true

	for _, lane := range Lanes {
		for i := 0; i < q.workers[lane]; i++ {
			q.wg.Add(1)
			go q.worker(lane, i)
		}
		log.Printf("[jobqueue] lane %s: %d workers started", lane, q.workers[lane])
	}

	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, time.Minute)
}

// Stop drains the workers and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	log.Println("[jobqueue] all workers stopped")
}

func pendingKey(lane Lane) string    { return "job_queue:" + string(lane) }
func processingKey(lane Lane) string { return "job_processing:" + string(lane) }

// Enqueue adds a job to its lane. An empty batchID means the job is not
// part of a batch.
func (q *Queue) Enqueue(ctx context.Context, lane Lane, jobType JobType, batchID string, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Lane:       lane,
		BatchID:    batchID,
		Status:     JobStatusPending,
		Payload:    payload,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL)
	pipe.LPush(ctx, pendingKey(lane), job.ID)
	pipe.HIncrBy(ctx, statsKey, string(JobStatusPending), 1)
	if batchID != "" {
		pipe.SAdd(ctx, batchKeyPrefix+batchID, job.ID)
		pipe.Expire(ctx, batchKeyPrefix+batchID, jobTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job, nil
}

// CancelBatch flags every job of the batch so workers skip the remaining
// sub-units.
func (q *Queue) CancelBatch(ctx context.Context, batchID string) error {
	return q.client.Set(ctx, batchKeyPrefix+batchID+":cancelled", 1, jobTTL).Err()
}

func (q *Queue) batchCancelled(ctx context.Context, batchID string) bool {
	if batchID == "" {
		return false
	}
	n, err := q.client.Exists(ctx, batchKeyPrefix+batchID+":cancelled").Result()
	return err == nil && n > 0
}

func (q *Queue) worker(lane Lane, id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
			job, err := q.dequeue(ctx, lane)
			if err != nil {
				if err != redis.Nil {
					log.Printf("[jobqueue] lane %s worker %d: dequeue error: %v", lane, id, err)
					time.Sleep(time.Second)
				}
				continue
			}
			if job != nil {
				q.process(ctx, job)
			}
		}
	}
}

func (q *Queue) dequeue(ctx context.Context, lane Lane) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, pendingKey(lane), processingKey(lane), time.Second).Result()
	if err != nil {
		return nil, err
	}

	data, err := q.client.Get(ctx, jobKeyPrefix+id).Result()
	if err != nil {
		q.client.LRem(ctx, processingKey(lane), 1, id)
		return nil, fmt.Errorf("job data not found for %s", id)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		q.client.LRem(ctx, processingKey(lane), 1, id)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (q *Queue) process(ctx context.Context, job *Job) {
	defer q.client.LRem(ctx, processingKey(job.Lane), 1, job.ID)

	if q.batchCancelled(ctx, job.BatchID) {
		job.Status = JobStatusCancelled
		job.UpdatedAt = time.Now()
		q.update(ctx, job)
		return
	}

	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	job.MarkAsProcessing()
	q.update(ctx, job)

	var err error
	if !ok {
		err = fmt.Errorf("no handler registered for job type %s", job.Type)
	} else {
		err = handler(ctx, job)
	}

	if err != nil {
		log.Printf("[jobqueue] job %s (%s) failed: %v", job.ID, job.Type, err)
		job.MarkAsFailed(err.Error())
		if job.IsRetryable() {
			job.MarkAsRetrying()
			q.update(ctx, job)
			delay := time.Minute * time.Duration(job.RetryCount)
			time.AfterFunc(delay, func() {
				q.client.LPush(context.Background(), pendingKey(job.Lane), job.ID)
			})
			return
		}
		q.update(ctx, job)
		q.client.HIncrBy(ctx, statsKey, string(JobStatusFailed), 1)
		return
	}

	job.MarkAsCompleted()
	q.update(ctx, job)
	q.client.HIncrBy(ctx, statsKey, string(JobStatusCompleted), 1)
}

func (q *Queue) update(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Printf("[jobqueue] failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL).Err(); err != nil {
		log.Printf("[jobqueue] failed to update job %s: %v", job.ID, err)
	}
}

// stuckSweeper requeues jobs that sat in a processing list longer than
// maxAge, which happens when a worker died mid-job.
func (q *Queue) stuckSweeper(maxAge, interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			for _, lane := range Lanes {
				q.sweepLane(ctx, lane, maxAge)
			}
		}
	}
}

func (q *Queue) sweepLane(ctx context.Context, lane Lane, maxAge time.Duration) {
	ids, err := q.client.LRange(ctx, processingKey(lane), 0, -1).Result()
	if err != nil {
		log.Printf("[jobqueue] sweeper LRange error on %s: %v", lane, err)
		return
	}
	now := time.Now()
	for _, id := range ids {
		data, err := q.client.Get(ctx, jobKeyPrefix+id).Result()
		if err != nil {
			q.client.LRem(ctx, processingKey(lane), 1, id)
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			q.client.LRem(ctx, processingKey(lane), 1, id)
			continue
		}
		if job.Status != JobStatusProcessing {
			q.client.LRem(ctx, processingKey(lane), 1, id)
			continue
		}
		started := job.ProcessedAt
		if started == nil || started.IsZero() {
			tmp := job.UpdatedAt
			started = &tmp
		}
		if now.Sub(*started) > maxAge {
			log.Printf("[jobqueue] recovering stuck job %s (%s), age=%s", job.ID, job.Type, now.Sub(*started))
			job.Status = JobStatusPending
			job.ErrorMsg = "recovered by sweeper"
			job.UpdatedAt = now
			q.update(ctx, &job)
			q.client.LRem(ctx, processingKey(lane), 1, id)
			q.client.RPush(ctx, pendingKey(lane), id)
		}
	}
}

// GetJob fetches a job by id.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// PendingSize returns the number of queued jobs in a lane.
func (q *Queue) PendingSize(ctx context.Context, lane Lane) (int64, error) {
	return q.client.LLen(ctx, pendingKey(lane)).Result()
}
