package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// Analyzer is the entrypoint the transport layer depends on. Both the
// Orchestrator and the queue-backed Dispatcher satisfy it.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// ErrDispatcherClosed indicates the dispatcher is no longer accepting work.
var ErrDispatcherClosed = errors.New("analysis: dispatcher closed")

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Dispatcher routes analysis work through a queue before invoking the
// orchestrator. This allows the system to point at LocalStack SQS during
// development and swap to AWS SQS in production without touching the HTTP
// handlers, and keeps the caller-facing call synchronous either way.
type Dispatcher struct {
	processor Analyzer
	queue     queueClient
	logger    *logging.Logger

	cfg dispatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending sync.Map // jobID -> chan dispatchResult
}

var _ Analyzer = (*Dispatcher)(nil)

const (
	defaultWorkers          = 2
	defaultReceiveWait      = 2  // seconds
	defaultReceiveMax       = 5  // messages
	maxReceiveWaitSeconds   = 20 // SQS limit
	maxReceiveBatchMessages = 10
)

type dispatcherConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*dispatcherConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait time for ReceiveMessage calls.
func WithReceiveWaitSeconds(seconds int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxReceiveWaitSeconds {
			seconds = maxReceiveWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize overrides how many messages each poll should return.
func WithReceiveBatchSize(size int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchMessages {
			size = maxReceiveBatchMessages
		}
		cfg.receiveBatchSize = size
	}
}

// NewDispatcher wires a queue-backed dispatcher around the supplied analyzer.
func NewDispatcher(processor Analyzer, queue queueClient, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if processor == nil {
		panic("analysis: processor cannot be nil")
	}
	if queue == nil {
		panic("analysis: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := dispatcherConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		processor: processor,
		queue:     queue,
		logger:    logger,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < cfg.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(i + 1)
	}

	return d
}

// Analyze enqueues the request and blocks until a worker completes it.
func (d *Dispatcher) Analyze(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	jobID := uuid.NewString()
	payload := jobPayload{ID: jobID, Request: req}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to encode job: %w", err)
	}

	resultCh := make(chan dispatchResult, 1)
	d.pending.Store(jobID, resultCh)
	defer d.pending.Delete(jobID)

	if err := d.queue.Send(ctx, string(body)); err != nil {
		return nil, fmt.Errorf("analysis: failed to enqueue job: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.result, res.err
	}
}

// Shutdown stops worker goroutines and notifies any pending callers.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	d.pending.Range(func(key, value any) bool {
		if ch, ok := value.(chan dispatchResult); ok {
			select {
			case ch <- dispatchResult{err: ErrDispatcherClosed}:
			default:
			}
		}
		d.pending.Delete(key)
		return true
	})

	return nil
}

func (d *Dispatcher) runWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("analysis dispatcher worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("analysis dispatcher worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := d.queue.Receive(d.ctx, d.cfg.receiveBatchSize, d.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("failed to receive analysis jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if len(messages) == 0 {
			continue
		}

		for _, msg := range messages {
			d.handleQueueMessage(msg)
		}
	}
}

func (d *Dispatcher) handleQueueMessage(msg queueMessage) {
	var payload jobPayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		d.logger.Error("failed to decode analysis job", "error", err)
		deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.queue.Delete(deleteCtx, msg.ReceiptHandle)
		return
	}

	result, err := d.processor.Analyze(d.ctx, payload.Request)

	deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if delErr := d.queue.Delete(deleteCtx, msg.ReceiptHandle); delErr != nil {
		d.logger.Error("failed to delete analysis job", "error", delErr)
	}

	d.deliverResult(payload.ID, result, err)
}

func (d *Dispatcher) deliverResult(jobID string, result *Result, err error) {
	value, ok := d.pending.Load(jobID)
	if !ok {
		d.logger.Debug("no waiting caller for analysis job", "job_id", jobID)
		return
	}

	ch, ok := value.(chan dispatchResult)
	if !ok {
		d.logger.Error("analysis dispatcher pending map corrupted", "job_id", jobID)
		d.pending.Delete(jobID)
		return
	}

	select {
	case ch <- dispatchResult{result: result, err: err}:
	default:
	}
}

type jobPayload struct {
	ID      string  `json:"id"`
	Request Request `json:"request"`
}

type dispatchResult struct {
	result *Result
	err    error
}
