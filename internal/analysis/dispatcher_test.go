package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sentinel-intel/sentinel/pkg/logging"
)

type stubAnalyzer struct {
	calls  atomic.Int32
	result *Result
	err    error
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ Request) (*Result, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func TestDispatcherRoundTrip(t *testing.T) {
	processor := &stubAnalyzer{result: &Result{
		Verdict:  RiskVerdict{Level: RiskLow, Confidence: 81},
		Language: "en",
	}}
	d := NewDispatcher(processor, NewMemoryQueue(8), logging.Default(),
		WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := d.Analyze(ctx, Request{Raw: "https://example.com"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Verdict.Level != RiskLow {
		t.Fatalf("expected low verdict from worker, got %s", res.Verdict.Level)
	}
	if processor.calls.Load() != 1 {
		t.Fatalf("expected one processor call, got %d", processor.calls.Load())
	}
}

func TestDispatcherPropagatesProcessorError(t *testing.T) {
	processor := &stubAnalyzer{err: errors.New("boom")}
	d := NewDispatcher(processor, NewMemoryQueue(8), logging.Default(),
		WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := d.Analyze(ctx, Request{Raw: "x"}); err == nil {
		t.Fatal("expected processor error to reach the caller")
	}
}

// blackHoleQueue accepts jobs but never hands them to a worker.
type blackHoleQueue struct{}

func (blackHoleQueue) Send(context.Context, string) error { return nil }

func (blackHoleQueue) Receive(ctx context.Context, _ int, _ int) ([]queueMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blackHoleQueue) Delete(context.Context, string) error { return nil }

func TestDispatcherShutdownNotifiesPending(t *testing.T) {
	processor := &stubAnalyzer{result: &Result{}}
	d := NewDispatcher(processor, blackHoleQueue{}, logging.Default(),
		WithWorkerCount(1), WithReceiveWaitSeconds(20))

	errCh := make(chan error, 1)
	go func() {
		_, err := d.Analyze(context.Background(), Request{Raw: "x"})
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrDispatcherClosed) {
			t.Fatalf("expected ErrDispatcherClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending caller was never notified")
	}
}
