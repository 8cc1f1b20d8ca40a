package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/sethvargo/go-retry"
)

var ErrDispatcherClosed = errors.New("notification dispatcher closed")

type DispatcherOptions struct {
	Workers    int
	QueueSize  int
	MaxRetries uint64
	RetryBase  time.Duration
	RetryCap   time.Duration
}

type job struct {
	kind Kind
	msg  Message
}

// Dispatcher queues messages and delivers them on background workers,
// retrying with exponential backoff. Enqueue returns as soon as the message
// is queued.
type Dispatcher struct {
	next   Notifier
	logger logging.Logger
	opts   DispatcherOptions

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(next Notifier, logger logging.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	if opts.RetryCap <= 0 {
		opts.RetryCap = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		next:   next,
		logger: logger,
		opts:   opts,
		queue:  make(chan job, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) SendVerification(ctx context.Context, msg Message) error {
	return d.enqueue(ctx, job{kind: KindVerification, msg: msg})
}

func (d *Dispatcher) SendPasswordReset(ctx context.Context, msg Message) error {
	return d.enqueue(ctx, job{kind: KindPasswordReset, msg: msg})
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) backoff() retry.Backoff {
	b := retry.NewExponential(d.opts.RetryBase)
	b = retry.WithCappedDuration(d.opts.RetryCap, b)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(d.opts.MaxRetries, b)
}

func (d *Dispatcher) deliver(j job) {
	attempt := 0
	err := retry.Do(d.ctx, d.backoff(), func(ctx context.Context) error {
		attempt++
		var err error
		switch j.kind {
		case KindVerification:
			err = d.next.SendVerification(ctx, j.msg)
		case KindPasswordReset:
			err = d.next.SendPasswordReset(ctx, j.msg)
		}
		if err != nil {
			d.logger.Warn(ctx, "email delivery failed", "kind", j.kind, "account_id", j.msg.AccountID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error(d.ctx, "email dropped", "kind", j.kind, "account_id", j.msg.AccountID, "attempts", attempt, "error", err)
		return
	}
	d.logger.Debug(d.ctx, "email delivered", "kind", j.kind, "account_id", j.msg.AccountID, "attempts", attempt)
}

// Close stops accepting messages and waits for the queue to drain. When ctx
// expires first, pending retries are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
