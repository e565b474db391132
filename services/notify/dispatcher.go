// Package notify runs outbound notifications (emails and follow-up tasks) off the request path.
package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gvpclubconnect/clubconnect/core"
)

var ErrStopped = errors.New("dispatcher stopped")

type job struct {
	name string
	task core.Task
}

// Dispatcher is a bounded worker pool. When its queue is full, new tasks are dropped and logged;
// callers are never blocked.
type Dispatcher struct {
	mail    core.EmailService
	logger  core.Logger
	workers int
	timeout time.Duration

	queue chan job
	wg    sync.WaitGroup
	mu    sync.RWMutex // guards stopped and queue closing
	start sync.Once

	stopped bool
}

var _ core.Notifier = (*Dispatcher)(nil)

func NewDispatcher(mail core.EmailService, logger core.Logger, conf core.NotifyConfig) *Dispatcher {
	workers := conf.Workers
	if workers < 1 {
		workers = 1
	}
	size := conf.QueueSize
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		mail:    mail,
		logger:  logger,
		workers: workers,
		timeout: conf.TaskTimeout,
		queue:   make(chan job, size),
	}
}

// Start launches the workers. Tasks queued before Start run once it is called.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

// Stop refuses new tasks and waits for the queued ones to finish, or for ctx to be done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.Start() // drain even if never started

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "stopping dispatcher")
	}
}

func (d *Dispatcher) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		d.Go("email:"+msg.TemplateName, func(ctx context.Context) error {
			return d.mail.SendMessage(ctx, msg)
		})
	}
}

func (d *Dispatcher) Go(name string, task core.Task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.Warn(fmt.Sprintf("notify: %s dropped: %v", name, ErrStopped))
		return
	}
	select {
	case d.queue <- job{name: name, task: task}:
	default:
		d.logger.Warn(fmt.Sprintf("notify: %s dropped: queue full", name))
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		run(d.logger, d.timeout, j)
	}
}

// run executes a job, logging its failure. A panicking task does not kill the worker.
func run(logger core.Logger, timeout time.Duration, j job) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic: %v", r)
			logger.Error(fmt.Sprintf("notify: %s: %v\n%s", j.name, err, debug.Stack()), err)
		}
	}()

	if err := j.task(ctx); err != nil {
		logger.Error(fmt.Sprintf("notify: %s: %v", j.name, err), err)
	}
}

// InlineDispatcher runs every task in the calling goroutine.
// It backs tests and one-shot commands where nothing should outlive the call.
type InlineDispatcher struct {
	mail    core.EmailService
	logger  core.Logger
	timeout time.Duration
}

var _ core.Notifier = (*InlineDispatcher)(nil)

func NewInlineDispatcher(mail core.EmailService, logger core.Logger, conf core.NotifyConfig) *InlineDispatcher {
	return &InlineDispatcher{mail: mail, logger: logger, timeout: conf.TaskTimeout}
}

func (d *InlineDispatcher) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		d.Go("email:"+msg.TemplateName, func(ctx context.Context) error {
			return d.mail.SendMessage(ctx, msg)
		})
	}
}

func (d *InlineDispatcher) Go(name string, task core.Task) {
	run(d.logger, d.timeout, job{name: name, task: task})
}
