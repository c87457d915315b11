// Package service runs background units of work with a uniform lifecycle.
//
// Each running service owns one goroutine. Hooks, periodic updates and
// closures passed to Invoke all execute on that goroutine, strictly in
// sequence. Failures are routed through the service's Policy instead of
// unwinding the goroutine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maniartech/signals"
)

// DefaultInterval is the update period used when Config.Interval is zero.
const DefaultInterval = 16 * time.Millisecond

// ErrNotRunning is returned by Invoke when the service context ended before
// the closure could run.
var ErrNotRunning = errors.New("service not running")

// Hooks is implemented by every concrete service.
//
// All hooks run on the service goroutine. They must not call Start, Stop or
// Invoke on their own service.
type Hooks interface {
	OnStart(ctx context.Context) error
	OnStop()
	Update(ctx context.Context) error
}

// Config describes a service instance.
type Config struct {
	Name     string
	Interval time.Duration
	Policy   Policy
	Logger   *slog.Logger
	// Exit terminates the process under PolicyHalt. Defaults to os.Exit.
	Exit func(code int)
}

type call struct {
	fn   func() error
	done chan error
}

// Base implements the lifecycle shared by all services. Concrete services
// embed a *Base and supply Hooks.
type Base struct {
	name     string
	interval time.Duration
	hooks    Hooks
	log      *slog.Logger
	exit     func(int)

	policy  atomic.Uint32
	report  atomic.Pointer[Report]
	changed signals.Signal[Report]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	calls  chan call
}

// New returns a stopped service.
func New(cfg Config, hooks Hooks) *Base {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	b := &Base{
		name:     cfg.Name,
		interval: cfg.Interval,
		hooks:    hooks,
		log:      cfg.Logger.With("service", cfg.Name),
		exit:     cfg.Exit,
		changed:  signals.NewSync[Report](),
	}
	b.policy.Store(uint32(cfg.Policy))
	b.report.Store(&Report{Service: cfg.Name, Status: Stopped, At: time.Now()})
	return b
}

func (b *Base) Name() string            { return b.name }
func (b *Base) Interval() time.Duration { return b.interval }
func (b *Base) Logger() *slog.Logger    { return b.log }

// Policy returns the current escalation policy.
func (b *Base) Policy() Policy { return Policy(b.policy.Load()) }

// SetPolicy changes the escalation policy. It takes effect on the next failure.
func (b *Base) SetPolicy(p Policy) { b.policy.Store(uint32(p)) }

// Report returns the last published status.
func (b *Base) Report() Report { return *b.report.Load() }

// Status returns the last published status value.
func (b *Base) Status() Status { return b.report.Load().Status }

// StatusChanged is emitted whenever the (status, label) pair changes.
func (b *Base) StatusChanged() signals.Signal[Report] { return b.changed }

// SetStatus publishes a new (status, label) pair. Only the service goroutine
// calls it while the service is running.
func (b *Base) SetStatus(s Status, label string) {
	r := &Report{Service: b.name, Status: s, Label: label, At: time.Now()}
	prev := b.report.Swap(r)
	if prev != nil && prev.Status == s && prev.Label == label {
		return
	}
	b.changed.Emit(context.Background(), *r)
}

// Running reports whether the service goroutine is alive.
func (b *Base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aliveLocked()
}

// Start launches the service goroutine and waits until OnStart has returned.
// It is a no-op when the service is already running. A service whose
// goroutine ended through its Policy is restarted.
func (b *Base) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		if b.aliveLocked() {
			return
		}
		b.reapLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.calls = make(chan call)
	started := make(chan struct{})
	go b.run(ctx, started, b.done, b.calls)

	select {
	case <-started:
	case <-b.done:
	}
}

// Stop cancels the service goroutine and blocks until it has drained and
// OnStop has run. It is a no-op when the service is not running. A service
// that was stopped by its Policy transitions from Error to Stopped.
func (b *Base) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		return
	}
	b.cancel()
	<-b.done
	b.reapLocked()
	if b.Status() != Stopped {
		// The goroutine is gone, so this is the only writer left.
		b.SetStatus(Stopped, "")
	}
}

// Invoke runs fn on the service goroutine and returns its result. When the
// service is not running fn runs on the caller while the lifecycle lock is
// held, so it cannot race with Start.
func (b *Base) Invoke(fn func() error) error {
	b.mu.Lock()
	if !b.aliveLocked() {
		defer b.mu.Unlock()
		return fn()
	}
	done, calls := b.done, b.calls
	b.mu.Unlock()

	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case calls <- c:
	case <-done:
		return ErrNotRunning
	}
	select {
	case err := <-c.done:
		return err
	case <-done:
		return ErrNotRunning
	}
}

func (b *Base) aliveLocked() bool {
	if b.done == nil {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

func (b *Base) reapLocked() {
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = nil
	b.done = nil
	b.calls = nil
}

func (b *Base) run(ctx context.Context, started, done chan struct{}, calls <-chan call) {
	defer close(done)

	b.SetStatus(Running, "")
	err := protect("start", func() error { return b.hooks.OnStart(ctx) })
	if err != nil && b.escalate(err) {
		// Start observes done instead of started.
		b.fail(err)
		return
	}
	close(started)

	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			b.SetStatus(Stopped, "")
			return
		case c := <-calls:
			err := protect("invoke", c.fn)
			c.done <- err
			var pe *PanicError
			if errors.As(err, &pe) && b.escalate(err) {
				b.fail(err)
				return
			}
		case <-t.C:
			if ctx.Err() != nil {
				continue
			}
			err := protect("update", func() error { return b.hooks.Update(ctx) })
			if err != nil && b.escalate(err) {
				b.fail(err)
				return
			}
		}
	}
}

// escalate applies the policy to err and reports whether the goroutine must end.
func (b *Base) escalate(err error) bool {
	err = fmt.Errorf("%s: %w", b.name, err)
	switch b.Policy() {
	case PolicyPass:
		b.log.Debug("service failure ignored", "error", err)
		return false
	case PolicyLog:
		b.logFailure(err)
		return false
	default:
		b.logFailure(err)
		return true
	}
}

func (b *Base) fail(err error) {
	b.SetStatus(Error, err.Error())
	b.shutdown()
	if b.Policy() == PolicyHalt {
		b.log.Error("halting process", "error", err)
		b.exit(1)
	}
}

func (b *Base) shutdown() {
	if err := protect("stop", func() error { b.hooks.OnStop(); return nil }); err != nil {
		b.logFailure(err)
	}
}

func (b *Base) logFailure(err error) {
	var pe *PanicError
	if errors.As(err, &pe) {
		b.log.Error("service failure", "error", err, "stack", string(pe.Stack))
		return
	}
	b.log.Error("service failure", "error", err)
}
