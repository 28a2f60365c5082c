package task

import (
	"sync"
	"time"
)

// Runner executes tasks one at a time. Every session owns one, and all of
// its methods, timer callbacks and connection reads are posted onto it.
type Runner interface {
	PostTask(task func()) bool
	PostDelayedTask(delay time.Duration, task func()) *CancelableTask
}

// CancelableTask is a delayed task that may be cancelled before it runs.
// The cancelled flag is checked on the runner, so a Cancel issued from a
// task that runs first always wins.
type CancelableTask struct {
	mu        sync.Mutex
	cancelled bool
	done      bool
	timer     Timer
}

// Cancel stops the task. It returns false when the task already ran or was
// already cancelled.
func (t *CancelableTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.done {
		return false
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

func (t *CancelableTask) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done reports whether the task body has run.
func (t *CancelableTask) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *CancelableTask) setTimer(timer Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = timer
}

func (t *CancelableTask) run(task func()) {
	t.mu.Lock()
	if t.cancelled || t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.mu.Unlock()
	task()
}

// SerialRunner runs posted tasks in order on a single goroutine.
type SerialRunner struct {
	clock     Clock
	tasks     chan func()
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func NewSerialRunner(clock Clock, queueSize int) *SerialRunner {
	if clock == nil {
		clock = SystemClock{}
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	r := &SerialRunner{
		clock:  clock,
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *SerialRunner) loop() {
	defer close(r.exited)
	for {
		select {
		case task := <-r.tasks:
			task()
		case <-r.done:
			return
		}
	}
}

func (r *SerialRunner) PostTask(task func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.tasks <- task:
		return true
	case <-r.done:
		return false
	}
}

func (r *SerialRunner) PostDelayedTask(delay time.Duration, task func()) *CancelableTask {
	ct := &CancelableTask{}
	ct.setTimer(r.clock.AfterFunc(delay, func() {
		r.PostTask(func() { ct.run(task) })
	}))
	return ct
}

// Sync blocks until every task posted before it has run, or the timeout
// elapses.
func (r *SerialRunner) Sync(timeout time.Duration) bool {
	flushed := make(chan struct{})
	if !r.PostTask(func() { close(flushed) }) {
		return false
	}
	select {
	case <-flushed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close stops the runner. Tasks still queued are dropped.
func (r *SerialRunner) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	<-r.exited
}

// InlineRunner runs tasks on the caller's goroutine. Delayed tasks fire from
// the clock, which makes it a good fit for FakeClock driven tests.
type InlineRunner struct {
	clock Clock
}

func NewInlineRunner(clock Clock) *InlineRunner {
	if clock == nil {
		clock = SystemClock{}
	}
	return &InlineRunner{clock: clock}
}

func (r *InlineRunner) PostTask(task func()) bool {
	task()
	return true
}

func (r *InlineRunner) PostDelayedTask(delay time.Duration, task func()) *CancelableTask {
	ct := &CancelableTask{}
	ct.setTimer(r.clock.AfterFunc(delay, func() { ct.run(task) }))
	return ct
}
