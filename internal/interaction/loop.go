package interaction

import (
	"context"
	"errors"
	"time"
)

// ErrLoopStopped is returned when posting to a loop whose context has ended.
var ErrLoopStopped = errors.New("interaction loop stopped")

// Loop is a single goroutine that owns a controller. Work reaches it through
// Post or Do, and frames fire on a ticker while any are pending. Everything
// that touches the controller runs on the loop goroutine, so the controller
// needs no locking.
//
// Loop implements Scheduler; RequestFrame and CancelFrame must only be
// called from the loop goroutine.
type Loop struct {
	interval time.Duration
	events   chan func()
	done     chan struct{}
	q        frameQueue
}

// NewLoop starts a loop that fires frames every interval. The loop stops when
// ctx is cancelled.
func NewLoop(ctx context.Context, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	l := &Loop{
		interval: interval,
		events:   make(chan func(), 64),
		done:     make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		// Only tick while something is animating.
		if len(l.q.pending) > 0 && ticker == nil {
			ticker = time.NewTicker(l.interval)
			tick = ticker.C
		} else if len(l.q.pending) == 0 && ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}

		select {
		case <-ctx.Done():
			return
		case fn := <-l.events:
			fn()
		case now := <-tick:
			l.q.run(now)
		}
	}
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) RequestFrame(fn FrameFunc) FrameID {
	return l.q.request(fn)
}

func (l *Loop) CancelFrame(id FrameID) {
	l.q.cancel(id)
}
