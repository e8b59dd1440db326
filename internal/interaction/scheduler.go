package interaction

import (
	"sort"
	"time"
)

// FrameID identifies a requested frame. Zero is never issued.
type FrameID uint64

// FrameFunc runs once for a requested frame.
type FrameFunc func(now time.Time)

// Scheduler hands out one-shot frame callbacks, like an animation frame
// request. Animations that want to keep running request a new frame from
// inside their callback.
type Scheduler interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
}

// frameQueue is the bookkeeping shared by the schedulers. It is not safe for
// concurrent use.
type frameQueue struct {
	next    FrameID
	pending map[FrameID]FrameFunc
}

func (q *frameQueue) request(fn FrameFunc) FrameID {
	if q.pending == nil {
		q.pending = make(map[FrameID]FrameFunc)
	}
	q.next++
	q.pending[q.next] = fn
	return q.next
}

func (q *frameQueue) cancel(id FrameID) {
	delete(q.pending, id)
}

// run fires every frame requested before the call, oldest first. Frames
// requested while running wait for the next run; frames cancelled while
// running are skipped.
func (q *frameQueue) run(now time.Time) int {
	if len(q.pending) == 0 {
		return 0
	}
	ids := make([]FrameID, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ran := 0
	for _, id := range ids {
		fn, ok := q.pending[id]
		if !ok {
			continue
		}
		delete(q.pending, id)
		fn(now)
		ran++
	}
	return ran
}

// ManualScheduler runs frames only when Step is called. It is meant for
// tests and for hosts that drive frames themselves.
type ManualScheduler struct {
	q frameQueue
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) RequestFrame(fn FrameFunc) FrameID {
	return s.q.request(fn)
}

func (s *ManualScheduler) CancelFrame(id FrameID) {
	s.q.cancel(id)
}

// Step runs the frames pending at call time and returns how many ran.
func (s *ManualScheduler) Step(now time.Time) int {
	return s.q.run(now)
}

// Pending returns the number of outstanding frames.
func (s *ManualScheduler) Pending() int {
	return len(s.q.pending)
}
