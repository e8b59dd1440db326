package interaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jengzang/camglobe/internal/viewport"
)

func TestManualSchedulerOrder(t *testing.T) {
	s := NewManualScheduler()
	var got []int

	s.RequestFrame(func(time.Time) { got = append(got, 1) })
	second := s.RequestFrame(func(time.Time) { got = append(got, 2) })
	s.RequestFrame(func(time.Time) {
		got = append(got, 3)
		// Requested mid-run, so it waits for the next step.
		s.RequestFrame(func(time.Time) { got = append(got, 4) })
	})
	s.CancelFrame(second)

	if n := s.Step(t0); n != 2 {
		t.Fatalf("first step ran %d frames, want 2", n)
	}
	if n := s.Step(t0); n != 1 {
		t.Fatalf("second step ran %d frames, want 1", n)
	}
	want := []int{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("ran %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ran %v, want %v", got, want)
		}
	}
	if s.Step(t0) != 0 || s.Pending() != 0 {
		t.Error("queue should be empty")
	}
}

func TestManualSchedulerCancelDuringRun(t *testing.T) {
	s := NewManualScheduler()
	var later FrameID
	ran := false
	s.RequestFrame(func(time.Time) { s.CancelFrame(later) })
	later = s.RequestFrame(func(time.Time) { ran = true })

	s.Step(t0)
	if ran {
		t.Error("a frame cancelled mid-run still fired")
	}
}

func TestLoopDrivesController(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(ctx, time.Millisecond)
	cfg := DefaultConfig()
	cfg.FlyDuration = 20 * time.Millisecond

	var c *Controller
	if err := loop.Do(ctx, func() {
		c = NewController(globeView(), loop, cfg, nil)
		c.FlyTo(10, 20, 2)
	}); err != nil {
		t.Fatalf("Do: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var flying bool
		var vp viewport.Viewport
		if err := loop.Do(ctx, func() {
			flying = c.Flying()
			vp = c.Viewport()
		}); err != nil {
			t.Fatalf("Do: %v", err)
		}
		if !flying {
			if vp.Rotation != (viewport.LonLat{Lon: 20, Lat: 10}) || vp.Zoom != 2 {
				t.Fatalf("landed at %+v zoom %v", vp.Rotation, vp.Zoom)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("fly-to never finished")
		}
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	<-loop.Done()
	if err := loop.Post(func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Post after stop = %v, want ErrLoopStopped", err)
	}
	if err := loop.Do(context.Background(), func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Do after stop = %v, want ErrLoopStopped", err)
	}
}
