package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingTarget struct {
	mu       sync.Mutex
	sweeps   int
	relaunch int
}

func (c *countingTarget) SweepExpired(time.Time) {
	c.mu.Lock()
	c.sweeps++
	c.mu.Unlock()
}

func (c *countingTarget) Relaunch(time.Time) {
	c.mu.Lock()
	c.relaunch++
	c.mu.Unlock()
}

func (c *countingTarget) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeps, c.relaunch
}

func TestSweeperTicksBothPasses(t *testing.T) {
	target := &countingTarget{}
	s := New(target, zap.NewNop(), 10*time.Millisecond, 25*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for {
		sweeps, relaunches := target.counts()
		if sweeps >= 3 && relaunches >= 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("sweeps=%d relaunches=%d after 2s", sweeps, relaunches)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeperRunsInitialSweep(t *testing.T) {
	target := &countingTarget{}
	s := New(target, zap.NewNop(), time.Hour, time.Hour)

	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(time.Second)
	for {
		sweeps, _ := target.counts()
		if sweeps >= 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("no startup sweep within 1s")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeperStops(t *testing.T) {
	target := &countingTarget{}
	s := New(target, zap.NewNop(), 5*time.Millisecond, 5*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	time.Sleep(20 * time.Millisecond)
	before, _ := target.counts()
	time.Sleep(30 * time.Millisecond)
	after, _ := target.counts()
	if after != before {
		t.Errorf("sweeps continued after Stop: %d -> %d", before, after)
	}
}
