package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStepClockAdvances(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, 3, clock.Calls())
}

func TestStepClockReset(t *testing.T) {
	clock := NewStepClock(epoch, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, 0, clock.Calls())
	assert.Equal(t, epoch, clock.Now())
}

func TestStepClockConcurrent(t *testing.T) {
	clock := NewStepClock(epoch, time.Millisecond)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	distinct := make(map[time.Time]bool)
	for ts := range seen {
		distinct[ts] = true
	}
	assert.Len(t, distinct, 100)
	assert.Equal(t, 100, clock.Calls())
}
