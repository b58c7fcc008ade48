package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/memomeet/memomeet/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	before := time.Now().Truncate(time.Microsecond)
	got := clock.Real{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
	if got.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", got.Location())
	}
	if got.Nanosecond()%int(time.Microsecond) != 0 {
		t.Errorf("Now() = %v carries sub-microsecond precision", got)
	}
}

func TestManual(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewManual(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	if got, want := c.Advance(90*time.Second), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Advance() = %v, want %v", got, want)
	}
	if want := start.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Errorf("after Advance Now() = %v, want %v", c.Now(), want)
	}
}

func TestManual_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewManual(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	if want := start.Add(50 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", c.Now(), want)
	}
}
