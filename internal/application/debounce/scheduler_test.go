package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/eshaffer321/cartsync/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestScheduler() (*Scheduler, *testutil.FakeClock) {
	c := testutil.NewFakeClock(time.Unix(1_700_000_000, 0))
	return New(c, 500*time.Millisecond), c
}

func TestScheduler_RapidSchedulesCollapse(t *testing.T) {
	s, c := newTestScheduler()
	var runs []int

	for i := 1; i <= 3; i++ {
		v := i
		s.Schedule("42", func() { runs = append(runs, v) })
		c.Advance(100 * time.Millisecond)
	}

	assert.Empty(t, runs)
	assert.True(t, s.Pending("42"))

	c.Advance(500 * time.Millisecond)

	assert.Equal(t, []int{3}, runs, "only the last task runs")
	assert.False(t, s.Pending("42"))
}

func TestScheduler_KeysAreIndependent(t *testing.T) {
	s, c := newTestScheduler()
	var ran []string

	s.Schedule("a", func() { ran = append(ran, "a") })
	c.Advance(300 * time.Millisecond)
	s.Schedule("b", func() { ran = append(ran, "b") })
	c.Advance(200 * time.Millisecond)

	assert.Equal(t, []string{"a"}, ran)

	c.Advance(300 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestScheduler_Cancel(t *testing.T) {
	s, c := newTestScheduler()
	ran := false

	s.Schedule("x", func() { ran = true })
	assert.True(t, s.Cancel("x"))
	assert.False(t, s.Cancel("x"))

	c.Advance(time.Second)
	assert.False(t, ran)
}

func TestScheduler_FlushRunsInScheduleOrder(t *testing.T) {
	s, c := newTestScheduler()
	var ran []string

	s.Schedule("b", func() { ran = append(ran, "b") })
	s.Schedule("a", func() { ran = append(ran, "a") })
	s.Schedule("c", func() { ran = append(ran, "c") })

	assert.Equal(t, 3, s.Flush())
	assert.Equal(t, []string{"b", "a", "c"}, ran)
	assert.Equal(t, 0, s.Len())

	// timers were stopped, nothing runs twice
	c.Advance(time.Second)
	assert.Len(t, ran, 3)
}

func TestScheduler_FlushKey(t *testing.T) {
	s, _ := newTestScheduler()
	ran := 0

	s.Schedule("k", func() { ran++ })
	assert.True(t, s.FlushKey("k"))
	assert.False(t, s.FlushKey("k"))
	assert.Equal(t, 1, ran)
}

func TestScheduler_TaskMayReschedule(t *testing.T) {
	s, c := newTestScheduler()
	runs := 0

	var task func()
	task = func() {
		runs++
		if runs == 1 {
			s.Schedule("k", task)
		}
	}
	s.Schedule("k", task)

	c.Advance(500 * time.Millisecond)
	c.Advance(500 * time.Millisecond)
	assert.Equal(t, 2, runs)
}

func TestScheduler_StopIgnoresLaterSchedules(t *testing.T) {
	s, c := newTestScheduler()
	ran := false

	s.Schedule("k", func() { ran = true })
	s.Stop()
	s.Schedule("k", func() { ran = true })

	c.Advance(time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_SystemClock(t *testing.T) {
	s := New(nil, 10*time.Millisecond)
	var runs atomic.Int32
	done := make(chan struct{})

	s.Schedule("k", func() { runs.Add(1) })
	s.Schedule("k", func() {
		runs.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Equal(t, int32(1), runs.Load())
}
