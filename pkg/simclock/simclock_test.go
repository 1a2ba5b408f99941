package simclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAfterOrdersByTimestampThenFIFO(t *testing.T) {
	e := NewEngine()
	var order []string

	e.After(2*time.Second, func() { order = append(order, "b") })
	e.After(1*time.Second, func() { order = append(order, "a") })
	e.After(1*time.Second, func() { order = append(order, "a2") })

	e.Run()

	require.Equal(t, []string{"a", "a2", "b"}, order)
}

func TestStepAdvancesClockToEventTimestamp(t *testing.T) {
	e := NewEngine()
	require.Equal(t, time.Duration(0), e.Now())

	e.After(5*time.Second, func() {})
	require.True(t, e.Step())
	require.Equal(t, 5*time.Second, e.Now())

	require.False(t, e.Step())
}

func TestNegativeDelayRunsAtCurrentTime(t *testing.T) {
	e := NewEngine()
	e.After(10*time.Second, func() {})
	e.Step()

	fired := false
	e.After(-time.Second, func() { fired = true })
	e.Step()

	require.True(t, fired)
	require.Equal(t, 10*time.Second, e.Now())
}

func TestRunDrainsEventsScheduledDuringRun(t *testing.T) {
	e := NewEngine()
	count := 0
	var schedule func()
	schedule = func() {
		count++
		if count < 3 {
			e.After(time.Second, schedule)
		}
	}
	e.After(time.Second, schedule)
	e.Run()

	require.Equal(t, 3, count)
	require.Equal(t, 0, e.Pending())
}

func TestRunUntilStopsWhenConditionHolds(t *testing.T) {
	e := NewEngine()
	tripped := false
	e.After(3*time.Second, func() { tripped = true })
	e.After(100*time.Second, func() { t.Fatal("should not run after condition is met") })

	ok := e.RunUntil(func() bool { return tripped })
	require.True(t, ok)
	require.Equal(t, 3*time.Second, e.Now())
}

func TestRunUntilReturnsFalseWhenExhausted(t *testing.T) {
	e := NewEngine()
	e.After(time.Second, func() {})

	ok := e.RunUntil(func() bool { return false })
	require.False(t, ok)
	require.Equal(t, 0, e.Pending())
}
