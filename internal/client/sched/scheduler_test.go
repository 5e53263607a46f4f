package sched

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return New(slog.Default())
}

func TestScheduler_DebounceCoalescing(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	var calls atomic.Int32
	var mu sync.Mutex
	var lastValue int

	done := make(chan struct{})

	// N быстрых мутаций в пределах окна: уходит ровно одна запись
	// с последними значениями
	for i := 1; i <= 10; i++ {
		value := i
		s.Schedule("3/ann-1", 30*time.Millisecond, func() {
			calls.Add(1)
			mu.Lock()
			lastValue = value
			mu.Unlock()
			close(done)
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled write never fired")
	}

	// Даем время возможным лишним срабатываниям
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
	mu.Lock()
	assert.Equal(t, 10, lastValue)
	mu.Unlock()
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_IndependentKeys(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	var calls atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	s.Schedule("1/a", 10*time.Millisecond, func() { calls.Add(1); wg.Done() })
	s.Schedule("1/b", 10*time.Millisecond, func() { calls.Add(1); wg.Done() })

	wg.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestScheduler_Cancel(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	var calls atomic.Int32
	s.Schedule("1/a", 50*time.Millisecond, func() { calls.Add(1) })

	require.True(t, s.Cancel("1/a"))
	assert.False(t, s.Cancel("1/a"))

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestScheduler_CancelPrefix(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	var calls atomic.Int32
	fired := make(chan struct{})

	s.Schedule(Key(1, "a"), 50*time.Millisecond, func() { calls.Add(1) })
	s.Schedule(Key(1, "b"), 50*time.Millisecond, func() { calls.Add(1) })
	s.Schedule(Key(2, "c"), 50*time.Millisecond, func() {
		calls.Add(1)
		close(fired)
	})

	// Выгрузка страницы 1 снимает только её таймеры
	assert.Equal(t, 2, s.CancelPrefix(PagePrefix(1)))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("page 2 write should still fire")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_ImmediateDelayRuns(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	done := make(chan struct{})
	s.Schedule("1/a", DelayImmediate, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("immediate write never fired")
	}
}

func TestScheduler_CloseRejectsNewWork(t *testing.T) {
	s := newTestScheduler()

	var calls atomic.Int32
	s.Schedule("1/a", 50*time.Millisecond, func() { calls.Add(1) })
	s.Close()

	s.Schedule("1/b", DelayImmediate, func() { calls.Add(1) })

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, s.Pending())
}
