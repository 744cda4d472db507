package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func node(data string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: data}
}

func TestDispatcherOrder(t *testing.T) {
	d := NewDispatcher()
	var got []string
	d.Subscribe("first", func(c Change) error {
		got = append(got, "first:"+c.Root.Data)
		return nil
	})
	d.Subscribe("second", func(c Change) error {
		got = append(got, "second:"+c.Root.Data)
		return nil
	})

	d.Publish(Change{Root: node("a")})
	d.Publish(Change{Root: node("b")})
	d.Publish(Change{})
	require.Equal(t, 2, d.Pending())

	assert.Equal(t, 2, d.Drain())
	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, got)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcherSurvivesFailures(t *testing.T) {
	d := NewDispatcher()
	var calls int
	d.Subscribe("panics", func(Change) error { panic("boom") })
	d.Subscribe("fails", func(Change) error { return errors.New("drift") })
	d.Subscribe("counts", func(Change) error { calls++; return nil })

	d.Publish(Change{Root: node("a")})
	d.Publish(Change{Root: node("b")})
	assert.Equal(t, 2, d.Drain())
	assert.Equal(t, 2, calls)
}

func TestDispatcherNestedPublish(t *testing.T) {
	d := NewDispatcher()
	var seen []string
	d.Subscribe("echo", func(c Change) error {
		seen = append(seen, c.Root.Data)
		if c.Root.Data == "a" {
			d.Publish(Change{Root: node("child")})
			assert.Equal(t, 0, d.Drain(), "nested drain is a no-op")
		}
		return nil
	})

	d.Publish(Change{Root: node("a")})
	assert.Equal(t, 2, d.Drain())
	assert.Equal(t, []string{"a", "child"}, seen)
}

func TestDispatcherRun(t *testing.T) {
	d := NewDispatcher()
	done := make(chan string, 1)
	d.Subscribe("signal", func(c Change) error {
		done <- c.Root.Data
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()

	d.Publish(Change{Root: node("a")})
	select {
	case got := <-done:
		assert.Equal(t, "a", got)
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestDebouncerCoalesces(t *testing.T) {
	var runs atomic.Int32
	fired := make(chan struct{}, 4)
	db := NewDebouncer(20*time.Millisecond, func() {
		runs.Add(1)
		fired <- struct{}{}
	})

	for i := 0; i < 5; i++ {
		db.Trigger()
	}
	assert.True(t, db.Pending())

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never ran")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, db.Pending())
}

func TestDebouncerFlushAndStop(t *testing.T) {
	var runs atomic.Int32
	db := NewDebouncer(time.Hour, func() { runs.Add(1) })

	assert.False(t, db.Flush(), "nothing pending")

	db.Trigger()
	assert.True(t, db.Flush())
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, db.Pending())

	db.Trigger()
	db.Stop()
	assert.False(t, db.Pending())
	assert.False(t, db.Flush())
	assert.Equal(t, int32(1), runs.Load())
}

func TestDebouncerDefaultDelay(t *testing.T) {
	db := NewDebouncer(0, func() {})
	assert.Equal(t, DefaultDelay, db.delay)
}
