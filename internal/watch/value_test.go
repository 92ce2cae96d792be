package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValueSendWait(t *testing.T) {
	v := NewValue[int](0)
	done := make(chan int, 1)
	go func() {
		got, ok := v.Wait(context.Background())
		require.True(t, ok)
		done <- got
	}()

	time.Sleep(10 * time.Millisecond)
	v.Send(42)

	select {
	case got := <-done:
		require.Equal(t, 42, got)
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}
}

func TestValueWaitCancelled(t *testing.T) {
	v := NewValue[int](0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := v.Wait(ctx)
	require.False(t, ok)
}

func TestValueCurrent(t *testing.T) {
	v := NewValue[string]("a")
	require.Equal(t, "a", v.Current())
	v.Send("b")
	require.Equal(t, "b", v.Current())
}
