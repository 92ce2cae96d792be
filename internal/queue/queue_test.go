package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rdxusb/rdxusb-go/frame"
)

func TestTryPushTryPop(t *testing.T) {
	q := New(2, DropOnFull)
	require.True(t, q.TryPush(frame.Frame{DLC: 1}))
	require.True(t, q.TryPush(frame.Frame{DLC: 2}))
	require.False(t, q.TryPush(frame.Frame{DLC: 3})) // full, dropped

	f, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, uint8(1), f.DLC)

	f, ok = q.TryPop()
	require.True(t, ok)
	require.Equal(t, uint8(2), f.DLC)

	_, ok = q.TryPop()
	require.False(t, ok)
}

func TestBackpressureDropOnFull(t *testing.T) {
	// S5 (drop-on-full branch): buffer_size=4, enqueue 10 before any read;
	// only the first 4 are later readable.
	q := New(4, DropOnFull)
	for i := 0; i < 10; i++ {
		q.TryPush(frame.Frame{DLC: uint8(i)})
	}
	count := 0
	for {
		if _, ok := q.TryPop(); !ok {
			break
		}
		count++
	}
	require.Equal(t, 4, count)
}

func TestBackpressureAwaitOnFull(t *testing.T) {
	// S5 (await-on-full branch): the pusher blocks instead of losing
	// frames; draining the consumer eventually lets all 10 through.
	q := New(4, AwaitOnFull)
	ctx := context.Background()

	go func() {
		for i := 0; i < 10; i++ {
			_, _ = q.Push(ctx, frame.Frame{DLC: uint8(i)})
		}
	}()

	received := 0
	deadline := time.After(2 * time.Second)
	for received < 10 {
		select {
		case <-deadline:
			t.Fatalf("only received %d/10 frames", received)
		default:
		}
		popCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		_, err := q.Pop(popCtx)
		cancel()
		if err == nil {
			received++
		}
	}
	require.Equal(t, 10, received)
}

func TestCloseUnblocksPop(t *testing.T) {
	q := New(1, AwaitOnFull)
	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after Close")
	}
}

func TestCloseDrainsBacklogFirst(t *testing.T) {
	q := New(2, AwaitOnFull)
	q.TryPush(frame.Frame{DLC: 9})
	q.Close()

	f, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint8(9), f.DLC)

	_, err = q.Pop(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
