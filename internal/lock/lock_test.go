package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLock_AcquireRelease_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Release())
}

func TestLock_SecondAcquire_BlocksUntilFirstReleases(t *testing.T) {
	dir := t.TempDir()

	first := New(dir)
	require.NoError(t, first.Acquire(context.Background()))

	released := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		first.Release()
		close(released)
	}()

	second := New(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, second.Acquire(ctx))
	<-released
	second.Release()
}

func TestWithLock_RunsFnAndReleases(t *testing.T) {
	dir := t.TempDir()
	ran := false
	err := WithLock(context.Background(), dir, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)

	l := New(dir)
	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}
