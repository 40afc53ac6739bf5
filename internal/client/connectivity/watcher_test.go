package connectivity

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/farmledger/internal/logging"
)

type fakePinger struct {
	fail atomic.Bool
}

func (p *fakePinger) Ping(ctx context.Context) error {
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestSetOnlineFiresOnTransitionsOnly(t *testing.T) {
	w := NewWatcher(&fakePinger{}, time.Second, logging.NewJSON(io.Discard))

	var events []bool
	w.OnChange(func(online bool) { events = append(events, online) })

	assert.False(t, w.IsOnline())

	w.SetOnline(true)
	w.SetOnline(true) // no transition, no event
	w.SetOnline(false)

	assert.True(t, !w.IsOnline())
	assert.Equal(t, []bool{true, false}, events)
}

func TestRunProbesImmediately(t *testing.T) {
	p := &fakePinger{}
	w := NewWatcher(p, time.Hour, logging.NewJSON(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, w.IsOnline, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestRunDetectsOutage(t *testing.T) {
	p := &fakePinger{}
	w := NewWatcher(p, 5*time.Millisecond, logging.NewJSON(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, w.IsOnline, time.Second, time.Millisecond)

	p.fail.Store(true)
	require.Eventually(t, func() bool { return !w.IsOnline() }, time.Second, time.Millisecond)

	p.fail.Store(false)
	require.Eventually(t, w.IsOnline, time.Second, time.Millisecond)
}
