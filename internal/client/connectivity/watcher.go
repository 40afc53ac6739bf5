// Package connectivity tracks whether the remote server is reachable and
// notifies subscribers on transitions.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/logging"
)

// Pinger is the liveness probe, satisfied by the remote client.
type Pinger interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 3 * time.Second

// Watcher polls the server and exposes the current online/offline state.
type Watcher struct {
	pinger   Pinger
	interval time.Duration
	log      logging.Logger

	online atomic.Bool

	mu        sync.Mutex
	callbacks []func(online bool)
}

func NewWatcher(pinger Pinger, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{pinger: pinger, interval: interval, log: log}
}

// IsOnline reports the result of the most recent probe.
func (w *Watcher) IsOnline() bool {
	return w.online.Load()
}

// OnChange registers a callback invoked on every online/offline transition.
func (w *Watcher) OnChange(cb func(online bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// SetOnline updates the state and fires callbacks when it changed. Exported
// so tests and manual overrides can force a state.
func (w *Watcher) SetOnline(online bool) {
	if w.online.Swap(online) == online {
		return
	}

	w.mu.Lock()
	callbacks := make([]func(bool), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(online)
	}
}

func (w *Watcher) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := w.pinger.Ping(ctx)
	wasOnline := w.online.Load()
	if err != nil && wasOnline {
		w.log.Info(ctx, "connection lost, switching to offline mode")
	}
	if err == nil && !wasOnline {
		w.log.Info(ctx, "server reachable, switching to online mode")
	}
	w.SetOnline(err == nil)
}

// Run probes immediately, then on every tick until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	w.probe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
