package sync

import (
	"context"
	stdsync "sync"
)

type inflightKey struct {
	op string
	id int64
}

// inflight tracks running syncs per entity. Starting a sync for an entity
// that is already syncing cancels the older run.
type inflight struct {
	mu      stdsync.Mutex
	seq     uint64
	running map[inflightKey]inflightRun
}

type inflightRun struct {
	seq    uint64
	cancel context.CancelFunc
}

func newInflight() *inflight {
	return &inflight{running: make(map[inflightKey]inflightRun)}
}

// begin derives a context for a sync of (op, id), cancelling any run
// already registered under that key. done must be called when the run ends.
func (f *inflight) begin(ctx context.Context, op string, id int64) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	key := inflightKey{op, id}

	f.mu.Lock()
	if prev, ok := f.running[key]; ok {
		prev.cancel()
	}
	f.seq++
	seq := f.seq
	f.running[key] = inflightRun{seq: seq, cancel: cancel}
	f.mu.Unlock()

	return ctx, func() {
		f.mu.Lock()
		if cur, ok := f.running[key]; ok && cur.seq == seq {
			delete(f.running, key)
		}
		f.mu.Unlock()
		cancel()
	}
}

// size reports the number of registered runs.
func (f *inflight) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.running)
}
