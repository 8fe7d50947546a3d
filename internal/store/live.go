package store

import (
	"context"
	"sync"

	"github.com/tkingovr/companybook/api"
)

// liveView is the cached projection of a backend's table plus its
// subscribers. Backends call commit only after a durable write succeeds.
type liveView struct {
	mu      sync.RWMutex
	records []api.Company
	version uint64
	closed  bool

	subs    map[int]chan api.Snapshot
	nextSub int

	// done is closed by close and releases every subscription watcher.
	done     chan struct{}
	watchers sync.WaitGroup
}

func newLiveView(initial []api.Company) *liveView {
	records := make([]api.Company, len(initial))
	copy(records, initial)
	return &liveView{
		records: records,
		version: uint64(len(records)),
		subs:    make(map[int]chan api.Snapshot),
		done:    make(chan struct{}),
	}
}

// commit appends c and publishes the new snapshot to every subscriber.
func (v *liveView) commit(c api.Company) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.records = append(v.records, c)
	v.version++
	for _, ch := range v.subs {
		offer(ch, v.snapshotLocked())
	}
}

func (v *liveView) snapshot() api.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshotLocked()
}

func (v *liveView) snapshotLocked() api.Snapshot {
	companies := make([]api.Company, len(v.records))
	copy(companies, v.records)
	return api.Snapshot{Version: v.version, Companies: companies}
}

func (v *liveView) subscribe(ctx context.Context) (<-chan api.Snapshot, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan api.Snapshot, 1)
	if v.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- v.snapshotLocked()

	id := v.nextSub
	v.nextSub++
	v.subs[id] = ch

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			v.mu.Lock()
			defer v.mu.Unlock()
			if sub, ok := v.subs[id]; ok {
				delete(v.subs, id)
				close(sub)
			}
		})
	}

	v.watchers.Add(1)
	go func() {
		defer v.watchers.Done()
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		case <-v.done:
		}
	}()

	return ch, cancel
}

func (v *liveView) subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}

func (v *liveView) close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	close(v.done)
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
}

// offer replaces whatever snapshot is still buffered in ch with snap.
// Callers hold v.mu, so they are the only sender.
func offer(ch chan api.Snapshot, snap api.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
