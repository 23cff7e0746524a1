package store

import "sync"

// Feed is a Subscription with latest-wins delivery: a consumer that falls
// behind only sees the most recent snapshot.
type Feed struct {
	mu      sync.Mutex
	ch      chan Snapshot
	done    chan struct{}
	closed  bool
	onClose func()
}

// NewFeed returns an open feed. onClose, if not nil, runs once on Close.
func NewFeed(onClose func()) *Feed {
	return &Feed{
		ch:      make(chan Snapshot, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Publish replaces any undelivered snapshot with s. It never blocks and is a
// no-op after Close.
func (f *Feed) Publish(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
}

func (f *Feed) Snapshots() <-chan Snapshot {
	return f.ch
}

// Done is closed when the feed is closed.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Close is idempotent.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.done)
	close(f.ch)
	f.mu.Unlock()

	if f.onClose != nil {
		f.onClose()
	}
	return nil
}
