package services

import (
	"sync"

	"github.com/dmitrijs2005/dualcal/internal/server/store"
)

// Update is one typed snapshot of a watched query.
type Update[T any] struct {
	Items []T
	Err   error
}

// Stream turns a store subscription into typed updates. The owner must Close
// it; Updates is closed once the stream ends.
type Stream[T any] struct {
	sub     store.Subscription
	out     chan Update[T]
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func newStream[T any](sub store.Subscription, decode func(store.Record) (T, error), keep func(T) bool, onClose func()) *Stream[T] {
	s := &Stream[T]{
		sub:     sub,
		out:     make(chan Update[T]),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	go s.run(decode, keep)
	return s
}

func (s *Stream[T]) run(decode func(store.Record) (T, error), keep func(T) bool) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case snap, ok := <-s.sub.Snapshots():
			if !ok {
				return
			}
			u := convert(snap, decode, keep)
			select {
			case s.out <- u:
			case <-s.done:
				return
			}
		}
	}
}

func convert[T any](snap store.Snapshot, decode func(store.Record) (T, error), keep func(T) bool) Update[T] {
	if snap.Err != nil {
		return Update[T]{Err: snap.Err}
	}
	items := make([]T, 0, len(snap.Records))
	for _, r := range snap.Records {
		v, err := decode(r)
		if err != nil {
			return Update[T]{Err: err}
		}
		if keep != nil && !keep(v) {
			continue
		}
		items = append(items, v)
	}
	return Update[T]{Items: items}
}

func (s *Stream[T]) Updates() <-chan Update[T] {
	return s.out
}

// Close is idempotent.
func (s *Stream[T]) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return err
}
