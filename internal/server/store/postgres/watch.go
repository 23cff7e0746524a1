package postgres

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/jackc/pgx/v5"
)

// listener waits for NOTIFY payloads on a dedicated connection.
type listener interface {
	Wait(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

type listenFunc func(ctx context.Context, dsn string) (listener, error)

type pgxListener struct {
	conn *pgx.Conn
}

func pgxListen(ctx context.Context, dsn string) (listener, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("listen connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &pgxListener{conn: conn}, nil
}

func (l *pgxListener) Wait(ctx context.Context) (string, error) {
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (l *pgxListener) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}

// Watch opens a dedicated LISTEN connection, publishes the current result
// set and re-queries on every notification for q's collection.
func (r *RecordStore) Watch(ctx context.Context, q store.Query) (store.Subscription, error) {
	ln, err := r.listen(ctx, r.dsn)
	if err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	feed := store.NewFeed(cancel)

	go func() {
		defer func() {
			_ = ln.Close(context.Background())
			_ = feed.Close()
		}()

		r.publish(wctx, feed, q)
		for {
			payload, err := ln.Wait(wctx)
			if err != nil {
				if wctx.Err() == nil {
					r.logger.Error(wctx, "listen failed", logging.Err(err))
					feed.Publish(store.Snapshot{Err: err})
				}
				return
			}
			if payload == q.Collection {
				r.publish(wctx, feed, q)
			}
		}
	}()

	return feed, nil
}

func (r *RecordStore) publish(ctx context.Context, feed *store.Feed, q store.Query) {
	recs, err := r.Query(ctx, q)
	if err != nil && ctx.Err() != nil {
		return
	}
	feed.Publish(store.Snapshot{Records: recs, Err: err})
}
