// Package postgres stores documents and identity claims in PostgreSQL.
//
// Documents live in one JSONB table keyed by (collection, id). Every write
// emits a NOTIFY on NotifyChannel carrying the collection name, which live
// queries LISTEN for.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/dbx"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"github.com/dmitrijs2005/dualcal/internal/server/store"
	"github.com/google/uuid"
)

// NotifyChannel is the LISTEN/NOTIFY channel for document changes.
const NotifyChannel = "dualcal_records"

type RecordStore struct {
	db     *sql.DB
	dsn    string
	listen listenFunc
	logger logging.Logger
}

// NewRecordStore returns a store over db. dsn is used to open the dedicated
// connections that live queries listen on.
func NewRecordStore(db *sql.DB, dsn string, l logging.Logger) *RecordStore {
	return &RecordStore{
		db:     db,
		dsn:    dsn,
		listen: pgxListen,
		logger: l.With("module", "postgres_records"),
	}
}

func (r *RecordStore) Get(ctx context.Context, collection, id string) (store.Record, error) {
	query :=
		`SELECT fields FROM documents
		 WHERE collection = $1 AND id = $2
		 `

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Record{}, common.ErrorNotFound
		}
		return store.Record{}, fmt.Errorf("db error: %w", err)
	}

	return decodeRow(id, raw)
}

func (r *RecordStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := marshalFields(fields)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO documents (collection, id, fields)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
		 `

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, query, collection, id, doc); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return notify(ctx, tx, collection)
	})
}

func (r *RecordStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	patch, err := marshalFields(partial)
	if err != nil {
		return err
	}

	query :=
		`UPDATE documents SET fields = fields || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2
		 `

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, query, collection, id, patch)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%s/%s: %w", collection, id, common.ErrorNotFound)
		}
		return notify(ctx, tx, collection)
	})
}

func (r *RecordStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := r.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RecordStore) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]store.Record, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// buildSelect renders q as SQL. Non-null filters become one JSONB
// containment test; null filters match a missing key or JSON null.
func buildSelect(q store.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{q.Collection}

	b.WriteString("SELECT id, fields FROM documents WHERE collection = $1")

	contains := map[string]any{}
	for _, f := range q.Filters {
		if f.Value == nil {
			args = append(args, f.Field)
			b.WriteString(" AND COALESCE(fields -> $" + strconv.Itoa(len(args)) + ", 'null'::jsonb) = 'null'::jsonb")
			continue
		}
		contains[f.Field] = f.Value
	}
	if len(contains) > 0 {
		doc, err := marshalFields(contains)
		if err != nil {
			return "", nil, err
		}
		args = append(args, doc)
		b.WriteString(" AND fields @> $" + strconv.Itoa(len(args)) + "::jsonb")
	}

	if q.OrderBy.Field != "" {
		args = append(args, q.OrderBy.Field)
		b.WriteString(" ORDER BY fields -> $" + strconv.Itoa(len(args)))
		if q.OrderBy.Desc {
			b.WriteString(" DESC")
		}
		b.WriteString(", id")
	} else {
		b.WriteString(" ORDER BY id")
	}

	return b.String(), args, nil
}

func notify(ctx context.Context, tx dbx.DBTX, collection string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, collection); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func marshalFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

func decodeRow(id string, raw []byte) (store.Record, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return store.Record{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return store.Record{ID: id, Fields: fields}, nil
}
