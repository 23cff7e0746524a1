package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dualcal/internal/dbx"
	"github.com/dmitrijs2005/dualcal/internal/roles"
)

type ClaimsStore struct {
	db dbx.DBTX
}

func NewClaimsStore(db dbx.DBTX) *ClaimsStore {
	return &ClaimsStore{db: db}
}

func (r *ClaimsStore) SetClaims(ctx context.Context, uid string, c roles.Claims) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}

	query :=
		`INSERT INTO identity_claims (uid, claims)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (uid) DO UPDATE SET claims = EXCLUDED.claims, updated_at = now()
		 `

	if _, err := r.db.ExecContext(ctx, query, uid, string(raw)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *ClaimsStore) GetClaims(ctx context.Context, uid string) (roles.Claims, error) {
	query :=
		`SELECT claims FROM identity_claims
		 WHERE uid = $1
		 `

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, uid).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return roles.Claims{}, nil
		}
		return roles.Claims{}, fmt.Errorf("db error: %w", err)
	}

	var c roles.Claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return roles.Claims{}, fmt.Errorf("decode claims: %w", err)
	}
	return c, nil
}
