// Package redisstore keeps identity claims in Redis, one JSON value per uid.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dualcal:claims:"

// Options mirror the config fields used to reach Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

type ClaimsStore struct {
	db *redis.Client
}

// NewClaimsStore connects and pings the server.
func NewClaimsStore(ctx context.Context, o Options) (*ClaimsStore, error) {
	const op = "redisstore.NewClaimsStore"
	db := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ClaimsStore{db: db}, nil
}

func key(uid string) string {
	return keyPrefix + uid
}

func (s *ClaimsStore) SetClaims(ctx context.Context, uid string, c roles.Claims) error {
	const op = "redisstore.SetClaims"
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.db.Set(ctx, key(uid), raw, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *ClaimsStore) GetClaims(ctx context.Context, uid string) (roles.Claims, error) {
	const op = "redisstore.GetClaims"
	val, err := s.db.Get(ctx, key(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return roles.Claims{}, nil
	}
	if err != nil {
		return roles.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	var c roles.Claims
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return roles.Claims{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *ClaimsStore) Close() error {
	return s.db.Close()
}
