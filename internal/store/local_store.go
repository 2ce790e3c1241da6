// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/soffoalbert/buzo-sync/internal/logger"
)

type sqliteLocalStore struct {
	db     *DB
	logger *logger.Logger
}

// NewLocalStore returns a LocalStore backed by the kv table of db.
func NewLocalStore(db *DB, log *logger.Logger) LocalStore {
	return &sqliteLocalStore{db: db, logger: log}
}

func (s *sqliteLocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("value").
		From("kv").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, mapSQLiteError(err))
	}

	return value, nil
}

func (s *sqliteLocalStore) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := sq.Insert("kv").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build set query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("key", key).Msg("local store set failed")
		return fmt.Errorf("set %q: %w", key, mapSQLiteError(err))
	}

	return nil
}

func (s *sqliteLocalStore) Remove(ctx context.Context, key string) error {
	query, args, err := sq.Delete("kv").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).Str("key", key).Msg("local store remove failed")
		return fmt.Errorf("remove %q: %w", key, mapSQLiteError(err))
	}

	return nil
}

func (s *sqliteLocalStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := sq.Select("key").
		From("kv").
		Where(sq.Like{"key": prefix + "%"}).
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keys query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keys %q: %w", prefix, mapSQLiteError(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys %q: %w", prefix, err)
	}

	return keys, nil
}

// mapSQLiteError translates driver-level failures into the store's error
// taxonomy. Disk exhaustion is the one class the caller treats specially.
func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
		return fmt.Errorf("%w: %s", ErrStorageFull, sqliteErr.Error())
	}
	return err
}
