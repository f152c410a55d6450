// Package postgres implements the reservation store on PostgreSQL.
//
// The schema carries an exclusion constraint over (room_id, daterange) for
// APPROVED rows, so overlapping approvals are rejected by the database even
// when the application-level room lock is bypassed.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"roomreserve/internal/config"
	"roomreserve/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
)

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	reservations
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func Open(ctx context.Context, cfg config.PostgresConfig, logger *zerolog.Logger) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		pcfg.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info().Str("host", pcfg.ConnConfig.Host).Str("database", pcfg.ConnConfig.Database).Msg("postgres connected")
	return &Store{reservations: reservations{q: pool}, pool: pool, logger: logger}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// InTx runs fn in a SERIALIZABLE transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.ReservationStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{reservations{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

type txStore struct {
	reservations
}

func (s *txStore) InTx(_ context.Context, fn func(tx domain.ReservationStore) error) error {
	return fn(s)
}

// mapError turns constraint and serialization failures into ErrInvalidState.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeExclusionViolation:
		return fmt.Errorf("%w: overlaps an approved reservation for the room: %w", domain.ErrInvalidState, err)
	case codeSerializationFailure:
		return fmt.Errorf("%w: concurrent modification, retry the request: %w", domain.ErrInvalidState, err)
	default:
		return err
	}
}
