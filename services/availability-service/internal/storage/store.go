package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonease/libs/db"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/outbox"
)

// querier is satisfied by both the pool and a transaction so read queries can run on either.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: outboxRepo}
}

// Tx exposes the calendar queries bound to one database transaction.
type Tx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// InTx runs fn in a transaction that commits only when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&Tx{tx: tx, outbox: s.outbox})
	})
}

func (t *Tx) InsertEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

// IsConflict reports exclusion (23P01) and unique (23505) violations.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505")
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, model.ErrNotFound)
}

// translate maps driver errors onto the model sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	case IsConflict(err):
		return fmt.Errorf("%s: %w: %v", what, model.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
