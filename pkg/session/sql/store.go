// Package sessionsql keeps the credential slots in a postgres table, one
// row per profile and slot.
package sessionsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"
)

const DefaultTimeout = 3 * time.Second

const (
	queryLoad   = `SELECT value FROM credential_slots WHERE profile = $1 AND slot = $2`
	querySave   = `INSERT INTO credential_slots (profile, slot, value) VALUES ($1, $2, $3) ON CONFLICT (profile, slot) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	queryRemove = `DELETE FROM credential_slots WHERE profile = $1 AND slot = $2`
)

type Option func(*Store)

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

type Store struct {
	db      *pgxpool.Pool
	profile string
	timeout time.Duration
	tracer  trace.Tracer
}

func NewStore(db *pgxpool.Pool, profile string, opts ...Option) *Store {
	s := &Store{
		db:      db,
		profile: profile,
		timeout: DefaultTimeout,
		tracer:  otel.Tracer("github.com/openkcm/session-client/pkg/session/sql"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Store) Load(key string) (string, bool) {
	ctx, end := s.start("credential_slots.load", key)
	var err error
	defer func() { end(err) }()

	var value string
	err = s.db.QueryRow(ctx, queryLoad, s.profile, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return "", false
	}
	if err != nil {
		slogctx.Warn(ctx, "Could not load a credential slot", "slot", key, "error", err)
		return "", false
	}

	return value, true
}

func (s *Store) Save(key, value string) {
	ctx, end := s.start("credential_slots.save", key)
	var err error
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, querySave, s.profile, key, value); err != nil {
		slogctx.Warn(ctx, "Could not save a credential slot", "slot", key, "error", err)
	}
}

func (s *Store) Remove(key string) {
	ctx, end := s.start("credential_slots.remove", key)
	var err error
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, queryRemove, s.profile, key); err != nil {
		slogctx.Warn(ctx, "Could not remove a credential slot", "slot", key, "error", err)
	}
}

func (s *Store) start(name, slot string) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("session.profile", s.profile),
		attribute.String("session.slot", slot),
	))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		cancel()
	}
}
