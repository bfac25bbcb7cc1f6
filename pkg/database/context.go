package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type contextKey string

const (
	// ScopeKey is the context key for the connection repositories write through.
	ScopeKey contextKey = "dbScope"
)

// Querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetScope retrieves the scoped querier from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (Querier, bool) {
	q, ok := ctx.Value(ScopeKey).(Querier)
	return q, ok && q != nil
}

// SetScope stores a querier in context.
func SetScope(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, ScopeKey, q)
}
