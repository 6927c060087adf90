// Package postgres implements store.Store on PostgreSQL using pgx/v5.
//
// The conditional start is a single UPDATE filtered on the row's current
// state; Postgres row-level atomicity guarantees exactly one winner per
// task among competing dispatchers. Schema migrations are embedded SQL
// files applied in filename order by Migrate.
//
// Usage:
//
//	s, err := postgres.New(ctx, "postgres://localhost:5432/delayq")
//	if err != nil { ... }
//	if err := s.Migrate(ctx); err != nil { ... }
package postgres
