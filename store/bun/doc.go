// Package bunstore implements store.Store using the Bun ORM with
// PostgreSQL dialect. Suitable for teams already using Bun elsewhere in
// their stack.
//
// Pass an existing *bun.DB through New — the store never closes a db it
// did not open — or let OpenDSN build the connector:
//
//	import (
//	    "github.com/uptrace/bun"
//	    "github.com/uptrace/bun/dialect/pgdialect"
//	    "github.com/uptrace/bun/driver/pgdriver"
//	    bunstore "github.com/xraph/delayq/store/bun"
//	)
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	store := bunstore.New(db)
//	store.Migrate(ctx)
package bunstore
