// Package database handles database connections.
//
// It wraps GORM to configure the MySQL connection (pool sizes, timeouts,
// DSN encoding) from the application configuration. A sqlite driver branch
// exists so tests can run against an in-memory database with the exact same
// access layer the service uses in production.
//
// The store offers atomic single-row writes and filter-based bulk
// deletes/updates, but no multi-table transactions; higher layers serialize
// writers with the per-group mutation lock instead.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
