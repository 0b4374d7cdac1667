// Package database provides SQLite connectivity for ForestOS Core.
//
// This package manages:
//   - Connection setup (WAL, busy timeout, foreign keys on)
//   - Embedded schema migrations with up/down files
//   - Transaction helpers and constraint-error classification
//
// All tables are STRICT and store times as RFC3339 UTC text; use
// Timestamp and ParseTimestamp rather than formatting by hand.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
