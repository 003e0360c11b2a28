// Package database opens the gateway's SQLite store and applies schema
// migrations.
//
// The store holds nodes, their items and group members, and install codes.
// Open enables WAL and a busy timeout, restricts the file to 0600 and
// accepts ":memory:" for tests. Tables are declared STRICT.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are YYYYMMDD_HHMMSS_name.{up,down}.sql files applied in name
// order inside one transaction each. Keep them additive: new columns are
// nullable or carry a default.
package database
