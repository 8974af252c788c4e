// Package docudb is a document-oriented access layer over SQLite's
// JSON1 functions. A Database holds named Collections; each Collection
// maps to one table with a JSON body column and a generated,
// uniquely-indexed docid column. Documents are addressed by a
// 36-character id and mutated through SQLite's JSON mutation
// primitives, one parameterized statement per operation.
package docudb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// backupPageBatch is the number of pages copied per backup step.
const backupPageBatch = 64

// Database is an open document store.
//
// The connection pool is limited to a single connection: SQLite
// supports one writer at a time, and the single connection keeps
// statements executing in the order issued.
type Database struct {
	db *sql.DB
}

// Open creates or opens a database at the given path. ":memory:"
// opens an in-memory store.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement on
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Database, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: fmt.Sprintf("open %q", path), Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &Error{Kind: KindConnection, Message: fmt.Sprintf("connect to %q", path), Err: err}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Collection and Document operations.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Path returns the file path of the main database, or the empty
// string for an in-memory store.
func (d *Database) Path(ctx context.Context) (string, error) {
	rows, err := d.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return "", wrap(err, "PRAGMA database_list")
	}
	defer rows.Close()

	for rows.Next() {
		var seq int
		var name, file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return "", wrap(err, "PRAGMA database_list")
		}
		if name.String == "main" {
			return file.String, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", wrap(err, "PRAGMA database_list")
	}
	return "", notFound("main database not listed")
}

// Backup copies the database to a new file at dest using the online
// backup API. If progress is non-nil it is called after every copied
// batch with the number of pages remaining and the total page count.
func (d *Database) Backup(ctx context.Context, dest string, progress func(remaining, total int)) error {
	destDB, err := sql.Open(driverName, dest)
	if err != nil {
		return &Error{Kind: KindConnection, Message: fmt.Sprintf("open backup target %q", dest), Err: err}
	}
	defer destDB.Close()

	srcConn, err := d.db.Conn(ctx)
	if err != nil {
		return &Error{Kind: KindConnection, Message: "acquire source connection", Err: err}
	}
	defer srcConn.Close()

	destConn, err := destDB.Conn(ctx)
	if err != nil {
		return &Error{Kind: KindConnection, Message: "acquire backup connection", Err: err}
	}
	defer destConn.Close()

	return srcConn.Raw(func(rawSrc any) error {
		return destConn.Raw(func(rawDest any) error {
			src, ok := rawSrc.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("source connection is not sqlite3")
			}
			dst, ok := rawDest.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("backup connection is not sqlite3")
			}

			bk, err := dst.Backup("main", src, "main")
			if err != nil {
				return &Error{Kind: KindExecution, Message: "start backup", Err: err}
			}
			defer bk.Finish()

			for {
				done, err := bk.Step(backupPageBatch)
				if err != nil {
					return &Error{Kind: KindExecution, Message: "backup step", Err: err}
				}
				if progress != nil {
					progress(bk.Remaining(), bk.PageCount())
				}
				if done {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}
		})
	})
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return wrap(err, pragma)
		}
	}

	return nil
}
