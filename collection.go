package docudb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docudb/docudb/query"
	"github.com/docudb/docudb/schema"
)

// Collection is a named set of documents backed by one table with a
// JSON body column and a generated docid column.
type Collection struct {
	db    *sql.DB
	name  string
	check *schema.Validator
}

// Collection returns the named collection, creating its table and
// docid index if they do not exist yet. Idempotent.
func (d *Database) Collection(ctx context.Context, name string) (*Collection, error) {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS [%s] (body TEXT, docid TEXT GENERATED ALWAYS AS (json_extract(body, '$.docid')) VIRTUAL NOT NULL)",
		name)
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return nil, wrap(err, ddl)
	}

	idx := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS [%s_docid] ON [%s](docid)", name, name)
	if _, err := d.db.ExecContext(ctx, idx); err != nil {
		return nil, wrap(err, idx)
	}

	return &Collection{db: d.db, name: name}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// SetSchema attaches a validator that wholesale body writes must
// satisfy. A nil validator removes the check.
func (c *Collection) SetSchema(v *schema.Validator) { c.check = v }

// Create inserts a new document with a fresh id. Its body holds only
// the id field.
func (c *Collection) Create(ctx context.Context) (*Document, error) {
	id := uuid.NewString()
	body := fmt.Sprintf("{\"docid\":%q}", id)

	stmt := fmt.Sprintf("INSERT INTO [%s] (body) VALUES (?1)", c.name)
	if _, err := c.db.ExecContext(ctx, stmt, body); err != nil {
		return nil, wrap(err, stmt)
	}

	return &Document{coll: c, id: id, body: body}, nil
}

// Doc hydrates the document with the given id.
func (c *Collection) Doc(ctx context.Context, id string) (*Document, error) {
	stmt := fmt.Sprintf("SELECT body FROM [%s] WHERE docid = ?1", c.name)

	var body string
	err := c.db.QueryRowContext(ctx, stmt, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("document %q not found in %q", id, c.name)
	}
	if err != nil {
		return nil, wrap(err, stmt)
	}

	return &Document{coll: c, id: id, body: body}, nil
}

// Docs returns references to every document in the collection.
func (c *Collection) Docs(ctx context.Context) ([]DocumentRef, error) {
	return c.Find(ctx, query.All())
}

// Erase deletes the document with the given id. Deleting an id that
// does not exist is a not-found failure, not a silent no-op.
func (c *Collection) Erase(ctx context.Context, id string) error {
	stmt := fmt.Sprintf("DELETE FROM [%s] WHERE docid = ?1", c.name)

	res, err := c.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return wrap(err, stmt)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, stmt)
	}
	if n == 0 {
		return notFound("document %q not found in %q", id, c.name)
	}
	return nil
}

// FindOption adjusts how Find builds its statement.
type FindOption func(*findOptions)

type findOptions struct {
	order *query.Order
	limit int
}

// OrderBy sorts the result set on the given order field.
func OrderBy(o query.Order) FindOption {
	return func(fo *findOptions) { fo.order = &o }
}

// Limit caps the number of returned references.
func Limit(n int) FindOption {
	return func(fo *findOptions) { fo.limit = n }
}

// Find returns references to every document matching expr, in result
// order. The order field follows the same root-sigil dispatch as
// predicate paths; direction is ascending unless the Order says
// otherwise.
func (c *Collection) Find(ctx context.Context, expr query.Expr, opts ...FindOption) ([]DocumentRef, error) {
	var fo findOptions
	for _, opt := range opts {
		opt(&fo)
	}

	where, binder := expr.SQL()

	sel := "docid"
	orderClause := ""
	if fo.order != nil {
		sel = "docid, " + fo.order.Ref() + " AS sort_key"
		orderClause = " ORDER BY sort_key " + fo.order.Direction()
	}
	limitClause := ""
	if fo.limit > 0 {
		limitClause = fmt.Sprintf(" LIMIT %d", fo.limit)
	}

	stmt := fmt.Sprintf("SELECT %s FROM [%s] WHERE %s%s%s", sel, c.name, where, orderClause, limitClause)

	rows, err := c.db.QueryContext(ctx, stmt, binder.Args()...)
	if err != nil {
		return nil, wrap(err, stmt)
	}
	defer rows.Close()

	var refs []DocumentRef
	for rows.Next() {
		var id string
		if fo.order != nil {
			var sortKey any
			err = rows.Scan(&id, &sortKey)
		} else {
			err = rows.Scan(&id)
		}
		if err != nil {
			return nil, wrap(err, stmt)
		}
		refs = append(refs, DocumentRef{coll: c, id: id})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, stmt)
	}

	return refs, nil
}

// Count returns the number of documents matching expr. Pass
// query.All() to count the whole collection.
func (c *Collection) Count(ctx context.Context, expr query.Expr) (int64, error) {
	where, binder := expr.SQL()
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM [%s] WHERE %s", c.name, where)

	var n int64
	if err := c.db.QueryRowContext(ctx, stmt, binder.Args()...).Scan(&n); err != nil {
		return 0, wrap(err, stmt)
	}
	return n, nil
}

// IndexColumn pairs a projected column name with the JSON path it is
// computed from.
type IndexColumn struct {
	Name string
	Path string
}

// Index ensures a virtual column named name computed from path
// exists, then creates an index [name_idx] on it, optionally unique.
// Repeat calls with the same arguments succeed and leave one index.
//
// A unique index rejects duplicates at mutation time, from whichever
// write introduces the duplicate, not at index creation.
func (c *Collection) Index(ctx context.Context, name, path string, unique bool) error {
	return c.IndexColumns(ctx, name+"_idx", []IndexColumn{{Name: name, Path: path}}, unique)
}

// IndexColumns ensures a virtual column per entry, then creates one
// index named name over all of them, optionally unique. All ALTER and
// CREATE steps run inside one transaction, so a partially-applied
// index definition is never observable.
func (c *Collection) IndexColumns(ctx context.Context, name string, cols []IndexColumn, unique bool) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, "")
	}
	defer tx.Rollback() // No-op if committed

	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, "["+col.Name+"]")

		exists, err := c.columnExists(ctx, tx, col.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		ddl := fmt.Sprintf(
			"ALTER TABLE [%s] ADD COLUMN [%s] GENERATED ALWAYS AS (json_extract(body, '%s')) VIRTUAL",
			c.name, col.Name, col.Path)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return wrap(err, ddl)
		}
	}

	uniqueKw := ""
	if unique {
		uniqueKw = "UNIQUE "
	}
	ddl := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS [%s] ON [%s](%s)",
		uniqueKw, name, c.name, strings.Join(names, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return wrap(err, ddl)
	}

	if err := tx.Commit(); err != nil {
		return wrap(err, ddl)
	}
	return nil
}

// columnExists reports whether the table already declares the column.
// table_xinfo lists generated columns, table_info does not always.
func (c *Collection) columnExists(ctx context.Context, tx *sql.Tx, column string) (bool, error) {
	stmt := fmt.Sprintf("SELECT 1 FROM pragma_table_xinfo('%s') WHERE name = ?1", c.name)

	var one int
	err := tx.QueryRowContext(ctx, stmt, column).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap(err, stmt)
	}
	return true, nil
}
