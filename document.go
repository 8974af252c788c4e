package docudb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/docudb/docudb/query"
)

// JSONType classifies what a JSON path currently resolves to.
// TypeNotFound is distinct from TypeNull: a missing path and an
// explicit null are different states.
type JSONType string

const (
	TypeNull     JSONType = "null"
	TypeTrue     JSONType = "true"
	TypeFalse    JSONType = "false"
	TypeInteger  JSONType = "integer"
	TypeReal     JSONType = "real"
	TypeString   JSONType = "text"
	TypeArray    JSONType = "array"
	TypeObject   JSONType = "object"
	TypeNotFound JSONType = "not-found"
)

// Document is a hydrated document: an id plus a client-side cached
// copy of the JSON body. Mutations mark the cache stale; Body
// refetches lazily. Field-level reads always go to the store.
type Document struct {
	coll  *Collection
	id    string
	body  string
	stale bool
}

// DocumentRef is an unhydrated (collection, id) handle. Doc performs
// a fresh read each time; the ref never caches a body.
type DocumentRef struct {
	coll *Collection
	id   string
}

// ID returns the document id.
func (r DocumentRef) ID() string { return r.id }

// Doc hydrates the reference into a full document.
func (r DocumentRef) Doc(ctx context.Context) (*Document, error) {
	return r.coll.Doc(ctx, r.id)
}

// Erase deletes the referenced document.
func (r DocumentRef) Erase(ctx context.Context) error {
	return r.coll.Erase(ctx, r.id)
}

// ID returns the document id.
func (d *Document) ID() string { return d.id }

// Body returns the JSON body, refetching from the store only when a
// mutation has invalidated the cached copy.
func (d *Document) Body(ctx context.Context) (string, error) {
	if d.stale {
		fresh, err := d.coll.Doc(ctx, d.id)
		if err != nil {
			return "", err
		}
		d.body = fresh.body
		d.stale = false
	}
	return d.body, nil
}

// SetBody replaces the whole JSON body. The docid field is re-asserted
// to the original id afterwards, so an overwrite cannot change the
// document's identity. If the collection has a schema attached, the
// body must satisfy it.
func (d *Document) SetBody(ctx context.Context, body string) error {
	if d.coll.check != nil {
		if err := d.coll.check.Validate(body); err != nil {
			return err
		}
	}
	stmt := fmt.Sprintf("UPDATE [%s] SET body = json_set(?1, '$.docid', ?2) WHERE docid = ?2", d.coll.name)
	return d.exec(ctx, stmt, body, d.id)
}

// Set writes value at path, creating the path if absent.
func (d *Document) Set(ctx context.Context, path string, v query.Value) error {
	return d.mutate(ctx, "json_set", path, v)
}

// Insert writes value at path only if the path is absent; otherwise
// the document is left unchanged.
func (d *Document) Insert(ctx context.Context, path string, v query.Value) error {
	return d.mutate(ctx, "json_insert", path, v)
}

// Replace writes value at path only if the path exists; otherwise the
// document is left unchanged.
func (d *Document) Replace(ctx context.Context, path string, v query.Value) error {
	return d.mutate(ctx, "json_replace", path, v)
}

// Patch deep-merges a JSON fragment into the body, RFC 7396 style:
// objects merge recursively, a null field deletes that field, and
// every other value (arrays included) replaces wholesale.
func (d *Document) Patch(ctx context.Context, fragment string) error {
	stmt := fmt.Sprintf("UPDATE [%s] SET body = json_patch(body, ?1) WHERE docid = ?2", d.coll.name)
	return d.exec(ctx, stmt, fragment, d.id)
}

// Erase deletes the document. Every later operation on this identity
// fails with a not-found error.
func (d *Document) Erase(ctx context.Context) error {
	if err := d.coll.Erase(ctx, d.id); err != nil {
		return err
	}
	d.stale = true
	return nil
}

func (d *Document) mutate(ctx context.Context, fn, path string, v query.Value) error {
	stmt := fmt.Sprintf("UPDATE [%s] SET body = %s(body, ?1, ?2) WHERE docid = ?3", d.coll.name, fn)
	return d.exec(ctx, stmt, path, query.Arg(v), d.id)
}

// exec runs one mutation statement. Zero affected rows means the
// document no longer exists. Any successful mutation invalidates the
// cached body.
func (d *Document) exec(ctx context.Context, stmt string, args ...any) error {
	res, err := d.coll.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return wrap(err, stmt)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, stmt)
	}
	if n == 0 {
		return notFound("document %q not found in %q", d.id, d.coll.name)
	}
	d.stale = true
	return nil
}

// GetType returns the JSON type at path, or TypeNotFound when the
// path does not resolve.
func (d *Document) GetType(ctx context.Context, path string) (JSONType, error) {
	stmt := fmt.Sprintf("SELECT json_type(body, ?1) FROM [%s] WHERE docid = ?2", d.coll.name)

	var t sql.NullString
	err := d.coll.db.QueryRowContext(ctx, stmt, path, d.id).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("document %q not found in %q", d.id, d.coll.name)
	}
	if err != nil {
		return "", wrap(err, stmt)
	}
	if !t.Valid {
		return TypeNotFound, nil
	}
	return JSONType(t.String), nil
}

// GetString returns the text value at path. A missing path and an
// explicit null both fail, with distinct messages; use GetType to
// discriminate programmatically.
func (d *Document) GetString(ctx context.Context, path string) (string, error) {
	var v sql.NullString
	if err := d.getScalar(ctx, path, &v); err != nil {
		return "", err
	}
	return v.String, nil
}

// GetNumber returns the integer value at path.
func (d *Document) GetNumber(ctx context.Context, path string) (int64, error) {
	var v sql.NullInt64
	if err := d.getScalar(ctx, path, &v); err != nil {
		return 0, err
	}
	return v.Int64, nil
}

// GetReal returns the floating point value at path.
func (d *Document) GetReal(ctx context.Context, path string) (float64, error) {
	var v sql.NullFloat64
	if err := d.getScalar(ctx, path, &v); err != nil {
		return 0, err
	}
	return v.Float64, nil
}

// getScalar extracts path into dest, separating the three read
// outcomes: document gone, path missing, path explicitly null.
func (d *Document) getScalar(ctx context.Context, path string, dest any) error {
	stmt := fmt.Sprintf("SELECT json_extract(body, ?1), json_type(body, ?1) FROM [%s] WHERE docid = ?2", d.coll.name)

	var t sql.NullString
	err := d.coll.db.QueryRowContext(ctx, stmt, path, d.id).Scan(dest, &t)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("document %q not found in %q", d.id, d.coll.name)
	}
	if err != nil {
		return wrap(err, stmt)
	}
	if !t.Valid {
		return notFound("path %q not found in document %q", path, d.id)
	}
	if t.String == string(TypeNull) {
		return notFound("path %q in document %q is null", path, d.id)
	}
	return nil
}

// GetArrayLength returns the length of the array at path. A path that
// resolves to anything other than an array fails.
func (d *Document) GetArrayLength(ctx context.Context, path string) (int, error) {
	stmt := fmt.Sprintf("SELECT json_type(body, ?1), json_array_length(body, ?1) FROM [%s] WHERE docid = ?2", d.coll.name)

	var t sql.NullString
	var length sql.NullInt64
	err := d.coll.db.QueryRowContext(ctx, stmt, path, d.id).Scan(&t, &length)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("document %q not found in %q", d.id, d.coll.name)
	}
	if err != nil {
		return 0, wrap(err, stmt)
	}
	if !t.Valid {
		return 0, notFound("path %q not found in document %q", path, d.id)
	}
	if JSONType(t.String) != TypeArray {
		return 0, notFound("path %q in document %q is %s, not an array", path, d.id, t.String)
	}
	return int(length.Int64), nil
}

// GetObjectKeys returns the keys of the object at path. A path that
// resolves to anything other than an object fails.
func (d *Document) GetObjectKeys(ctx context.Context, path string) ([]string, error) {
	t, err := d.GetType(ctx, path)
	if err != nil {
		return nil, err
	}
	if t == TypeNotFound {
		return nil, notFound("path %q not found in document %q", path, d.id)
	}
	if t != TypeObject {
		return nil, notFound("path %q in document %q is %s, not an object", path, d.id, t)
	}

	stmt := fmt.Sprintf("SELECT j.key FROM [%s], json_each(body, ?1) AS j WHERE docid = ?2", d.coll.name)

	rows, err := d.coll.db.QueryContext(ctx, stmt, path, d.id)
	if err != nil {
		return nil, wrap(err, stmt)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, wrap(err, stmt)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, stmt)
	}
	return keys, nil
}

// Scan reads several fields in one statement, converting each into
// the corresponding destination pointer, database/sql style. The
// number of paths must match the number of destinations, and each
// value must convert into its destination's type.
//
// A missing path and an explicit null both extract to NULL here, and
// both fail conversion into a non-nullable destination; use GetType
// to discriminate, or a sql.Null* destination to tolerate them.
func (d *Document) Scan(ctx context.Context, paths []string, dest ...any) error {
	if len(paths) == 0 || len(paths) != len(dest) {
		return &Error{
			Kind:    KindStatement,
			Message: fmt.Sprintf("scan: %d paths for %d destinations", len(paths), len(dest)),
		}
	}

	cols := make([]string, len(paths))
	args := make([]any, 0, len(paths)+1)
	for i, path := range paths {
		cols[i] = fmt.Sprintf("json_extract(body, ?%d)", i+1)
		args = append(args, path)
	}
	args = append(args, d.id)

	stmt := fmt.Sprintf("SELECT %s FROM [%s] WHERE docid = ?%d",
		strings.Join(cols, ", "), d.coll.name, len(paths)+1)

	err := d.coll.db.QueryRowContext(ctx, stmt, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("document %q not found in %q", d.id, d.coll.name)
	}
	if err != nil {
		return wrap(err, stmt)
	}
	return nil
}
