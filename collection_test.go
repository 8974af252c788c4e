package docudb

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docudb/docudb/query"
	"github.com/docudb/docudb/schema"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "test_collection")
	require.NoError(t, err)

	doc, err := coll.Create(ctx)
	require.NoError(t, err)

	// A freshly generated id is 36 characters long.
	assert.Len(t, doc.ID(), 36)

	// The body holds the id field and nothing else.
	body, err := doc.Body(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("{\"docid\":%q}", doc.ID()), body)
}

func TestFindByLike(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "test_collection")
	require.NoError(t, err)

	doc, err := coll.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, doc.SetBody(ctx, `{"text":"Hello, world"}`))

	refs, err := coll.Find(ctx, query.Like("$.text", "%world%"))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, doc.ID(), refs[0].ID())
}

func TestFindByRegexp(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "test_collection")
	require.NoError(t, err)

	alice, err := coll.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, alice.Set(ctx, "$.name", query.String("alice")))

	bob, err := coll.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, bob.Set(ctx, "$.name", query.String("bob")))

	refs, err := coll.Find(ctx, query.Regexp("$.name", "^al"))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, alice.ID(), refs[0].ID())
}

func TestFindComparisonOperators(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "comparison")
	require.NoError(t, err)

	for _, score := range []int32{5, 15, 25} {
		doc, err := coll.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, doc.Set(ctx, "$.score", query.Int(score)))
	}

	gt10, err := coll.Find(ctx, query.Gt("$.score", query.Int(10)))
	require.NoError(t, err)
	assert.Len(t, gt10, 2)

	lt20, err := coll.Find(ctx, query.Lt("$.score", query.Int(20)))
	require.NoError(t, err)
	assert.Len(t, lt20, 2)
}

func TestFindComposedPredicates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "composed")
	require.NoError(t, err)

	for _, u := range []struct {
		name  string
		score int32
	}{{"alice", 10}, {"bob", 20}, {"carol", 30}} {
		doc, err := coll.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, doc.Set(ctx, "$.user", query.String(u.name)))
		require.NoError(t, doc.Set(ctx, "$.score", query.Int(u.score)))
	}

	refs, err := coll.Find(ctx, query.And(
		query.Gt("$.score", query.Int(5)),
		query.Lt("$.score", query.Int(25)),
	))
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	refs, err = coll.Find(ctx, query.Or(
		query.Eq("$.user", query.String("alice")),
		query.Eq("$.user", query.String("carol")),
	))
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestNullVersusMissing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "null_test")
	require.NoError(t, err)

	withNull, err := coll.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, withNull.Set(ctx, "$.field", query.Null{}))

	without, err := coll.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, without.Set(ctx, "$.other", query.Int(123)))

	// Only the document with an explicit null matches.
	refs, err := coll.Find(ctx, query.Eq("$.field", query.Null{}))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, withNull.ID(), refs[0].ID())

	// GetType distinguishes the two states.
	typ, err := withNull.GetType(ctx, "$.field")
	require.NoError(t, err)
	assert.Equal(t, TypeNull, typ)

	typ, err = without.GetType(ctx, "$.field")
	require.NoError(t, err)
	assert.Equal(t, TypeNotFound, typ)
}

func TestFindOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "find_order_limit")
	require.NoError(t, err)

	for _, v := range []int32{10, 30, 20} {
		doc, err := coll.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, doc.Set(ctx, "$.value", query.Int(v)))
	}

	asc, err := coll.Find(ctx, query.Gt("$.value", query.Int(0)),
		OrderBy(query.Asc("$.value")))
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []int64{10, 20, 30}, fieldValues(t, ctx, asc, "$.value"))

	desc, err := coll.Find(ctx, query.Gt("$.value", query.Int(0)),
		OrderBy(query.Desc("$.value")), Limit(2))
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, []int64{30, 20}, fieldValues(t, ctx, desc, "$.value"))
}

func fieldValues(t *testing.T, ctx context.Context, refs []DocumentRef, path string) []int64 {
	t.Helper()
	values := make([]int64, 0, len(refs))
	for _, ref := range refs {
		doc, err := ref.Doc(ctx)
		require.NoError(t, err)
		n, err := doc.GetNumber(ctx, path)
		require.NoError(t, err)
		values = append(values, n)
	}
	return values
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "count_test")
	require.NoError(t, err)

	n, err := coll.Count(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	first, err := coll.Create(ctx)
	require.NoError(t, err)
	_, err = coll.Create(ctx)
	require.NoError(t, err)

	n, err = coll.Count(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, first.Erase(ctx))
	n, err = coll.Count(ctx, query.All())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCountWithPredicate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "count_query_test")
	require.NoError(t, err)

	for _, item := range []struct{ kind, name string }{
		{"fruit", "apple"}, {"fruit", "banana"}, {"vegetable", "carrot"}, {"fruit", "pear"},
	} {
		doc, err := coll.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, doc.Set(ctx, "$.type", query.String(item.kind)))
		require.NoError(t, doc.Set(ctx, "$.name", query.String(item.name)))
	}

	n, err := coll.Count(ctx, query.Eq("$.type", query.String("fruit")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = coll.Count(ctx, query.Eq("$.name", query.String("potato")))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestIndexIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "index_test")
	require.NoError(t, err)

	require.NoError(t, coll.Index(ctx, "user", "$.user", false))
	require.NoError(t, coll.Index(ctx, "user", "$.user", false))

	// One index over the projected column, not two.
	var n int
	err = db.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'user_idx'").Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUniqueIndexRejectsDuplicateAtWrite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "unique_test")
	require.NoError(t, err)

	require.NoError(t, coll.Index(ctx, "user", "$.user", true))

	first, err := coll.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "$.user", query.String("wario")))

	second, err := coll.Create(ctx)
	require.NoError(t, err)
	err = second.Set(ctx, "$.user", query.String("wario"))
	require.Error(t, err)
	assert.True(t, IsConstraint(err))
}

func TestMultiColumnUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "index_multi_test")
	require.NoError(t, err)

	seed := func(a, b int32) error {
		doc, err := coll.Create(ctx)
		require.NoError(t, err)
		if err := doc.Set(ctx, "$.a", query.Int(a)); err != nil {
			return err
		}
		return doc.Set(ctx, "$.b", query.Int(b))
	}

	require.NoError(t, seed(1, 10))
	require.NoError(t, seed(2, 20))

	cols := []IndexColumn{{Name: "a_idx", Path: "$.a"}, {Name: "b_idx", Path: "$.b"}}
	require.NoError(t, coll.IndexColumns(ctx, "multi_idx", cols, true))
	// Idempotent for the multi-column form as well.
	require.NoError(t, coll.IndexColumns(ctx, "multi_idx", cols, true))

	err = seed(1, 10)
	require.Error(t, err)
	assert.True(t, IsConstraint(err))

	require.NoError(t, seed(3, 30))
}

func TestDocsEnumeratesEverything(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "docs_test")
	require.NoError(t, err)

	want := map[string]bool{}
	for i := 0; i < 3; i++ {
		doc, err := coll.Create(ctx)
		require.NoError(t, err)
		want[doc.ID()] = true
	}

	refs, err := coll.Docs(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	for _, ref := range refs {
		assert.True(t, want[ref.ID()], "unexpected ref %s", ref.ID())
	}
}

func TestEraseMissingDocumentFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "erase_test")
	require.NoError(t, err)

	err = coll.Erase(ctx, "no-such-id")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSchemaEnforcedOnSetBody(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "schema_test")
	require.NoError(t, err)

	check, err := schema.New(`{"type": "object", "required": ["name"]}`)
	require.NoError(t, err)
	coll.SetSchema(check)

	doc, err := coll.Create(ctx)
	require.NoError(t, err)

	err = doc.SetBody(ctx, `{"score": 10}`)
	require.Error(t, err)
	assert.ErrorContains(t, err, "rejected by schema")

	require.NoError(t, doc.SetBody(ctx, `{"name": "alice"}`))

	// Detaching the validator lifts the check.
	coll.SetSchema(nil)
	require.NoError(t, doc.SetBody(ctx, `{"score": 10}`))
}

func TestMalformedPredicatePathSurfacesStatementError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	coll, err := db.Collection(ctx, "bad_path")
	require.NoError(t, err)

	_, err = coll.Create(ctx)
	require.NoError(t, err)

	_, err = coll.Find(ctx, query.Eq("$.[", query.Int(1)))
	require.Error(t, err)

	// The statement text is carried for diagnosis.
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.SQL, "json_extract")
}
