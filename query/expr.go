// Package query builds typed, composable predicates over JSON paths
// and renders them to parameterized SQL fragments.
//
// A path starting with the root sigil '$' addresses a location inside
// the document's JSON body and renders as json_extract(body, path).
// Any other string is treated as a literal column name, which lets the
// same predicate vocabulary address projected index columns.
//
// Values are never interpolated into the rendered text; every value
// goes through a ?N placeholder and the accompanying Binder.
package query

import (
	"fmt"
	"strings"
)

// Expr is any composed predicate. It is the one concrete type
// collection operations accept; the node set behind it is closed
// (binary predicate, AND, OR). The zero Expr matches every document.
type Expr struct {
	node node
}

type node interface {
	render(sb *strings.Builder, b *Binder)
}

// binary is a single (path, operator, value) predicate.
type binary struct {
	path  string
	op    string
	value Value
}

// gate combines two already-built sub-expressions with AND or OR.
type gate struct {
	left  node
	right node
	conn  string
}

// All returns an expression matching every document.
func All() Expr { return Expr{} }

// Eq matches documents where path equals v. Eq against Null matches
// an explicit JSON null but not a missing path.
func Eq(path string, v Value) Expr { return Expr{binary{path, "=", v}} }

// Neq matches documents where path differs from v. Neq against Null
// matches documents where the path exists and is not null.
func Neq(path string, v Value) Expr { return Expr{binary{path, "!=", v}} }

// Gt matches documents where path is greater than v.
func Gt(path string, v Value) Expr { return Expr{binary{path, ">", v}} }

// Lt matches documents where path is less than v.
func Lt(path string, v Value) Expr { return Expr{binary{path, "<", v}} }

// Ge matches documents where path is greater than or equal to v.
func Ge(path string, v Value) Expr { return Expr{binary{path, ">=", v}} }

// Le matches documents where path is less than or equal to v.
func Le(path string, v Value) Expr { return Expr{binary{path, "<=", v}} }

// Like matches documents where path matches the SQL LIKE pattern.
func Like(path, pattern string) Expr { return Expr{binary{path, "LIKE", String(pattern)}} }

// Regexp matches documents where path matches the regular expression.
// The regexp function must be registered on the connection; the
// docudb driver installs it on every connection it opens.
func Regexp(path, pattern string) Expr { return Expr{binary{path, "REGEXP", String(pattern)}} }

// And combines two expressions; both must match.
func And(left, right Expr) Expr { return Expr{gate{left.node, right.node, "AND"}} }

// Or combines two expressions; either may match.
func Or(left, right Expr) Expr { return Expr{gate{left.node, right.node, "OR"}} }

// SQL renders the expression to a fragment that can follow a WHERE
// clause verbatim, plus the Binder mapping every ?N placeholder to
// its value. Placeholder indices are assigned during the walk, left
// to right. Path syntax is not validated here; a malformed path
// surfaces when the statement is prepared.
func (e Expr) SQL() (string, *Binder) {
	b := &Binder{}
	if e.node == nil {
		return "1 = 1", b
	}
	var sb strings.Builder
	e.node.render(&sb, b)
	return sb.String(), b
}

func (p binary) render(sb *strings.Builder, b *Binder) {
	ref := Ref(p.path)
	if _, isNull := p.value.(Null); isNull && (p.op == "=" || p.op == "!=") {
		// A bound NULL parameter compares unequal to everything under
		// three-valued logic, so null equality renders as IS [NOT]
		// NULL. For JSON paths the json_type guard separates an
		// explicit null from a missing path: both extract to NULL,
		// but only the explicit null has a type.
		kw := "IS NULL"
		if p.op == "!=" {
			kw = "IS NOT NULL"
		}
		if isJSONPath(p.path) {
			fmt.Fprintf(sb, "(json_type(body, '%s') IS NOT NULL AND %s %s)", p.path, ref, kw)
		} else {
			fmt.Fprintf(sb, "(%s %s)", ref, kw)
		}
		return
	}
	idx := b.bind(p.value)
	fmt.Fprintf(sb, "(%s %s ?%d)", ref, p.op, idx)
}

func (g gate) render(sb *strings.Builder, b *Binder) {
	sb.WriteString("(")
	g.left.render(sb, b)
	sb.WriteString(" ")
	sb.WriteString(g.conn)
	sb.WriteString(" ")
	g.right.render(sb, b)
	sb.WriteString(")")
}

// Ref renders the column reference for a path: json_extract for
// JSON-rooted paths, a bracketed literal column name otherwise.
func Ref(path string) string {
	if isJSONPath(path) {
		return fmt.Sprintf("json_extract(body, '%s')", path)
	}
	return "[" + path + "]"
}

func isJSONPath(path string) bool {
	return strings.HasPrefix(path, "$")
}
