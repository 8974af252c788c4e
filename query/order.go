package query

// Order names a field to sort a result set on. The field follows the
// same root-sigil dispatch as predicate paths.
type Order struct {
	Field      string
	Descending bool
}

// Asc orders ascending on field.
func Asc(field string) Order { return Order{Field: field} }

// Desc orders descending on field.
func Desc(field string) Order { return Order{Field: field, Descending: true} }

// Ref renders the column reference for the order field.
func (o Order) Ref() string { return Ref(o.Field) }

// Direction returns the SQL sort direction keyword.
func (o Order) Direction() string {
	if o.Descending {
		return "DESC"
	}
	return "ASC"
}
