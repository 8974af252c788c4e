package query

// Binding pairs a positional placeholder index with its bound value.
type Binding struct {
	Index int
	Value Value
}

// Binder is the ordered mapping from placeholder index to value
// produced by rendering one expression. Indices are allocated
// sequentially from 1 during a single render walk, so the numbering
// is a pure function of the expression tree and two sub-expressions
// of the same statement can never collide.
type Binder struct {
	entries []Binding
}

// bind appends a value and returns the placeholder index it was
// assigned.
func (b *Binder) bind(v Value) int {
	idx := len(b.entries) + 1
	b.entries = append(b.entries, Binding{Index: idx, Value: v})
	return idx
}

// Entries returns the bindings in placeholder order.
func (b *Binder) Entries() []Binding {
	return b.entries
}

// Len returns the number of bound placeholders.
func (b *Binder) Len() int {
	return len(b.entries)
}

// Args converts the bindings to driver parameters, in placeholder
// order, ready to pass to a prepared statement.
func (b *Binder) Args() []any {
	args := make([]any, len(b.entries))
	for i, e := range b.entries {
		args[i] = Arg(e.Value)
	}
	return args
}
