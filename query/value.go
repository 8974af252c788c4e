package query

// Value is a sealed interface over the scalar types a predicate can
// bind or a path can hold. Only Null, String, Int, Int64, Float32,
// and Float64 implement it.
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Null represents a JSON null. Equality against Null is rendered as
// IS NULL rather than a bound parameter; see binary.render.
type Null struct{}

func (Null) value() {}

// String represents a UTF-8 string value.
type String string

func (String) value() {}

// Int represents a 32-bit signed integer value.
type Int int32

func (Int) value() {}

// Int64 represents a 64-bit signed integer value.
type Int64 int64

func (Int64) value() {}

// Float32 represents a 32-bit floating point value.
type Float32 float32

func (Float32) value() {}

// Float64 represents a 64-bit floating point value.
type Float64 float64

func (Float64) value() {}

// Arg converts a Value to a driver parameter. This is the single
// conversion point for every variant.
func Arg(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Int64:
		return int64(val)
	case Float32:
		return float64(val)
	case Float64:
		return float64(val)
	default:
		return nil
	}
}
