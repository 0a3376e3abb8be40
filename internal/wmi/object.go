package wmi

import "fmt"

// ObjectType tags the encoding a firmware method used for its output value.
//
// The FEVM firmware is not consistent here: the same method can answer with an
// ACPI integer on one BIOS revision and a one-byte buffer on another, so
// callers must be prepared for both.
type ObjectType int

const (
	// TypeInteger is a scalar integer result.
	TypeInteger ObjectType = iota
	// TypeBuffer is a raw byte buffer result.
	TypeBuffer
	// TypeOther is any result shape this package does not model (including an
	// empty buffer collapsed by the firmware).
	TypeOther
)

func (t ObjectType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBuffer:
		return "buffer"
	default:
		return "other"
	}
}

// Object is a decoded firmware method output value.
//
// Exactly one of Integer/Buffer is meaningful, selected by Type. TypeOther
// carries neither.
type Object struct {
	Type    ObjectType
	Integer uint64
	Buffer  []byte
}

// IntegerObject builds a scalar result value.
func IntegerObject(v uint64) *Object {
	return &Object{Type: TypeInteger, Integer: v}
}

// BufferObject builds a buffer result value.
func BufferObject(b []byte) *Object {
	return &Object{Type: TypeBuffer, Buffer: b}
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	switch o.Type {
	case TypeInteger:
		return fmt.Sprintf("integer(0x%X)", o.Integer)
	case TypeBuffer:
		return fmt.Sprintf("buffer(% X)", o.Buffer)
	default:
		return "other"
	}
}
