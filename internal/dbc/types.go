// Package dbc implements the DBC signal model and decode engine of
// spec.md §3/§4.1: a pure transform from (message id, payload bytes)
// to a list of typed, named signal values.
package dbc

// ByteOrder is a signal's bit layout within the frame.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// ValueType is a signal's declared numeric representation.
type ValueType int

const (
	Unsigned ValueType = iota
	Signed
)

// ExtendedType refines ValueType with the IEEE extension a signal may
// carry, per spec.md §3.
type ExtendedType int

const (
	ExtendedNone ExtendedType = iota
	ExtendedFloat32
	ExtendedFloat64
	ExtendedInteger
)

// MultiplexKind distinguishes plain signals from multiplexor and
// multiplexed signals.
type MultiplexKind int

const (
	MultiplexNone MultiplexKind = iota
	Multiplexor
	Multiplexed
	MultiplexedAndMultiplexor // "both" per spec.md §3
)

// Signal is one DBC signal definition.
type Signal struct {
	Name          string
	StartBit      uint8
	Length        uint8
	Order         ByteOrder
	Type          ValueType
	Extended      ExtendedType
	Factor        float64
	Offset        float64
	Unit          string
	Mux           MultiplexKind
	MuxValue      uint64 // valid when Mux is Multiplexed or MultiplexedAndMultiplexor
	ValueTable    map[uint64]string
	HasValueTable bool
}

// Message is one DBC message definition, signals kept in DBC
// declaration order (load-bearing: see spec.md §4.2's multiplexor
// ordering hazard).
type Message struct {
	ID      uint32
	Name    string
	Signals []Signal
}

// Database is the parsed DBC file, messages keyed by their 32-bit id.
type Database struct {
	Messages map[uint32]*Message
}

// Kind tags the concrete type carried by a Value.
type Kind int

const (
	KindNone Kind = iota
	KindU64
	KindI64
	KindF64
	KindStr
)

// Value is a decoded signal value: exactly one field is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	U64  uint64
	I64  int64
	F64  float64
	Str  string
}

func U64(v uint64) Value { return Value{Kind: KindU64, U64: v} }
func I64(v int64) Value  { return Value{Kind: KindI64, I64: v} }
func F64(v float64) Value { return Value{Kind: KindF64, F64: v} }
func Str(v string) Value { return Value{Kind: KindStr, Str: v} }

// Equal reports whether two values are the same kind carrying the
// same payload, used by the CAN watcher's duplicate suppression
// (spec.md §4.2 step 4).
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindU64:
		return v.U64 == o.U64
	case KindI64:
		return v.I64 == o.I64
	case KindF64:
		return v.F64 == o.F64
	case KindStr:
		return v.Str == o.Str
	default:
		return true
	}
}

// DecodedSignal is one named, unit-tagged decoded value, ready for
// the send queue (spec.md §3).
type DecodedSignal struct {
	Name  string
	Unit  string
	Value Value
}

// ResolveUnit implements spec.md §4.2 step 3: use the DBC unit string
// if non-empty, else "enum" for a decoded String value, else "N/A".
func ResolveUnit(declaredUnit string, v Value) string {
	if declaredUnit != "" {
		return declaredUnit
	}
	if v.Kind == KindStr {
		return "enum"
	}
	return "N/A"
}
