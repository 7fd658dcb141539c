package dbc

import (
	"math"
	"testing"
)

func payload8(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func TestDecodeUnsignedRoundTrip(t *testing.T) {
	sig := Signal{StartBit: 0, Length: 8, Order: LittleEndian, Type: Unsigned, Extended: ExtendedInteger, Factor: 1, Offset: 0}
	v, ok := Decode(payload8(0x01), sig)
	if !ok {
		t.Fatal("expected a value")
	}
	if v.Kind != KindU64 || v.U64 != 1 {
		t.Errorf("got %+v, want U64(1)", v)
	}
}

func TestDecodeSignalSize64BypassesShiftMask(t *testing.T) {
	sig := Signal{StartBit: 0, Length: 64, Order: LittleEndian, Type: Unsigned, Extended: ExtendedInteger, Factor: 1, Offset: 0}
	v, ok := Decode(payload8(0xFFFFFFFFFFFFFFFF), sig)
	if !ok {
		t.Fatal("expected a value")
	}
	if v.Kind != KindU64 || v.U64 != math.MaxUint64 {
		t.Errorf("got %+v, want the whole frame", v)
	}
}

func TestDecodeSignedMSBSetSignExtends(t *testing.T) {
	// 8-bit field, value 0x80 (MSB set).
	sig := Signal{StartBit: 0, Length: 8, Order: LittleEndian, Type: Signed, Extended: ExtendedInteger, Factor: 1, Offset: 0}
	v, ok := Decode(payload8(0x80), sig)
	if !ok {
		t.Fatal("expected a value")
	}
	allOnes := ^uint64(0)
	want := int64((allOnes << 8) | 0x80)
	if v.Kind != KindI64 || v.I64 != want {
		t.Errorf("got %+v, want I64(%d)", v, want)
	}
}

func TestDecodeStringUnmatchedRawReturnsDecimal(t *testing.T) {
	sig := Signal{
		StartBit: 0, Length: 8, Order: LittleEndian,
		HasValueTable: true,
		ValueTable:    map[uint64]string{1: "Open", 2: "Closed"},
	}
	v, ok := Decode(payload8(9), sig)
	if !ok {
		t.Fatal("expected a value")
	}
	if v.Kind != KindStr || v.Str != "9" {
		t.Errorf("got %+v, want Str(\"9\")", v)
	}
}

func TestDecodeStringMatchedRaw(t *testing.T) {
	sig := Signal{
		StartBit: 0, Length: 8, Order: LittleEndian,
		HasValueTable: true,
		ValueTable:    map[uint64]string{1: "Open", 2: "Closed"},
	}
	v, ok := Decode(payload8(2), sig)
	if !ok {
		t.Fatal("expected a value")
	}
	if v.Kind != KindStr || v.Str != "Closed" {
		t.Errorf("got %+v, want Str(\"Closed\")", v)
	}
}

func TestDecodeFloat32(t *testing.T) {
	bits := math.Float32bits(3.5)
	payload := make([]byte, 8)
	payload[0] = byte(bits)
	payload[1] = byte(bits >> 8)
	payload[2] = byte(bits >> 16)
	payload[3] = byte(bits >> 24)

	sig := Signal{StartBit: 0, Length: 32, Order: LittleEndian, Extended: ExtendedFloat32, Factor: 1, Offset: 0}
	v, ok := Decode(payload, sig)
	if !ok {
		t.Fatal("expected a value")
	}
	if v.Kind != KindF64 || v.F64 != 3.5 {
		t.Errorf("got %+v, want F64(3.5)", v)
	}
}

func TestDecodeUnsignedNonIntegerScaleProducesFloat(t *testing.T) {
	sig := Signal{StartBit: 0, Length: 8, Order: LittleEndian, Type: Unsigned, Extended: ExtendedInteger, Factor: 0.1, Offset: 0}
	v, ok := Decode(payload8(10), sig)
	if !ok {
		t.Fatal("expected a value")
	}
	if v.Kind != KindF64 {
		t.Errorf("got %+v, want F64 kind", v)
	}
}

func TestResolveUnit(t *testing.T) {
	if got := ResolveUnit("km/h", U64(1)); got != "km/h" {
		t.Errorf("got %q, want km/h", got)
	}
	if got := ResolveUnit("", Str("Open")); got != "enum" {
		t.Errorf("got %q, want enum", got)
	}
	if got := ResolveUnit("", U64(1)); got != "N/A" {
		t.Errorf("got %q, want N/A", got)
	}
}
