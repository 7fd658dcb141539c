package dbc

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Decode implements spec.md §4.1: frame assembly, bit extraction,
// type resolution and scaling for a single signal within one CAN
// payload. The second return value is false when no type rule
// applies and the signal should be silently skipped.
func Decode(payload []byte, sig Signal) (Value, bool) {
	frame := assembleFrame(payload, sig.Order)
	raw := extractBits(frame, sig.StartBit, sig.Length)

	if sig.HasValueTable {
		return decodeString(raw, sig), true
	}

	switch sig.Extended {
	case ExtendedFloat32:
		bits := uint32(raw)
		f := float64(math.Float32frombits(bits))
		return F64(f*sig.Factor + sig.Offset), true
	case ExtendedFloat64:
		f := math.Float64frombits(raw)
		return F64(f*sig.Factor + sig.Offset), true
	case ExtendedNone, ExtendedInteger:
		if sig.Type == Signed {
			return decodeSigned(raw, sig), true
		}
		return decodeUnsigned(raw, sig), true
	default:
		return Value{}, false
	}
}

// assembleFrame zero-pads payload (at most 8 bytes) into a fixed
// 8-byte buffer and interprets it as a 64-bit integer using the
// endianness the signal declares.
func assembleFrame(payload []byte, order ByteOrder) uint64 {
	var buf [8]byte
	n := len(payload)
	if n > 8 {
		n = 8
	}
	copy(buf[:n], payload[:n])

	if order == BigEndian {
		return binary.BigEndian.Uint64(buf[:])
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// extractBits pulls `length` bits starting at `start` out of frame.
func extractBits(frame uint64, start, length uint8) uint64 {
	if length == 64 {
		return frame
	}
	mask := (uint64(1) << length) - 1
	return (frame >> start) & mask
}

func isIntegerValued(f float64) bool {
	return f == math.Trunc(f)
}

func decodeUnsigned(raw uint64, sig Signal) Value {
	if !isIntegerValued(sig.Factor) || !isIntegerValued(sig.Offset) {
		return F64(float64(raw)*sig.Factor + sig.Offset)
	}
	// Integer arithmetic keeps every bit of a 64-bit raw value exact.
	return U64(raw*uint64(int64(sig.Factor)) + uint64(int64(sig.Offset)))
}

func decodeSigned(raw uint64, sig Signal) Value {
	// Sign-extend raw from sig.Length bits to 64 bits, per spec.md
	// §4.1. This is intentionally unconditional (it does not check
	// whether the field's most-significant bit is actually set) —
	// the behaviour is inherited from the source decoder and
	// preserved here, not fixed.
	extended := int64((^uint64(0) << sig.Length) | raw)

	if !isIntegerValued(sig.Factor) || !isIntegerValued(sig.Offset) {
		return F64(float64(extended)*sig.Factor + sig.Offset)
	}
	return I64(int64(float64(extended)*sig.Factor + sig.Offset))
}

func decodeString(raw uint64, sig Signal) Value {
	if s, ok := sig.ValueTable[raw]; ok {
		return Str(s)
	}
	return Str(strconv.FormatUint(raw, 10))
}
