package dbc

import (
	"fmt"
	"os"

	candbc "go.einride.tech/can/pkg/dbc"
)

// Load parses a DBC file and adapts it into this package's own
// Database model. Parsing itself is delegated to
// go.einride.tech/can/pkg/dbc (spec.md §1 treats the DBC parser as an
// external library dependency); the adaptation below groups that
// library's flat, declaration-ordered definition list into messages
// with their signals, and attaches any value-description tables.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbc: read %s: %w", path, err)
	}

	file, err := candbc.Parse(path, data)
	if err != nil {
		return nil, fmt.Errorf("dbc: parse %s: %w", path, err)
	}

	db := &Database{Messages: make(map[uint32]*Message)}

	var current *Message
	for _, def := range file.Defs {
		switch d := def.(type) {
		case *candbc.MessageDef:
			current = &Message{ID: uint32(d.MessageID), Name: string(d.Name)}
			db.Messages[current.ID] = current
		case *candbc.SignalDef:
			if current == nil {
				continue
			}
			current.Signals = append(current.Signals, adaptSignal(d))
		case *candbc.ValueDescriptionsDef:
			attachValueTable(db, d)
		}
	}

	return db, nil
}

func adaptSignal(d *candbc.SignalDef) Signal {
	sig := Signal{
		Name:     string(d.Name),
		StartBit: uint8(d.StartBit),
		Length:   uint8(d.Size),
		Factor:   d.Factor,
		Offset:   d.Offset,
		Unit:     string(d.Unit),
	}

	if d.IsBigEndian {
		sig.Order = BigEndian
	} else {
		sig.Order = LittleEndian
	}

	if d.IsSigned {
		sig.Type = Signed
	} else {
		sig.Type = Unsigned
	}

	switch {
	case d.IsMultiplexerSwitch && d.IsMultiplexed:
		sig.Mux = MultiplexedAndMultiplexor
		sig.MuxValue = uint64(d.MultiplexerValue)
	case d.IsMultiplexerSwitch:
		sig.Mux = Multiplexor
	case d.IsMultiplexed:
		sig.Mux = Multiplexed
		sig.MuxValue = uint64(d.MultiplexerValue)
	default:
		sig.Mux = MultiplexNone
	}

	switch d.ExtendedValueType {
	case candbc.SignalExtendedValueTypeIEEEFloat32Bit:
		sig.Extended = ExtendedFloat32
	case candbc.SignalExtendedValueTypeIEEEDouble64Bit:
		sig.Extended = ExtendedFloat64
	default:
		sig.Extended = ExtendedInteger
	}

	return sig
}

func attachValueTable(db *Database, d *candbc.ValueDescriptionsDef) {
	msg, ok := db.Messages[uint32(d.MessageID)]
	if !ok {
		return
	}
	for i := range msg.Signals {
		sig := &msg.Signals[i]
		if sig.Name != string(d.SignalName) {
			continue
		}
		sig.HasValueTable = true
		sig.ValueTable = make(map[uint64]string, len(d.ValueDescriptions))
		for _, vd := range d.ValueDescriptions {
			sig.ValueTable[uint64(vd.Value)] = vd.Description
		}
	}
}
