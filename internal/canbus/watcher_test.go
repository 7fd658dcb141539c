package canbus

import (
	"testing"

	"github.com/hostmobility/insight-agent/internal/dbc"
)

func TestProcessFrameDuplicateSuppression(t *testing.T) {
	msg := &dbc.Message{
		ID:   0x100,
		Name: "Door",
		Signals: []dbc.Signal{
			{Name: "Door", StartBit: 0, Length: 8, Order: dbc.LittleEndian, Type: dbc.Unsigned, Extended: dbc.ExtendedInteger, Factor: 1, Offset: 0, Unit: ""},
		},
	}
	payload := []byte{0x01, 0, 0, 0, 0, 0, 0, 0}
	prev := make(map[string]dbc.Value)

	first := ProcessFrame(msg, payload, prev)
	if len(first) != 1 {
		t.Fatalf("first frame: got %d signals, want 1", len(first))
	}
	if first[0].Unit != "N/A" || first[0].Value.U64 != 1 {
		t.Errorf("first frame signal = %+v", first[0])
	}

	second := ProcessFrame(msg, payload, prev)
	if len(second) != 0 {
		t.Errorf("second identical frame should be suppressed, got %d signals", len(second))
	}
}

func TestProcessFrameMultiplex(t *testing.T) {
	msg := &dbc.Message{
		ID:   0x200,
		Name: "Mixed",
		Signals: []dbc.Signal{
			{Name: "Mode", StartBit: 0, Length: 8, Order: dbc.LittleEndian, Type: dbc.Unsigned, Extended: dbc.ExtendedInteger, Factor: 1, Offset: 0, Mux: dbc.Multiplexor},
			{Name: "TempA", StartBit: 8, Length: 8, Order: dbc.LittleEndian, Type: dbc.Unsigned, Extended: dbc.ExtendedInteger, Factor: 1, Offset: 0, Mux: dbc.Multiplexed, MuxValue: 2},
			{Name: "TempB", StartBit: 8, Length: 8, Order: dbc.LittleEndian, Type: dbc.Unsigned, Extended: dbc.ExtendedInteger, Factor: 1, Offset: 0, Mux: dbc.Multiplexed, MuxValue: 1},
		},
	}

	prev := make(map[string]dbc.Value)
	frame1 := []byte{2, 42, 0, 0, 0, 0, 0, 0} // Mode=2, payload byte=42
	out1 := ProcessFrame(msg, frame1, prev)
	if len(out1) != 1 || out1[0].Name != "TempA" {
		t.Fatalf("expected only TempA, got %+v", out1)
	}

	frame2 := []byte{1, 42, 0, 0, 0, 0, 0, 0} // Mode=1, same payload byte
	out2 := ProcessFrame(msg, frame2, prev)
	if len(out2) != 1 || out2[0].Name != "TempB" {
		t.Fatalf("expected only TempB, got %+v", out2)
	}
}

func TestProcessFrameEmptySignalListProducesNoOutput(t *testing.T) {
	msg := &dbc.Message{ID: 0x300, Name: "Empty"}
	out := ProcessFrame(msg, []byte{0, 0, 0, 0, 0, 0, 0, 0}, make(map[string]dbc.Value))
	if len(out) != 0 {
		t.Errorf("expected no signals for an empty message definition, got %+v", out)
	}
}
