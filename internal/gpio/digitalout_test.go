package gpio

import "testing"

func TestDriveLevelDefaultStateZero(t *testing.T) {
	if got := driveLevel(0, true); got != 1 {
		t.Errorf("Active with default_state=0: got %d, want 1", got)
	}
	if got := driveLevel(0, false); got != 0 {
		t.Errorf("Inactive with default_state=0: got %d, want 0", got)
	}
}

func TestDriveLevelDefaultStateOne(t *testing.T) {
	if got := driveLevel(1, true); got != 0 {
		t.Errorf("Active with default_state=1: got %d, want 0", got)
	}
	if got := driveLevel(1, false); got != 1 {
		t.Errorf("Inactive with default_state=1: got %d, want 1", got)
	}
}
