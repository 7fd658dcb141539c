package sendqueue

import "testing"

func TestDrainBatchDrainsAllWhenUnderLimit(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		_ = q.Push(Envelope{Bus: "can0"})
	}

	batch := q.DrainBatch()
	if len(batch) != 5 {
		t.Errorf("len(batch) = %d, want 5", len(batch))
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty after drain, got %d", q.Len())
	}
}

func TestDrainBatchCapsAt100(t *testing.T) {
	q := New()
	for i := 0; i < 150; i++ {
		_ = q.Push(Envelope{Bus: "can0"})
	}

	batch := q.DrainBatch()
	if len(batch) != MaxBatch {
		t.Errorf("len(batch) = %d, want %d", len(batch), MaxBatch)
	}
	if q.Len() != 50 {
		t.Errorf("remaining queue depth = %d, want 50", q.Len())
	}
}

func TestDrainBatchOrderPreserved(t *testing.T) {
	q := New()
	_ = q.Push(Envelope{Bus: "can0"})
	_ = q.Push(Envelope{Bus: "can1"})
	_ = q.Push(Envelope{Bus: "can2"})

	batch := q.DrainBatch()
	for i, want := range []string{"can0", "can1", "can2"} {
		if batch[i].Bus != want {
			t.Errorf("batch[%d].Bus = %s, want %s", i, batch[i].Bus, want)
		}
	}
}

func TestDrainBatchEmptyQueue(t *testing.T) {
	q := New()
	batch := q.DrainBatch()
	if len(batch) != 0 {
		t.Errorf("len(batch) = %d, want 0", len(batch))
	}
}
