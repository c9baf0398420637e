package chain

import "testing"

func TestManualSourceAdvance(t *testing.T) {
	s := NewManualSource(100)

	if got := s.Height(); got != 100 {
		t.Fatalf("height = %d, want 100", got)
	}
	if got := s.Advance(5); got != 105 {
		t.Fatalf("Advance = %d, want 105", got)
	}
	if got := s.Height(); got != 105 {
		t.Fatalf("height = %d, want 105", got)
	}
}

func TestManualSourceSetHeight(t *testing.T) {
	s := NewManualSource(100)

	if err := s.SetHeight(200); err != nil {
		t.Fatalf("SetHeight: %v", err)
	}
	if got := s.Height(); got != 200 {
		t.Fatalf("height = %d, want 200", got)
	}

	// The counter is monotonic; jumping backwards is rejected.
	if err := s.SetHeight(150); err == nil {
		t.Fatal("SetHeight below current succeeded")
	}
	if got := s.Height(); got != 200 {
		t.Fatalf("height after rejected set = %d, want 200", got)
	}

	// Setting the current height is a no-op, not an error.
	if err := s.SetHeight(200); err != nil {
		t.Fatalf("SetHeight to current: %v", err)
	}
}
