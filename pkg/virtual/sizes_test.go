package virtual

import "testing"

func TestSizeManager_AverageOfMeasured(t *testing.T) {
	l := newFakeList(500, 50, 150, 70)
	s := NewSizeManager(0)
	small, big, unmeasured := l.nodes[0], l.nodes[1], l.nodes[2]

	if got := s.HopefulSize(unmeasured); got != DefaultSize {
		t.Errorf("hopeful size before any measurement = %v, want default %v", got, DefaultSize)
	}

	s.Measure(small)
	s.Measure(big)
	if got := s.HopefulSize(unmeasured); got != 100 {
		t.Errorf("hopeful size = %v, want 100", got)
	}
	if got := s.HopefulSize(big); got != 150 {
		t.Errorf("measured node should report its own size, got %v", got)
	}

	s.Remove(big)
	if got := s.HopefulSize(unmeasured); got != 50 {
		t.Errorf("hopeful size after removal = %v, want 50", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 measured node, got %d", s.Len())
	}
}

func TestSizeManager_RemeasureAdjustsTotal(t *testing.T) {
	l := newFakeList(500, 40, 60)
	s := NewSizeManager(0)

	s.Measure(l.nodes[0])
	s.Measure(l.nodes[1])
	l.nodes[0].height = 80
	l.dirty = true
	s.Measure(l.nodes[0])

	avg, ok := s.Average()
	if !ok || avg != 70 {
		t.Errorf("average = %v (ok=%v), want 70", avg, ok)
	}
	if s.Len() != 2 {
		t.Errorf("re-measuring must not bump the count, got %d", s.Len())
	}
}

func TestSizeManager_RemoveUnknownIsNoop(t *testing.T) {
	l := newFakeList(500, 30, 30)
	s := NewSizeManager(7)

	s.Remove(l.nodes[0])
	if got := s.HopefulSize(l.nodes[0]); got != 7 {
		t.Errorf("custom default = %v, want 7", got)
	}

	s.Measure(l.nodes[1])
	s.Remove(l.nodes[1])
	s.Remove(l.nodes[1])
	if _, ok := s.Average(); ok {
		t.Error("average should be unavailable once every record is removed")
	}
	if got := s.HopefulSize(l.nodes[0]); got != 7 {
		t.Errorf("hopeful size after clearing = %v, want default 7", got)
	}
}
