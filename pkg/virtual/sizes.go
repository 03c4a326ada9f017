package virtual

// DefaultSize is the estimate used before any node has been measured.
const DefaultSize = 10.0

// SizeManager remembers the last measured size of each node and keeps a
// running average used as the estimate for nodes never measured.
//
// Records are dropped explicitly with Remove when a node leaves the
// container; the average only reflects nodes still tracked.
type SizeManager struct {
	sizes       map[Node]float64
	total       float64
	count       int
	defaultSize float64
}

// NewSizeManager creates a SizeManager. A non-positive defaultSize falls back
// to DefaultSize.
func NewSizeManager(defaultSize float64) *SizeManager {
	if defaultSize <= 0 {
		defaultSize = DefaultSize
	}
	return &SizeManager{
		sizes:       make(map[Node]float64),
		defaultSize: defaultSize,
	}
}

// Measure reads the node's real size and records it. This forces a layout in
// most hosts; callers decide when it runs.
func (s *SizeManager) Measure(n Node) float64 {
	size := n.Bounds().Height()
	old, ok := s.sizes[n]
	if !ok {
		s.count++
	}
	s.total += size - old
	s.sizes[n] = size
	return size
}

// HopefulSize returns the last measured size of n, else the average of all
// measured nodes, else the default. It never forces a layout.
func (s *SizeManager) HopefulSize(n Node) float64 {
	if size, ok := s.sizes[n]; ok {
		return size
	}
	if avg, ok := s.Average(); ok {
		return avg
	}
	return s.defaultSize
}

// Remove forgets n. No-op if n was never measured.
func (s *SizeManager) Remove(n Node) {
	size, ok := s.sizes[n]
	if !ok {
		return
	}
	s.total -= size
	s.count--
	delete(s.sizes, n)
	if s.count == 0 {
		// Avoid carrying float residue into the next average.
		s.total = 0
	}
}

// Average returns the mean measured size and whether any node is measured.
func (s *SizeManager) Average() (float64, bool) {
	if s.count == 0 {
		return 0, false
	}
	return s.total / float64(s.count), true
}

// Len returns the number of measured nodes.
func (s *SizeManager) Len() int {
	return s.count
}
