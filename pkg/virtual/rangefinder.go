package virtual

import "sort"

// Bias breaks ties when an offset sits exactly on a boundary shared by two
// adjacent nodes.
type Bias int

const (
	// BiasLow prefers the lower edge index: the node that ends at the offset.
	BiasLow Bias = iota
	// BiasHigh prefers the higher edge index: the node that starts at the offset.
	BiasHigh
)

func (b Bias) String() string {
	if b == BiasHigh {
		return "high"
	}
	return "low"
}

// The search space is 2N edges for N nodes: edge 2i is node i's top,
// edge 2i+1 its bottom. Edges are non-decreasing because nodes are sorted.
func edgeAt(nodes Children, i int) float64 {
	b := nodes.At(i / 2).Bounds()
	if i%2 == 0 {
		return b.Top
	}
	return b.Bottom
}

// FindEdgeIndex binary-searches the edge sequence of nodes.
//
// With BiasLow it returns the index of the lowest edge >= offset, or 2N when
// every edge is below offset. With BiasHigh it returns the index of the
// highest edge <= offset, or -1 when every edge is above offset.
func FindEdgeIndex(nodes Children, offset float64, bias Bias) int {
	n := 2 * nodes.Len()
	if bias == BiasHigh {
		// First edge strictly above offset, minus one.
		return sort.Search(n, func(i int) bool {
			return edgeAt(nodes, i) > offset
		}) - 1
	}
	return sort.Search(n, func(i int) bool {
		return edgeAt(nodes, i) >= offset
	})
}

// FindElement returns the node whose range contains or is nearest to offset.
// It returns nil when nodes is empty or offset lies outside
// [first.Top, last.Bottom].
//
// On a boundary shared by two touching nodes, BiasLow selects the node ending
// there and BiasHigh the node starting there, so a BiasLow/BiasHigh pair
// brackets a well-defined inclusive range.
func FindElement(nodes Children, offset float64, bias Bias) Node {
	i := findElementIndex(nodes, offset, bias)
	if i < 0 {
		return nil
	}
	return nodes.At(i)
}

func findElementIndex(nodes Children, offset float64, bias Bias) int {
	count := nodes.Len()
	if count == 0 {
		return -1
	}
	if offset < nodes.At(0).Bounds().Top || offset > nodes.At(count-1).Bounds().Bottom {
		return -1
	}
	edge := FindEdgeIndex(nodes, offset, bias)
	if edge < 0 || edge >= 2*count {
		return -1
	}
	return edge / 2
}

// ElementBounds is an inclusive node range in sequence order, or empty.
type ElementBounds struct {
	Low       Node
	High      Node
	LowIndex  int
	HighIndex int
}

// EmptyBounds is the empty-range sentinel.
var EmptyBounds = ElementBounds{LowIndex: -1, HighIndex: -1}

// Empty reports whether the range holds no nodes.
func (e ElementBounds) Empty() bool {
	return e.Low == nil || e.High == nil
}

// Len returns the number of nodes in the range.
func (e ElementBounds) Len() int {
	if e.Empty() {
		return 0
	}
	return e.HighIndex - e.LowIndex + 1
}

// FindBounds returns the inclusive range of nodes intersecting the pixel
// window [low, high]. The window is clamped to the sequence extent; the low
// end is resolved with BiasLow and the high end with BiasHigh. A window that
// misses every node, including one that falls inside a gap, yields
// EmptyBounds.
func FindBounds(nodes Children, low, high float64) ElementBounds {
	count := nodes.Len()
	if count == 0 || low > high {
		return EmptyBounds
	}
	first := nodes.At(0).Bounds().Top
	last := nodes.At(count - 1).Bounds().Bottom
	if high < first || low > last {
		return EmptyBounds
	}
	low = max(low, first)
	high = min(high, last)

	lo := findElementIndex(nodes, low, BiasLow)
	hi := findElementIndex(nodes, high, BiasHigh)
	if lo < 0 || hi < 0 || lo > hi {
		return EmptyBounds
	}
	return ElementBounds{
		Low:       nodes.At(lo),
		High:      nodes.At(hi),
		LowIndex:  lo,
		HighIndex: hi,
	}
}
