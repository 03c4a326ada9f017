// Package virtual keeps very long ordered lists cheap to render.
//
// Nodes far outside the viewport are locked: they stop rendering and are given
// a placeholder size equal to the best available estimate of their real size,
// so the total scroll height stays stable. A Manager owns one container, reacts
// to structural and visibility changes, and runs a per-frame convergence loop
// that unlocks exactly the nodes covering the viewport plus a buffer.
//
// The package is host-agnostic. A host supplies a Container (live children,
// viewport height, mutation and visibility watchers, a frame scheduler) and
// Nodes (bounds, lock/unlock, siblings). See pkg/pane for the terminal host.
//
// Usage:
//
//	m := virtual.NewManager(container, virtual.WithBuffer(0.2))
//	defer m.Close()
//	// drive container frames; the manager settles on its own
//
// All entry points are expected to run on the host's single event loop.
// Nothing in this package is safe for concurrent use.
package virtual
