package virtual

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func quietLogger(format string, args ...any) {}

// fataler is the subset of testing.TB that *rapid.T also provides.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func assertInvariants(t fataler, l *fakeList, m *Manager) {
	t.Helper()
	var hiddenObserved []int
	for i, n := range l.nodes {
		state := m.State(n)
		switch state {
		case StateRevealed:
			if n.locked {
				t.Fatalf("node %d is revealed but locked", i)
			}
			if !l.watcher.observed[n] {
				t.Fatalf("node %d is revealed but not observed", i)
			}
		case StateHiddenObserved:
			hiddenObserved = append(hiddenObserved, i)
			if !n.locked {
				t.Fatalf("node %d is hidden but unlocked", i)
			}
			if !l.watcher.observed[n] {
				t.Fatalf("node %d should be observed", i)
			}
		case StateHidden:
			if !n.locked {
				t.Fatalf("node %d is hidden but unlocked", i)
			}
			if l.watcher.observed[n] {
				t.Fatalf("node %d is hidden but observed", i)
			}
		default:
			t.Fatalf("node %d in the container is unmanaged", i)
		}
	}
	if len(hiddenObserved) > 2 {
		t.Fatalf("observed minus revealed has %d members: %v", len(hiddenObserved), hiddenObserved)
	}
	for _, i := range hiddenObserved {
		prevRevealed := i > 0 && m.State(l.nodes[i-1]) == StateRevealed
		nextRevealed := i+1 < len(l.nodes) && m.State(l.nodes[i+1]) == StateRevealed
		if !prevRevealed && !nextRevealed {
			t.Fatalf("observed hidden node %d does not border the revealed range", i)
		}
	}
	if len(l.watcher.observed) != m.Stats().Observed {
		t.Fatalf("watcher observes %d nodes, manager tracks %d", len(l.watcher.observed), m.Stats().Observed)
	}
}

func TestManager_EndToEndUniformHeights(t *testing.T) {
	l := newFakeList(500, uniformHeights(1000, 100)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))

	for i, n := range l.nodes {
		if !n.locked || m.State(n) != StateHidden {
			t.Fatalf("node %d should start hidden", i)
		}
	}

	l.runFrame()
	got := l.unlockedIndexes()
	if len(got) != 7 || got[0] != 0 || got[6] != 6 {
		t.Fatalf("first sync should reveal nodes 0..6, got %v", got)
	}
	if m.State(l.nodes[7]) != StateHiddenObserved {
		t.Errorf("node 7 should be observed as the next neighbour, got %v", m.State(l.nodes[7]))
	}
	assertInvariants(t, l, m)

	frames := l.settle(10)
	if frames > 2 {
		t.Errorf("expected to settle within two more ticks, took %d", frames)
	}
	stats := m.Stats()
	if !stats.Settled || stats.Revealed != 7 || stats.Observed != 8 {
		t.Errorf("unexpected settled stats %+v", stats)
	}

	m.scheduleSync()
	l.runFrame()
	if m.Stats().LastChanges != 0 {
		t.Errorf("a settled manager must not change anything, got %d changes", m.Stats().LastChanges)
	}
}

func TestManager_ConvergesWhenEstimateIsWrong(t *testing.T) {
	l := newFakeList(500, uniformHeights(1000, 50)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))

	l.settle(50)

	stats := m.Stats()
	if !stats.Settled {
		t.Fatalf("manager did not settle: %+v", stats)
	}
	got := l.unlockedIndexes()
	// window is [-100, 600]; 50px nodes cover it with nodes 0..12
	if len(got) != 13 || got[0] != 0 || got[12] != 12 {
		t.Errorf("expected nodes 0..12 revealed, got %v", got)
	}
	if stats.AverageSize != 50 {
		t.Errorf("average size = %v, want 50", stats.AverageSize)
	}
	assertInvariants(t, l, m)
}

func TestManager_ScrollMovesRevealedWindow(t *testing.T) {
	l := newFakeList(500, uniformHeights(200, 100)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))
	l.settle(10)

	l.scrollTo(5000)
	l.settle(10)

	got := l.unlockedIndexes()
	// absolute window [4900, 5600]: node 48 ends at 4900, node 56 starts at 5600
	if len(got) != 9 || got[0] != 48 || got[8] != 56 {
		t.Errorf("expected nodes 48..56 revealed, got %v", got)
	}
	if m.State(l.nodes[47]) != StateHiddenObserved || m.State(l.nodes[57]) != StateHiddenObserved {
		t.Error("both neighbours of the revealed range should be observed")
	}
	if m.State(l.nodes[0]) != StateHidden {
		t.Errorf("node 0 should be hidden after scrolling away, got %v", m.State(l.nodes[0]))
	}
	assertInvariants(t, l, m)
}

func TestManager_ScheduleSyncIsIdempotent(t *testing.T) {
	l := newFakeList(500, uniformHeights(20, 100)...)
	m := NewManager(l, WithLogger(quietLogger))

	for i := 0; i < 5; i++ {
		m.scheduleSync()
	}
	l.watcher.fire()
	if len(l.frames) != 1 {
		t.Fatalf("expected exactly one pending frame, got %d", len(l.frames))
	}
	l.runFrame()
	if m.Stats().Syncs != 1 {
		t.Errorf("expected one sync, got %d", m.Stats().Syncs)
	}
}

func TestManager_AddedNodesHiddenBeforeFirstPaint(t *testing.T) {
	l := newFakeList(500)
	m := NewManager(l, WithLogger(quietLogger))
	l.settle(5)

	added := l.appendNodes(uniformHeights(10, 30)...)
	l.flush()

	for i, n := range added {
		if !n.locked {
			t.Fatalf("added node %d must be locked before the next sync", i)
		}
		if m.State(n) != StateHidden {
			t.Fatalf("added node %d state = %v, want hidden", i, m.State(n))
		}
	}
	if len(l.frames) != 1 {
		t.Fatalf("expected a sync to be scheduled, got %d frames", len(l.frames))
	}

	l.settle(10)
	if m.Stats().Revealed == 0 {
		t.Error("added nodes inside the viewport should be revealed once settled")
	}
	assertInvariants(t, l, m)
}

func TestManager_RemovedNodesAreForgotten(t *testing.T) {
	l := newFakeList(500, uniformHeights(30, 100)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))
	l.settle(10)

	victim := l.nodes[2]
	if m.State(victim) != StateRevealed {
		t.Fatalf("precondition: node 2 should be revealed, got %v", m.State(victim))
	}
	measured := m.Stats().Measured

	l.removeNodes(victim)
	l.flush()

	if victim.locked {
		t.Error("removed node should be unlocked defensively")
	}
	if m.State(victim) != StateUnmanaged {
		t.Errorf("removed node state = %v, want unmanaged", m.State(victim))
	}
	if l.watcher.observed[victim] {
		t.Error("removed node should no longer be observed")
	}
	if got := m.Stats().Measured; got != measured-1 {
		t.Errorf("size record should be discarded: measured %d -> %d", measured, got)
	}

	l.settle(10)
	assertInvariants(t, l, m)
}

func TestManager_RemoveAndReAddInOneBatchIsNoop(t *testing.T) {
	l := newFakeList(500, uniformHeights(30, 100)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))
	l.settle(10)

	moved := l.nodes[3]
	before := m.State(moved)
	locks := moved.locks
	statsBefore := m.Stats()

	// Move node 3 to the end: recorded as a removal and an addition.
	l.removeNodes(moved)
	l.nodes = append(l.nodes, moved)
	l.reindex()
	l.pending = append(l.pending, MutationRecord{Added: []Node{moved}})
	l.flush()

	if m.State(moved) != before {
		t.Errorf("state changed from %v to %v", before, m.State(moved))
	}
	if moved.locks != locks {
		t.Error("a re-added node must not be re-hidden by reconciliation")
	}
	if m.Stats().Measured != statsBefore.Measured {
		t.Error("a re-added node keeps its size record")
	}
	if len(l.frames) != 1 {
		t.Fatalf("a sync should still be scheduled, got %d frames", len(l.frames))
	}

	l.settle(10)
	if m.State(moved) != StateHidden {
		t.Errorf("node moved to the end should end up hidden, got %v", m.State(moved))
	}
	assertInvariants(t, l, m)
}

func TestManager_FlappingNodeIsReconciledOnce(t *testing.T) {
	l := newFakeList(500, uniformHeights(30, 100)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))
	l.settle(10)

	// remove, add, remove: net removal, forgotten once.
	gone := l.nodes[2]
	unlocks := gone.unlocks
	l.removeNodes(gone)
	l.pending = append(l.pending,
		MutationRecord{Added: []Node{gone}},
		MutationRecord{Removed: []Node{gone}},
	)
	l.flush()
	if got := gone.unlocks - unlocks; got != 1 {
		t.Errorf("removed node unlocked %d times, want 1", got)
	}
	if m.State(gone) != StateUnmanaged {
		t.Errorf("removed node state = %v, want unmanaged", m.State(gone))
	}

	// add, remove, add: net addition, hidden once.
	fresh := &fakeNode{list: l, height: 100}
	l.nodes = append(l.nodes, fresh)
	l.reindex()
	l.pending = append(l.pending,
		MutationRecord{Added: []Node{fresh}},
		MutationRecord{Removed: []Node{fresh}},
		MutationRecord{Added: []Node{fresh}},
	)
	l.flush()
	if fresh.locks != 1 {
		t.Errorf("added node locked %d times, want 1", fresh.locks)
	}
	if m.Stats().Managed != len(l.nodes) {
		t.Errorf("managed = %d, want %d", m.Stats().Managed, len(l.nodes))
	}

	l.settle(10)
	assertInvariants(t, l, m)
}

func TestManager_EmptyContainer(t *testing.T) {
	l := newFakeList(500)
	m := NewManager(l, WithLogger(quietLogger))
	l.settle(5)

	stats := m.Stats()
	if stats.Syncs != 0 || stats.Managed != 0 {
		t.Errorf("empty container should not sync, got %+v", stats)
	}
}

func TestManager_CloseUnlocksEverything(t *testing.T) {
	l := newFakeList(500, uniformHeights(50, 100)...)
	m := NewManager(l, WithDefaultSize(100), WithLogger(quietLogger))
	l.settle(10)

	m.scheduleSync()
	m.Close()
	m.Close()

	syncs := m.Stats().Syncs
	l.settle(5)
	if m.Stats().Syncs != syncs {
		t.Error("a pending sync must not run after Close")
	}
	for i, n := range l.nodes {
		if n.locked {
			t.Fatalf("node %d still locked after Close", i)
		}
	}
	if !l.watcher.disconnected || l.onMutation != nil {
		t.Error("watchers should be detached")
	}
}

// oscillatingList builds a sequence whose first node grows whenever its
// neighbour is unlocked, so the revealed set never settles.
func oscillatingList() *fakeList {
	l := newFakeList(100, uniformHeights(12, 10)...)
	second := l.nodes[1]
	l.nodes[0].heightFn = func(*fakeNode) float64 {
		if second.locked {
			return 50
		}
		return 150
	}
	return l
}

func TestManager_OscillationIsReported(t *testing.T) {
	l := oscillatingList()
	var warnings []string
	m := NewManager(l,
		WithBuffer(0),
		WithMaxSettleTicks(5),
		WithLogger(func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		}),
	)

	l.settle(30)

	if len(l.frames) == 0 {
		t.Fatal("without a halt the loop keeps rescheduling")
	}
	if m.Stats().UnsettledTicks <= 5 {
		t.Errorf("expected more than 5 unsettled ticks, got %d", m.Stats().UnsettledTicks)
	}
	oscillation := 0
	for _, w := range warnings {
		if strings.HasPrefix(w, "virtual:") && strings.Contains(w, "consecutive syncs") {
			oscillation++
		}
	}
	if oscillation != 1 {
		t.Errorf("expected exactly one oscillation warning, got %d (%v)", oscillation, warnings)
	}
}

func TestManager_HaltOnOscillation(t *testing.T) {
	l := oscillatingList()
	m := NewManager(l,
		WithBuffer(0),
		WithMaxSettleTicks(5),
		WithHaltOnOscillation(true),
		WithLogger(quietLogger),
	)

	frames := l.settle(100)
	if frames >= 100 {
		t.Fatal("halt should stop the loop")
	}
	if m.Stats().UnsettledTicks != 6 {
		t.Errorf("expected the loop to stop after 6 changing syncs, got %d", m.Stats().UnsettledTicks)
	}

	// A visibility change restarts it.
	l.watcher.fire()
	if len(l.frames) != 1 {
		t.Error("visibility change should schedule a sync after a halt")
	}
}

func TestManager_InvariantsUnderRandomOperations(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 60).Draw(t, "count")
		heights := make([]float64, count)
		for i := range heights {
			heights[i] = float64(rapid.IntRange(1, 120).Draw(t, "height"))
		}
		viewport := float64(rapid.IntRange(50, 600).Draw(t, "viewport"))
		l := newFakeList(viewport, heights...)
		m := NewManager(l, WithDefaultSize(40), WithLogger(quietLogger))
		l.settle(1000)

		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for s := 0; s < steps; s++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				l.scrollTo(float64(rapid.IntRange(0, 4000).Draw(t, "scroll")))
			case 1:
				n := rapid.IntRange(1, 5).Draw(t, "add")
				hs := make([]float64, n)
				for i := range hs {
					hs[i] = float64(rapid.IntRange(1, 120).Draw(t, "addHeight"))
				}
				l.appendNodes(hs...)
				l.flush()
			case 2:
				if len(l.nodes) > 0 {
					i := rapid.IntRange(0, len(l.nodes)-1).Draw(t, "remove")
					l.removeNodes(l.nodes[i])
					l.flush()
				}
			}
			if frames := l.settle(1000); frames >= 1000 {
				t.Fatalf("did not settle after step %d", s)
			}
			assertInvariants(t, l, m)

			// At the fixpoint the revealed set is exactly the range covering
			// the buffered viewport.
			want := FindBounds(l, -viewport*DefaultBuffer, viewport+viewport*DefaultBuffer)
			got := l.unlockedIndexes()
			if want.Empty() {
				if len(got) != 0 {
					t.Fatalf("expected nothing revealed, got %v", got)
				}
				continue
			}
			if len(got) != want.Len() || got[0] != want.LowIndex || got[len(got)-1] != want.HighIndex {
				t.Fatalf("revealed %v, want %d..%d", got, want.LowIndex, want.HighIndex)
			}
		}
	})
}
