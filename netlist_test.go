// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"testing"
)

// fakeComp is a minimal component for netlist tests.
type fakeComp struct {
	kind  string
	pins  []Pin
	joins []ThreadJoin
}

func (f *fakeComp) Kind() string           { return f.kind }
func (f *fakeComp) Pins() []Pin            { return f.pins }
func (f *fakeComp) Reset()                 {}
func (f *fakeComp) PropagationDelay() Delay { return 0 }

func (f *fakeComp) Evaluate(Inputs, Timestamp) EvalResult { return EvalResult{} }

type fakeMapper struct{ fakeComp }

func (f *fakeMapper) ThreadJoins() []ThreadJoin { return f.joins }

func out1(kind string) *fakeComp {
	return &fakeComp{kind: kind, pins: []Pin{{Name: "out", Dir: Out, Width: 1}}}
}

func TestNetlistBundles(t *testing.T) {
	n := newNetlist()
	a, b, c, d := Coord{0, 0}, Coord{10, 0}, Coord{20, 0}, Coord{30, 0}
	n.addWire(a, b, 0)
	n.addWire(b, c, 0)
	n.addTunnel(d, "t", 0)
	n.addTunnel(a, "t", 0)
	if diags := n.build(); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	na, nb, nc, nd := n.byCoord[a], n.byCoord[b], n.byCoord[c], n.byCoord[d]
	if n.nodes[na].bundle != n.nodes[nb].bundle || n.nodes[nb].bundle != n.nodes[nc].bundle {
		t.Error("touching wires not merged into one bundle")
	}
	if n.nodes[na].bundle != n.nodes[nd].bundle {
		t.Error("tunnel endpoints not merged")
	}
	if w := n.nodes[na].width; w != 1 {
		t.Errorf("bundle width = %d, want default 1", w)
	}
}

func TestNetlistBuildIdempotent(t *testing.T) {
	n := newNetlist()
	n.addWire(Coord{0, 0}, Coord{10, 0}, 4)
	n.build()
	b0 := n.nodes[n.byCoord[Coord{0, 0}]].bundle
	// no topology change: a rebuild is a no-op
	if diags := n.build(); diags != nil {
		t.Fatalf("rebuild of valid netlist returned %v", diags)
	}
	if b1 := n.nodes[n.byCoord[Coord{0, 0}]].bundle; b1 != b0 {
		t.Errorf("bundle changed across idempotent rebuild: %d != %d", b1, b0)
	}
}

func TestNetlistWidthConflict(t *testing.T) {
	n := newNetlist()
	c4 := &fakeComp{kind: "w4", pins: []Pin{{Name: "out", Dir: Out, Width: 4}}}
	c8 := &fakeComp{kind: "w8", pins: []Pin{{Name: "in", Dir: In, Width: 8}}}
	id4 := n.addComponent(c4)
	id8 := n.addComponent(c8)
	co := Coord{0, 0}
	if err := n.connect(id4, "out", co); err != nil {
		t.Fatal(err)
	}
	if err := n.connect(id8, "in", Coord{10, 0}); err != nil {
		t.Fatal(err)
	}
	n.addWire(co, Coord{10, 0}, 0)
	diags := n.build()
	if len(diags) != 1 || diags[0].Kind != DiagWidthConflict {
		t.Fatalf("diags = %v, want one width conflict", diags)
	}
	nd := &n.nodes[n.byCoord[co]]
	if !nd.conflicted {
		t.Fatal("node not flagged")
	}
	if nd.signal != ErrorSignal(nd.width) {
		t.Errorf("conflicted node signal = %v, want all-Err", nd.signal)
	}
	// resolution on a conflicted bundle stays Err regardless of drivers
	n.setDriver(id4, n.byCoord[co], FromBits(0xf, nd.width), Strong)
	if v := n.resolveThread(nd.threads[0]); v != Err {
		t.Errorf("resolved %v on conflicted node, want Err", v)
	}
}

func TestNetlistUnspecifiedWidthAdoptsBundle(t *testing.T) {
	n := newNetlist()
	probe := &fakeComp{kind: "probe", pins: []Pin{{Name: "in", Dir: In, Width: 0}}}
	drv := &fakeComp{kind: "drv", pins: []Pin{{Name: "out", Dir: Out, Width: 8}}}
	pid := n.addComponent(probe)
	did := n.addComponent(drv)
	n.connect(did, "out", Coord{0, 0})
	n.connect(pid, "in", Coord{10, 0})
	n.addWire(Coord{0, 0}, Coord{10, 0}, 0)
	if diags := n.build(); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if w := n.pinWidth(pid, "in"); w != 8 {
		t.Errorf("unspecified pin resolved to width %d, want 8", w)
	}
}

func TestResolveThreadStrength(t *testing.T) {
	n := newNetlist()
	a := n.addComponent(out1("a"))
	b := n.addComponent(out1("b"))
	co := Coord{0, 0}
	n.connect(a, "out", co)
	n.connect(b, "out", co)
	n.build()
	nid := n.byCoord[co]
	tid := n.nodes[nid].threads[0]

	set := func(id ComponentID, v Value, st Strength) {
		n.setDriver(id, nid, FromValue(v, 1), st)
	}

	// two agreeing strong drivers
	set(a, High, Strong)
	set(b, High, Strong)
	if v := n.resolveThread(tid); v != High {
		t.Errorf("agreeing strong drivers: %v, want 1", v)
	}
	// conflicting strong drivers
	set(b, Low, Strong)
	if v := n.resolveThread(tid); v != Err {
		t.Errorf("conflicting strong drivers: %v, want E", v)
	}
	// strong beats weak
	set(b, Low, Weak)
	if v := n.resolveThread(tid); v != High {
		t.Errorf("strong vs weak: %v, want 1", v)
	}
	// a released strong output does not mask the weak pull
	set(a, Unknown, Strong)
	if v := n.resolveThread(tid); v != Low {
		t.Errorf("released strong vs weak: %v, want 0", v)
	}
	// floating contributions never occupy
	set(a, High, Floating)
	if v := n.resolveThread(tid); v != Low {
		t.Errorf("floating vs weak: %v, want 0", v)
	}
	// nothing occupies at all
	set(b, Unknown, Weak)
	if v := n.resolveThread(tid); v != Unknown {
		t.Errorf("no occupants: %v, want X", v)
	}
}

func TestThreadsAcrossSplitter(t *testing.T) {
	// an 8-bit bundle split into 8 single-bit legs: bit i of the wide side
	// shares a thread with leg i
	n := newNetlist()
	wide := &fakeComp{kind: "w8", pins: []Pin{{Name: "out", Dir: Out, Width: 8}}}
	wid := n.addComponent(wide)
	sp := &fakeMapper{fakeComp: fakeComp{kind: "split", pins: []Pin{{Name: "combined", Dir: InOut, Width: 8}}}}
	for i := 0; i < 8; i++ {
		sp.pins = append(sp.pins, Pin{Name: "fan" + string(rune('0'+i)), Dir: InOut, Width: 1})
		sp.joins = append(sp.joins, ThreadJoin{PinA: "combined", BitA: i, PinB: "fan" + string(rune('0'+i)), BitB: 0})
	}
	sid := n.addComponent(sp)
	n.connect(wid, "out", Coord{0, 0})
	n.connect(sid, "combined", Coord{10, 0})
	n.addWire(Coord{0, 0}, Coord{10, 0}, 0)
	for i := 0; i < 8; i++ {
		n.connect(sid, "fan"+string(rune('0'+i)), Coord{20, i * 10})
	}
	if diags := n.build(); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	wideNode := n.byCoord[Coord{0, 0}]
	for i := 0; i < 8; i++ {
		leg := n.byCoord[Coord{20, i * 10}]
		if n.nodes[wideNode].threads[i] != n.nodes[leg].threads[0] {
			t.Errorf("bit %d not threaded to leg %d", i, i)
		}
	}

	// drive 0xA5 on the wide side; every leg resolves its own bit
	n.setDriver(wid, wideNode, FromBits(0xa5, 8), Strong)
	for i := 0; i < 8; i++ {
		leg := n.byCoord[Coord{20, i * 10}]
		want := FromBool(0xa5&(1<<uint(i)) != 0)
		if v := n.resolveThread(n.nodes[leg].threads[0]); v != want {
			t.Errorf("leg %d resolved %v, want %v", i, v, want)
		}
	}
}

func TestSplitterOutOfRangeBitDisconnected(t *testing.T) {
	n := newNetlist()
	sp := &fakeMapper{fakeComp: fakeComp{kind: "split", pins: []Pin{
		{Name: "combined", Dir: InOut, Width: 2},
		{Name: "fan0", Dir: InOut, Width: 1},
	}}}
	sp.joins = []ThreadJoin{
		{PinA: "combined", BitA: 0, PinB: "fan0", BitB: 0},
		{PinA: "combined", BitA: 5, PinB: "fan0", BitB: 0}, // out of range
	}
	sid := n.addComponent(sp)
	n.connect(sid, "combined", Coord{0, 0})
	n.connect(sid, "fan0", Coord{10, 0})
	diags := n.build()
	found := false
	for _, d := range diags {
		if d.Kind == DiagBadSplitter {
			found = true
		}
	}
	if !found {
		t.Error("out-of-range splitter bit not reported")
	}
	// the legal bit still threads through
	cb := n.byCoord[Coord{0, 0}]
	fan := n.byCoord[Coord{10, 0}]
	if n.nodes[cb].threads[0] != n.nodes[fan].threads[0] {
		t.Error("legal splitter bit not threaded")
	}
}

func TestApplyThreadValue(t *testing.T) {
	n := newNetlist()
	d := n.addComponent(out1("d"))
	co := Coord{0, 0}
	n.connect(d, "out", co)
	n.addWire(co, Coord{10, 0}, 0)
	n.build()
	nid := n.byCoord[co]
	other := n.byCoord[Coord{10, 0}]
	tid := n.nodes[nid].threads[0]

	changes := n.applyThreadValue(tid, High, nil)
	if len(changes) != 2 {
		t.Fatalf("%d changes, want one per node on the thread", len(changes))
	}
	for _, id := range []NodeID{nid, other} {
		if got := n.nodes[id].signal; got != FromValue(High, 1) {
			t.Errorf("node %d signal %v, want 1", id, got)
		}
	}
	// same value again: no change records
	if changes = n.applyThreadValue(tid, High, nil); len(changes) != 0 {
		t.Errorf("redundant apply produced %d changes", len(changes))
	}
}

func TestRemoveComponentDropsDrivers(t *testing.T) {
	n := newNetlist()
	a := n.addComponent(out1("a"))
	b := n.addComponent(out1("b"))
	co := Coord{0, 0}
	n.connect(a, "out", co)
	n.connect(b, "out", co)
	n.build()
	nid := n.byCoord[co]
	n.setDriver(a, nid, FromValue(High, 1), Strong)
	n.setDriver(b, nid, FromValue(Low, 1), Strong)
	if err := n.removeComponent(a); err != nil {
		t.Fatal(err)
	}
	if len(n.nodes[nid].drivers) != 1 || n.nodes[nid].drivers[0].comp != b {
		t.Errorf("stale driver table after removal: %+v", n.nodes[nid].drivers)
	}
	if err := n.removeComponent(a); err == nil {
		t.Error("double remove succeeded")
	}
}
