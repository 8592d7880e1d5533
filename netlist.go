// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"sort"

	"github.com/pkg/errors"
)

// Arena ids. All are allocated monotonically and never reused within one
// simulation; every cross-reference between entities is an id, not a
// pointer.
//
type (
	// A ComponentID identifies a component in the component arena.
	ComponentID int
	// A NodeID identifies a connection point.
	NodeID int
	// A BundleID identifies a set of wires sharing one width.
	BundleID int
	// A ThreadID identifies a single-bit electrical thread, the finest unit
	// of propagation.
	ThreadID int
)

// A NetID is the identifier the trace layer uses for an electrical net; it
// is the node's bundle.
//
type NetID = BundleID

// A Coord is a grid position, matching the coordinate system of circuit
// files.
//
type Coord struct {
	X, Y int
}

// A DiagKind classifies a build diagnostic.
//
type DiagKind uint8

// Build diagnostics.
//
const (
	DiagWidthConflict DiagKind = iota
	DiagBadSplitter
	DiagUnconnectedPin
)

func (k DiagKind) String() string {
	switch k {
	case DiagWidthConflict:
		return "width conflict"
	case DiagBadSplitter:
		return "bad splitter map"
	case DiagUnconnectedPin:
		return "unconnected pin"
	}
	return "?"
}

// A Diagnostic reports a netlist build problem. Diagnostics do not stop the
// simulation; affected nodes are pinned to Err instead.
//
type Diagnostic struct {
	Kind  DiagKind
	Coord Coord
	Nodes []NodeID
	Msg   string
}

func (d Diagnostic) Error() string { return d.Kind.String() + ": " + d.Msg }

// A driverEntry is one component's contribution to a node, kept sorted by
// component id so that resolution order is deterministic.
//
type driverEntry struct {
	comp     ComponentID
	signal   Signal
	strength Strength
}

// A node is a connection point at one coordinate.
//
type node struct {
	coord      Coord
	width      Width
	signal     Signal
	drivers    []driverEntry
	bundle     BundleID
	threads    []ThreadID    // per bit index
	readers    []ComponentID // components with In/InOut pins here, sorted
	name       string
	conflicted bool // width conflict: pinned to Err until rebuild
}

type bundleRec struct {
	width    Width
	nodes    []NodeID
	conflict bool
}

type bitRef struct {
	node NodeID
	bit  int
}

type threadRec struct {
	bits []bitRef
}

type wireRec struct {
	a, b Coord
	hint Width
}

type tunnelRec struct {
	coord Coord
	name  string
	hint  Width
}

type compEntry struct {
	c        Component
	pins     []Pin              // declared pin list, stable order
	widths   map[string]Width   // resolved pin widths
	pinNodes map[string]NodeID  // bindings made by Connect
	applied  map[string]Drive  // last drive applied per output pin
	inbuf    Inputs            // reused input snapshot, one per component
	removed  bool
}

// A netlist holds the structural circuit: nodes, wires, tunnels, components
// and, once built, bundles and threads.
//
type netlist struct {
	nodes   []node
	byCoord map[Coord]NodeID
	comps   []compEntry
	wires   []wireRec
	tunnels []tunnelRec

	bundles []bundleRec
	threads []threadRec
	// edge-triggered listeners per thread, fixed at build time
	clockListeners map[ThreadID][]ComponentID

	valid bool
}

func newNetlist() *netlist {
	return &netlist{byCoord: make(map[Coord]NodeID), clockListeners: make(map[ThreadID][]ComponentID)}
}

// nodeAt returns the node registered at c, allocating one if needed.
//
func (n *netlist) nodeAt(c Coord) NodeID {
	if id, ok := n.byCoord[c]; ok {
		return id
	}
	id := NodeID(len(n.nodes))
	n.nodes = append(n.nodes, node{coord: c, bundle: -1})
	n.byCoord[c] = id
	return id
}

func (n *netlist) addComponent(c Component) ComponentID {
	id := ComponentID(len(n.comps))
	n.comps = append(n.comps, compEntry{
		c:        c,
		pins:     c.Pins(),
		widths:   make(map[string]Width),
		pinNodes: make(map[string]NodeID),
		applied:  make(map[string]Drive),
	})
	n.valid = false
	return id
}

// removeComponent detaches a component: its pin bindings and driver entries
// are dropped. The arena slot is kept so that ids are never reused.
//
func (n *netlist) removeComponent(id ComponentID) error {
	if int(id) >= len(n.comps) || n.comps[id].removed {
		return errors.Errorf("no such component %d", id)
	}
	e := &n.comps[id]
	e.removed = true
	e.pinNodes = make(map[string]NodeID)
	for i := range n.nodes {
		n.nodes[i].dropDriver(id)
	}
	n.valid = false
	return nil
}

func (n *netlist) connect(id ComponentID, pin string, c Coord) error {
	if int(id) >= len(n.comps) || n.comps[id].removed {
		return errors.Errorf("no such component %d", id)
	}
	e := &n.comps[id]
	var found bool
	for _, p := range e.pins {
		if p.Name == pin {
			found = true
			break
		}
	}
	if !found {
		return errors.Errorf("component %s has no pin %q", e.c.Kind(), pin)
	}
	e.pinNodes[pin] = n.nodeAt(c)
	n.valid = false
	return nil
}

func (n *netlist) addWire(a, b Coord, hint Width) {
	n.nodeAt(a)
	n.nodeAt(b)
	n.wires = append(n.wires, wireRec{a: a, b: b, hint: hint})
	n.valid = false
}

func (n *netlist) addTunnel(c Coord, name string, hint Width) {
	n.nodeAt(c)
	n.tunnels = append(n.tunnels, tunnelRec{coord: c, name: name, hint: hint})
	n.valid = false
}

// unionFind is a plain parent-array union-find with path halving.
//
type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(x int) int {
	for u[x] != x {
		u[x] = u[u[x]]
		x = u[x]
	}
	return x
}

func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		// lower root wins, keeping group numbering deterministic
		if ra < rb {
			u[rb] = ra
		} else {
			u[ra] = rb
		}
	}
}

// build runs the connectivity algorithm: bundle union-find, width
// resolution, thread construction. It is idempotent while the netlist stays
// valid.
//
func (n *netlist) build() []Diagnostic {
	if n.valid {
		return nil
	}
	var diags []Diagnostic

	// 1. bundle union-find over nodes
	uf := newUnionFind(len(n.nodes))
	for _, w := range n.wires {
		uf.union(int(n.byCoord[w.a]), int(n.byCoord[w.b]))
	}
	byName := make(map[string][]NodeID)
	for _, t := range n.tunnels {
		byName[t.name] = append(byName[t.name], n.byCoord[t.coord])
	}
	// tunnel components join by label like builder-added tunnels
	for ci := range n.comps {
		e := &n.comps[ci]
		if e.removed {
			continue
		}
		tn, ok := e.c.(interface{ TunnelName() string })
		if !ok {
			continue
		}
		for _, p := range e.pins {
			if nid, bound := e.pinNodes[p.Name]; bound {
				byName[tn.TunnelName()] = append(byName[tn.TunnelName()], nid)
			}
		}
	}
	for _, ids := range byName {
		for i := 1; i < len(ids); i++ {
			uf.union(int(ids[0]), int(ids[i]))
		}
	}

	// assign bundle ids in node order
	n.bundles = n.bundles[:0]
	rootBundle := make(map[int]BundleID)
	for i := range n.nodes {
		root := uf.find(i)
		bid, ok := rootBundle[root]
		if !ok {
			bid = BundleID(len(n.bundles))
			n.bundles = append(n.bundles, bundleRec{})
			rootBundle[root] = bid
		}
		b := &n.bundles[bid]
		b.nodes = append(b.nodes, NodeID(i))
		n.nodes[i].bundle = bid
	}

	// 2. width resolution: component pin widths first, wire/tunnel hints
	// second
	pinWidths := make(map[BundleID][]Width)
	addW := func(bid BundleID, w Width) {
		if w != 0 {
			pinWidths[bid] = append(pinWidths[bid], w)
		}
	}
	for ci := range n.comps {
		e := &n.comps[ci]
		if e.removed {
			continue
		}
		for _, p := range e.pins {
			nid, ok := e.pinNodes[p.Name]
			if !ok {
				continue
			}
			addW(n.nodes[nid].bundle, p.Width)
		}
	}
	for _, w := range n.wires {
		addW(n.nodes[n.byCoord[w.a]].bundle, w.hint)
	}
	for _, t := range n.tunnels {
		addW(n.nodes[n.byCoord[t.coord]].bundle, t.hint)
	}
	for bi := range n.bundles {
		b := &n.bundles[bi]
		b.width = 0
		b.conflict = false
		for _, w := range pinWidths[BundleID(bi)] {
			switch {
			case b.width == 0:
				b.width = w
			case w != b.width:
				b.conflict = true
				// keep the widest so downstream bit indexing stays in range
				if w > b.width {
					b.width = w
				}
			}
		}
		if b.width == 0 {
			b.width = 1
		}
		if b.conflict {
			diags = append(diags, Diagnostic{
				Kind:  DiagWidthConflict,
				Coord: n.nodes[b.nodes[0]].coord,
				Nodes: append([]NodeID(nil), b.nodes...),
				Msg:   "connected pins disagree on bus width",
			})
		}
	}

	// resolve per-node and per-pin widths, reset signals
	for i := range n.nodes {
		nd := &n.nodes[i]
		b := &n.bundles[nd.bundle]
		nd.width = b.width
		nd.conflicted = b.conflict
		if b.conflict {
			nd.signal = ErrorSignal(b.width)
		} else {
			nd.signal = MakeSignal(b.width)
		}
		nd.drivers = nd.drivers[:0]
		nd.readers = nd.readers[:0]
		nd.name = ""
	}
	for ci := range n.comps {
		e := &n.comps[ci]
		if e.removed {
			continue
		}
		for _, p := range e.pins {
			w := p.Width
			if nid, ok := e.pinNodes[p.Name]; ok && w == 0 {
				w = n.nodes[nid].width
			}
			if w == 0 {
				w = 1
			}
			e.widths[p.Name] = w
		}
		e.applied = make(map[string]Drive)
	}

	// 3. thread construction: one slot per (bundle, bit), joined across
	// splitters
	slotBase := make([]int, len(n.bundles))
	slots := 0
	for bi := range n.bundles {
		slotBase[bi] = slots
		slots += int(n.bundles[bi].width)
	}
	tf := newUnionFind(slots)
	slotOf := func(nid NodeID, bit int) (int, bool) {
		nd := &n.nodes[nid]
		if bit < 0 || bit >= int(nd.width) {
			return 0, false
		}
		return slotBase[nd.bundle] + bit, true
	}
	for ci := range n.comps {
		e := &n.comps[ci]
		if e.removed {
			continue
		}
		tm, ok := e.c.(ThreadMapper)
		if !ok {
			continue
		}
		used := make(map[ThreadJoin]bool) // fan-side bits already joined
		for _, j := range tm.ThreadJoins() {
			na, aok := e.pinNodes[j.PinA]
			nb, bok := e.pinNodes[j.PinB]
			if !aok || !bok {
				continue
			}
			sa, aok := slotOf(na, j.BitA)
			sb, bok := slotOf(nb, j.BitB)
			if !aok || !bok {
				// out of range for the resolved bundle width: treat the bit
				// as disconnected
				diags = append(diags, Diagnostic{
					Kind:  DiagBadSplitter,
					Coord: n.nodes[na].coord,
					Msg:   "splitter bit map out of range",
				})
				continue
			}
			fan := ThreadJoin{PinB: j.PinB, BitB: j.BitB}
			if used[fan] {
				// a fan bit mapped twice: the repeated join stays
				// disconnected
				diags = append(diags, Diagnostic{
					Kind:  DiagBadSplitter,
					Coord: n.nodes[na].coord,
					Msg:   "splitter bit map repeats a fan bit",
				})
				continue
			}
			used[fan] = true
			tf.union(sa, sb)
		}
	}
	n.threads = n.threads[:0]
	rootThread := make(map[int]ThreadID)
	threadAt := make([]ThreadID, slots)
	for s := 0; s < slots; s++ {
		root := tf.find(s)
		tid, ok := rootThread[root]
		if !ok {
			tid = ThreadID(len(n.threads))
			n.threads = append(n.threads, threadRec{})
			rootThread[root] = tid
		}
		threadAt[s] = tid
	}
	for i := range n.nodes {
		nd := &n.nodes[i]
		nd.threads = nd.threads[:0]
		base := slotBase[nd.bundle]
		for bit := 0; bit < int(nd.width); bit++ {
			tid := threadAt[base+bit]
			nd.threads = append(nd.threads, tid)
			n.threads[tid].bits = append(n.threads[tid].bits, bitRef{node: NodeID(i), bit: bit})
		}
	}

	// reader lists, node labels and clock listeners
	n.clockListeners = make(map[ThreadID][]ComponentID)
	for ci := range n.comps {
		e := &n.comps[ci]
		if e.removed {
			continue
		}
		for _, p := range e.pins {
			nid, ok := e.pinNodes[p.Name]
			if !ok {
				// unconnected inputs read all-Unknown; components decide
				// what that means
				continue
			}
			if p.Dir == In || p.Dir == InOut {
				n.nodes[nid].readers = append(n.nodes[nid].readers, ComponentID(ci))
			}
		}
		if lb, ok := e.c.(interface{ Label() string }); ok && lb.Label() != "" {
			for _, p := range e.pins {
				if nid, ok := e.pinNodes[p.Name]; ok && n.nodes[nid].name == "" {
					n.nodes[nid].name = lb.Label()
					break
				}
			}
		}
		if et, ok := e.c.(EdgeTriggered); ok {
			if nid, ok := e.pinNodes[et.ClockPin()]; ok {
				tid := n.nodes[nid].threads[0]
				n.clockListeners[tid] = append(n.clockListeners[tid], ComponentID(ci))
			}
		}
	}
	for _, t := range n.tunnels {
		nid := n.byCoord[t.coord]
		if n.nodes[nid].name == "" {
			n.nodes[nid].name = t.name
		}
	}
	for i := range n.nodes {
		sortComponentIDs(n.nodes[i].readers)
	}
	for tid := range n.clockListeners {
		sortComponentIDs(n.clockListeners[tid])
	}

	n.valid = true
	return diags
}

func sortComponentIDs(ids []ComponentID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func (nd *node) dropDriver(id ComponentID) {
	for i := range nd.drivers {
		if nd.drivers[i].comp == id {
			nd.drivers = append(nd.drivers[:i], nd.drivers[i+1:]...)
			return
		}
	}
}

// setDriver replaces comp's contribution to node nid and returns the thread
// ids covering the node's bits. The caller re-resolves those threads.
//
func (n *netlist) setDriver(comp ComponentID, nid NodeID, s Signal, st Strength) []ThreadID {
	nd := &n.nodes[nid]
	i := sort.Search(len(nd.drivers), func(i int) bool { return nd.drivers[i].comp >= comp })
	if i < len(nd.drivers) && nd.drivers[i].comp == comp {
		nd.drivers[i].signal = s
		nd.drivers[i].strength = st
	} else {
		nd.drivers = append(nd.drivers, driverEntry{})
		copy(nd.drivers[i+1:], nd.drivers[i:])
		nd.drivers[i] = driverEntry{comp: comp, signal: s, strength: st}
	}
	return nd.threads
}

// resolveThread combines every driver contribution on every bit of the
// thread. The highest occupied strength level wins; a driver occupies a bit
// only when it contributes a non-Unknown value with non-Floating strength,
// so released tri-state outputs never mask weaker pulls.
//
func (n *netlist) resolveThread(tid ThreadID) Value {
	v := Unknown
	top := Floating
	for _, br := range n.threads[tid].bits {
		nd := &n.nodes[br.node]
		if nd.conflicted {
			return Err
		}
		for i := range nd.drivers {
			d := &nd.drivers[i]
			bv := d.signal.Bit(br.bit)
			if bv == Unknown || d.strength == Floating {
				continue
			}
			switch {
			case d.strength > top:
				top, v = d.strength, bv
			case d.strength == top:
				v = v.Combine(bv)
			}
		}
	}
	return v
}

// A nodeChange records one committed node value change for the trace layer.
//
type nodeChange struct {
	node     NodeID
	old, new Signal
}

// applyThreadValue writes v into every bit of the thread, appending one
// nodeChange per node whose signal changed.
//
func (n *netlist) applyThreadValue(tid ThreadID, v Value, changes []nodeChange) []nodeChange {
	for _, br := range n.threads[tid].bits {
		nd := &n.nodes[br.node]
		if nd.conflicted {
			continue
		}
		old := nd.signal
		nw := old.WithBit(br.bit, v)
		if nw == old {
			continue
		}
		nd.signal = nw
		changes = append(changes, nodeChange{node: br.node, old: old, new: nw})
	}
	return changes
}

// pinWidth returns the resolved width of a component pin.
//
func (n *netlist) pinWidth(id ComponentID, pin string) Width {
	if w, ok := n.comps[id].widths[pin]; ok && w != 0 {
		return w
	}
	return 1
}

// snapshot collects the input pin values of a component. The returned map
// is owned by the netlist and valid until the component's next snapshot;
// evaluation hooks must not retain it.
//
func (n *netlist) snapshot(id ComponentID) Inputs {
	e := &n.comps[id]
	if e.inbuf == nil {
		e.inbuf = make(Inputs, len(e.pins))
	}
	in := e.inbuf
	for _, p := range e.pins {
		if p.Dir == Out {
			continue
		}
		if nid, ok := e.pinNodes[p.Name]; ok {
			in[p.Name] = n.nodes[nid].signal
		} else {
			in[p.Name] = MakeSignal(n.pinWidth(id, p.Name))
		}
	}
	return in
}
