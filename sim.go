// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"time"

	"github.com/pkg/errors"
)

// A SimState is the lifecycle state of a Simulation. Oscillating, TimedOut,
// BudgetExceeded and Overflowed are terminal: only Reset leaves them.
//
type SimState uint8

// Simulation states.
//
const (
	Ready SimState = iota
	Running
	Settled
	Oscillating
	TimedOut
	BudgetExceeded
	Overflowed
)

func (s SimState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Settled:
		return "settled"
	case Oscillating:
		return "oscillating"
	case TimedOut:
		return "timeout"
	case BudgetExceeded:
		return "budget exceeded"
	case Overflowed:
		return "overflow"
	}
	return "?"
}

// terminal reports whether the state requires a Reset to leave.
//
func (s SimState) terminal() bool {
	return s == Oscillating || s == TimedOut || s == BudgetExceeded || s == Overflowed
}

// DefaultMaxEventsPerInstant is the default oscillation guard.
//
const DefaultMaxEventsPerInstant = 10000

// A SimConfig configures a Simulation. The zero value is usable.
//
type SimConfig struct {
	// MaxEventsPerInstant is the oscillation guard: dispatching more events
	// within one instant halts with Oscillating. 0 means the default.
	MaxEventsPerInstant uint64
	// MaxEventsPerRun bounds one Run call. 0 means unlimited.
	MaxEventsPerRun uint64
	// Timeout bounds one Run call in wall-clock time. 0 means none.
	Timeout time.Duration
	// Registry supplies component factories. nil means an empty registry;
	// use stdlib.Registry() for the standard component library.
	Registry *Registry
}

// A StepResult reports the outcome of one Step or Tick.
//
type StepResult struct {
	State           SimState
	EventsProcessed uint64
	CurrentTime     Timestamp
}

// A RunResult reports the outcome of one Run.
//
type RunResult struct {
	State SimState
	Stats Stats
}

// A Simulation owns a netlist, an event queue and a component registry, and
// advances simulated time. It is a single-owner value: all methods must be
// called from one goroutine, and observers may query it only between steps.
//
type Simulation struct {
	cfg SimConfig
	reg *Registry
	net *netlist
	q   *eventQueue
	obs observerList

	stats    Stats
	state    SimState
	oscNodes []NodeID // frontier reported by the oscillation guard

	// per-run guards
	runEvents uint64
	deadline  time.Time
	edgeSeen  bool // a rising clock edge was dispatched since the last Tick armed

	// scratch buffers reused across events
	toggles map[NodeID]uint64
	changes []nodeChange
	readers []ComponentID
	tids    []ThreadID
}

// New creates a simulation with the given configuration.
//
func New(cfg SimConfig) *Simulation {
	if cfg.MaxEventsPerInstant == 0 {
		cfg.MaxEventsPerInstant = DefaultMaxEventsPerInstant
	}
	reg := cfg.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Simulation{
		cfg:     cfg,
		reg:     reg,
		net:     newNetlist(),
		q:       newEventQueue(),
		state:   Ready,
		toggles: make(map[NodeID]uint64),
	}
}

// AddComponent creates a component of the given kind and adds it to the
// netlist.
//
func (s *Simulation) AddComponent(kind string, attrs AttrMap) (ComponentID, error) {
	c, err := s.reg.New(kind, attrs)
	if err != nil {
		return 0, err
	}
	return s.net.addComponent(c), nil
}

// RemoveComponent detaches a component from the netlist. Connectivity must
// be rebuilt with Finalize before the next step.
//
func (s *Simulation) RemoveComponent(id ComponentID) error {
	return s.net.removeComponent(id)
}

// Connect joins a component pin to the node at the given coordinate.
//
func (s *Simulation) Connect(id ComponentID, pin string, c Coord) error {
	return errors.Wrap(s.net.connect(id, pin, c), "connect")
}

// AddWire joins the nodes at a and b. A non-zero width hint participates in
// width resolution like a component pin.
//
func (s *Simulation) AddWire(a, b Coord, hint Width) error {
	if hint != 0 && !hint.Valid() {
		return errors.Errorf("add wire: width hint %d out of range", hint)
	}
	s.net.addWire(a, b, hint)
	return nil
}

// AddTunnel joins the node at c with every other tunnel of the same name.
//
func (s *Simulation) AddTunnel(c Coord, name string, hint Width) error {
	if name == "" {
		return errors.New("add tunnel: empty name")
	}
	if hint != 0 && !hint.Valid() {
		return errors.Errorf("add tunnel: width hint %d out of range", hint)
	}
	s.net.addTunnel(c, name, hint)
	return nil
}

// Finalize rebuilds connectivity and schedules every component for initial
// evaluation. It is idempotent while the topology is unchanged. The
// returned diagnostics describe width conflicts and similar build problems;
// affected nodes are pinned to Err but the simulation remains usable.
//
func (s *Simulation) Finalize() []Diagnostic {
	if s.net.valid {
		return nil
	}
	diags := s.net.build()
	for i := range s.net.nodes {
		nd := &s.net.nodes[i]
		if nd.conflicted {
			s.obs.signalChange(NodeID(i), MakeSignal(nd.width), nd.signal, s.q.now)
		}
	}
	s.scheduleInitial()
	if !s.state.terminal() {
		s.state = Ready
	}
	return diags
}

// scheduleInitial enqueues a ComponentUpdate for every live component and
// the first edge of every clock source.
//
func (s *Simulation) scheduleInitial() {
	for ci := range s.net.comps {
		e := &s.net.comps[ci]
		if e.removed {
			continue
		}
		s.schedule(0, event{kind: evComponentUpdate, comp: ComponentID(ci)})
		if cs, ok := e.c.(ClockSource); ok {
			if nid, bound := e.pinNodes[cs.ClockOutput()]; bound {
				edge, d := cs.FirstEdge()
				s.schedule(d, event{kind: evClockEdge, node: nid, edge: edge, source: ComponentID(ci)})
			}
		}
	}
}

// schedule inserts an event, switching to Overflowed on timestamp wrap.
//
func (s *Simulation) schedule(d Delay, e event) {
	if _, ok := s.q.schedule(d, e); !ok {
		s.state = Overflowed
		s.q.drain()
	}
}

// SetInput assigns a value to an input pin component. The change enters the
// simulation as an event in the current instant.
//
func (s *Simulation) SetInput(id ComponentID, sig Signal) error {
	if int(id) >= len(s.net.comps) || s.net.comps[id].removed {
		return errors.Errorf("no such component %d", id)
	}
	setter, ok := s.net.comps[id].c.(InputSetter)
	if !ok {
		return errors.Errorf("component %s is not an input", s.net.comps[id].c.Kind())
	}
	if err := setter.SetValue(sig); err != nil {
		return err
	}
	s.schedule(0, event{kind: evComponentUpdate, comp: id})
	return nil
}

// An InputSetter accepts externally driven values. The stdlib Pin component
// implements it.
//
type InputSetter interface {
	Component
	SetValue(Signal) error
}

// Reset drains the queue, rewinds time to zero, clears all driver tables,
// restores every component's power-up state and schedules initial
// evaluations. It is the only way out of a terminal state.
//
func (s *Simulation) Reset() {
	s.q.reset()
	for i := range s.net.nodes {
		nd := &s.net.nodes[i]
		nd.drivers = nd.drivers[:0]
		if nd.width != 0 {
			if nd.conflicted {
				nd.signal = ErrorSignal(nd.width)
			} else {
				nd.signal = MakeSignal(nd.width)
			}
		}
	}
	for ci := range s.net.comps {
		e := &s.net.comps[ci]
		if e.removed {
			continue
		}
		e.c.Reset()
		for k := range e.applied {
			delete(e.applied, k)
		}
	}
	s.state = Ready
	s.oscNodes = nil
	s.runEvents = 0
	if s.net.valid {
		s.scheduleInitial()
	}
	s.obs.simEvent(SimReset)
}

// RegisterObserver adds a trace observer.
//
func (s *Simulation) RegisterObserver(o Observer) ObserverID {
	return s.obs.register(o)
}

// UnregisterObserver removes a trace observer. A removed observer is never
// called again.
//
func (s *Simulation) UnregisterObserver(id ObserverID) bool {
	return s.obs.unregister(id)
}

// NodeAt returns the node registered at the given coordinate.
//
func (s *Simulation) NodeAt(c Coord) (NodeID, bool) {
	id, ok := s.net.byCoord[c]
	return id, ok
}

// NodeSignal returns the last resolved signal at a node.
//
func (s *Simulation) NodeSignal(id NodeID) Signal {
	return s.net.nodes[id].signal
}

// NodeName returns the trace label of a node, if any.
//
func (s *Simulation) NodeName(id NodeID) string {
	return s.net.nodes[id].name
}

// FindNode returns the first node carrying the given label.
//
func (s *Simulation) FindNode(label string) (NodeID, bool) {
	for i := range s.net.nodes {
		if s.net.nodes[i].name == label {
			return NodeID(i), true
		}
	}
	return 0, false
}

// NumNodes returns the size of the node arena.
//
func (s *Simulation) NumNodes() int { return len(s.net.nodes) }

// ComponentPins lists a component's declared pins.
//
func (s *Simulation) ComponentPins(id ComponentID) []Pin {
	if int(id) >= len(s.net.comps) || s.net.comps[id].removed {
		return nil
	}
	return s.net.comps[id].pins
}

// ComponentState returns a component's inspectable state, or nil if it has
// none. The returned value must be treated as read-only.
//
func (s *Simulation) ComponentState(id ComponentID) interface{} {
	if int(id) >= len(s.net.comps) || s.net.comps[id].removed {
		return nil
	}
	if st, ok := s.net.comps[id].c.(Stateful); ok {
		return st.State()
	}
	return nil
}

// CurrentTime returns the logical time cursor.
//
func (s *Simulation) CurrentTime() Timestamp { return s.q.now }

// State returns the simulation's lifecycle state.
//
func (s *Simulation) State() SimState { return s.state }

// Stats returns a copy of the running counters.
//
func (s *Simulation) Stats() Stats { return s.stats }

// OscillationNodes returns the frontier reported by the last oscillation
// guard trip: the nodes whose values toggled most within the instant.
//
func (s *Simulation) OscillationNodes() []NodeID { return s.oscNodes }
