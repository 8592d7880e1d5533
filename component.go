// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// A Dir is a pin direction.
//
type Dir uint8

// Pin directions.
//
const (
	In Dir = iota
	Out
	InOut
)

// A Pin describes one connection point of a component. Width 0 means
// "unspecified": the pin adopts the width of the bundle it ends up on.
//
type Pin struct {
	Name  string
	Dir   Dir
	Width Width
}

// Inputs is the snapshot of input pin values handed to Evaluate. Pins left
// unconnected read as all-Unknown.
//
type Inputs map[string]Signal

// Signal returns the snapshot value of the named pin, or an all-Unknown
// signal of width w if the pin was not sampled.
//
func (in Inputs) Signal(name string, w Width) Signal {
	if s, ok := in[name]; ok {
		return s
	}
	return MakeSignal(w)
}

// A Drive is one output contribution produced by an evaluation.
//
type Drive struct {
	Pin      string
	Signal   Signal
	Strength Strength
}

// An EvalResult carries the output drives of one evaluation. If DelayValid
// is set, Delay overrides the component's propagation delay for these
// drives.
//
type EvalResult struct {
	Drives     []Drive
	Delay      Delay
	DelayValid bool
}

// A Component models one circuit element. Implementations must be
// deterministic functions of the input snapshot and their own state, must
// not panic, and signal internal faults by driving Err on their outputs.
//
type Component interface {
	// Kind returns the factory key this component was created under.
	Kind() string
	// Pins lists the component's pins. The returned slice must be stable
	// across calls: pin order fixes evaluation determinism.
	Pins() []Pin
	// Evaluate computes output drives from an input snapshot.
	Evaluate(in Inputs, t Timestamp) EvalResult
	// Reset restores power-up state.
	Reset()
	// PropagationDelay is the default delay between an input change and the
	// resulting output change.
	PropagationDelay() Delay
}

// EdgeTriggered is implemented by sequential components that react to clock
// edges delivered on their clock pin.
//
type EdgeTriggered interface {
	Component
	// ClockPin names the pin that receives clock edges.
	ClockPin() string
	// OnClockEdge updates internal state for one edge and returns the
	// resulting output drives.
	OnClockEdge(e Edge, in Inputs, t Timestamp) EvalResult
}

// A ClockSource generates the simulation's clock edges. The driver schedules
// FirstEdge after every reset and chains NextEdge from each delivered edge.
//
type ClockSource interface {
	Component
	// ClockOutput names the pin on which edges appear.
	ClockOutput() string
	// FirstEdge returns the first edge and its offset from t=0.
	FirstEdge() (Edge, Delay)
	// NextEdge returns the edge following prev and the delay until it.
	NextEdge(prev Edge) (Edge, Delay)
	// OnEdge records a delivered edge so that the next evaluation drives
	// the new level.
	OnEdge(e Edge)
}

// A ThreadJoin declares that bit BitA of pin PinA and bit BitB of pin PinB
// are the same electrical thread.
//
type ThreadJoin struct {
	PinA string
	BitA int
	PinB string
	BitB int
}

// A ThreadMapper joins bits across its pins at netlist build time. Splitters
// implement this; the propagator never evaluates a pure mapper. A join whose
// PinB bit is out of range, or was already named by an earlier join of the
// same mapper, is dropped and reported as a bad splitter map.
//
type ThreadMapper interface {
	Component
	ThreadJoins() []ThreadJoin
}

// Stateful is implemented by components exposing inspectable state (latches,
// registers, memories). The returned value must be treated as read-only.
//
type Stateful interface {
	Component
	State() interface{}
}

// An AttrMap holds component attributes as parsed from a circuit file,
// e.g. {"width": "8", "inputs": "3"}.
//
type AttrMap map[string]string

// Int returns the named attribute as an int, or def if absent.
//
func (a AttrMap) Int(name string, def int) (int, error) {
	s, ok := a[name]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "attribute %q", name)
	}
	return v, nil
}

// Uint64 returns the named attribute as a uint64, accepting the 0x prefix,
// or def if absent.
//
func (a AttrMap) Uint64(name string, def uint64) (uint64, error) {
	s, ok := a[name]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "attribute %q", name)
	}
	return v, nil
}

// Width returns the named attribute as a bus width, or def if absent.
//
func (a AttrMap) Width(name string, def Width) (Width, error) {
	v, err := a.Int(name, int(def))
	if err != nil {
		return 0, err
	}
	w := Width(v)
	if !w.Valid() {
		return 0, errors.Errorf("attribute %q: width %d out of range [1, %d]", name, v, MaxWidth)
	}
	return w, nil
}

// String returns the named attribute, or def if absent.
//
func (a AttrMap) String(name, def string) string {
	if s, ok := a[name]; ok {
		return s
	}
	return def
}

// A Factory builds a component from its attributes.
//
type Factory func(attrs AttrMap) (Component, error)

// ErrUnknownKind is returned when no factory is registered for a kind.
//
var ErrUnknownKind = errors.New("unknown component kind")

// A Registry maps component kind names to factories.
//
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
//
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds kind to f. Registering a kind twice is an error.
//
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" {
		return errors.New("empty component kind")
	}
	if f == nil {
		return errors.Errorf("nil factory for kind %q", kind)
	}
	if _, dup := r.factories[kind]; dup {
		return errors.Errorf("kind %q already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// New builds a component of the given kind.
//
func (r *Registry) New(kind string, attrs AttrMap) (Component, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, errors.Wrap(ErrUnknownKind, kind)
	}
	return f(attrs)
}

// Kinds returns the registered kind names, sorted.
//
func (r *Registry) Kinds() []string {
	ks := make([]string, 0, len(r.factories))
	for k := range r.factories {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
