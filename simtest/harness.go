// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package simtest provides utility functions for testing circuits.
//
package simtest

import (
	"strconv"
	"testing"

	"github.com/db47h/logsim"
	"github.com/db47h/logsim/stdlib"
)

// A Circuit wraps a Simulation under construction with name-based wiring:
// nets are named instead of placed, and the harness allocates one grid
// coordinate per net name.
//
type Circuit struct {
	t   *testing.T
	Sim *logsim.Simulation

	nets   map[string]logsim.Coord
	nextX  int
	inputs map[string]logsim.ComponentID
}

// New creates a test circuit with the full stdlib registered.
//
func New(t *testing.T, cfg logsim.SimConfig) *Circuit {
	t.Helper()
	if cfg.Registry == nil {
		cfg.Registry = stdlib.Registry()
	}
	return &Circuit{
		t:      t,
		Sim:    logsim.New(cfg),
		nets:   make(map[string]logsim.Coord),
		inputs: make(map[string]logsim.ComponentID),
	}
}

// Net returns the coordinate allocated to a named net.
//
func (c *Circuit) Net(name string) logsim.Coord {
	if co, ok := c.nets[name]; ok {
		return co
	}
	co := logsim.Coord{X: c.nextX * 10, Y: 0}
	c.nextX++
	c.nets[name] = co
	return co
}

// Add creates a component, failing the test on error.
//
func (c *Circuit) Add(kind string, attrs logsim.AttrMap) logsim.ComponentID {
	c.t.Helper()
	id, err := c.Sim.AddComponent(kind, attrs)
	if err != nil {
		c.t.Fatal(err)
	}
	return id
}

// Connect joins a component pin to a named net.
//
func (c *Circuit) Connect(id logsim.ComponentID, pin, net string) {
	c.t.Helper()
	if err := c.Sim.Connect(id, pin, c.Net(net)); err != nil {
		c.t.Fatal(err)
	}
}

// Input adds an input Pin component of the given width on the named net.
//
func (c *Circuit) Input(net string, w logsim.Width) logsim.ComponentID {
	c.t.Helper()
	id := c.Add("Pin", logsim.AttrMap{"width": itoa(int(w)), "label": net})
	c.Connect(id, "out", net)
	c.inputs[net] = id
	return id
}

// Output adds an output Pin component of the given width on the named net.
//
func (c *Circuit) Output(net string, w logsim.Width) logsim.ComponentID {
	c.t.Helper()
	id := c.Add("Pin", logsim.AttrMap{"width": itoa(int(w)), "label": net, "output": "true"})
	c.Connect(id, "in", net)
	return id
}

// Finalize rebuilds connectivity, failing the test on any diagnostic.
//
func (c *Circuit) Finalize() {
	c.t.Helper()
	if diags := c.Sim.Finalize(); len(diags) > 0 {
		for _, d := range diags {
			c.t.Errorf("finalize: %v", d)
		}
		c.t.FailNow()
	}
}

// Set assigns a fully defined value to a named input and lets the change
// enter the queue.
//
func (c *Circuit) Set(net string, v uint64, w logsim.Width) {
	c.SetSignal(net, logsim.FromBits(v, w))
}

// SetSignal assigns a signal to a named input.
//
func (c *Circuit) SetSignal(net string, s logsim.Signal) {
	c.t.Helper()
	id, ok := c.inputs[net]
	if !ok {
		c.t.Fatalf("no input on net %q", net)
	}
	if err := c.Sim.SetInput(id, s); err != nil {
		c.t.Fatal(err)
	}
}

// Run settles the simulation, failing the test if it halts abnormally.
//
func (c *Circuit) Run() {
	c.t.Helper()
	r := c.Sim.Run()
	if r.State != logsim.Settled && r.State != logsim.Ready {
		c.t.Fatalf("run ended in state %v", r.State)
	}
}

// Signal returns the resolved signal on a named net.
//
func (c *Circuit) Signal(net string) logsim.Signal {
	c.t.Helper()
	id, ok := c.Sim.NodeAt(c.Net(net))
	if !ok {
		c.t.Fatalf("no node on net %q", net)
	}
	return c.Sim.NodeSignal(id)
}

// Expect asserts that a named net carries the given fully defined value.
//
func (c *Circuit) Expect(net string, want uint64, w logsim.Width) {
	c.t.Helper()
	if got := c.Signal(net); got != logsim.FromBits(want, w) {
		c.t.Errorf("net %q = %v, want %v", net, got, logsim.FromBits(want, w))
	}
}

// ExpectSignal asserts an exact signal on a named net.
//
func (c *Circuit) ExpectSignal(net string, want logsim.Signal) {
	c.t.Helper()
	if got := c.Signal(net); got != want {
		c.t.Errorf("net %q = %v, want %v", net, got, want)
	}
}

func itoa(v int) string { return strconv.Itoa(v) }
