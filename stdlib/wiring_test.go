// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stdlib_test

import (
	"testing"

	"github.com/db47h/logsim"
	"github.com/db47h/logsim/simtest"
)

func TestConstants(t *testing.T) {
	c := simtest.New(t, logsim.SimConfig{})
	k := c.Add("Constant", logsim.AttrMap{"width": "8", "value": "0x5a"})
	p := c.Add("Power", logsim.AttrMap{"width": "4"})
	g := c.Add("Ground", logsim.AttrMap{"width": "4"})
	c.Output("K", 8)
	c.Output("P", 4)
	c.Output("G", 4)
	c.Connect(k, "out", "K")
	c.Connect(p, "out", "P")
	c.Connect(g, "out", "G")
	c.Finalize()
	c.Run()
	c.Expect("K", 0x5a, 8)
	c.Expect("P", 0xf, 4)
	c.Expect("G", 0, 4)
}

func TestPullResistor(t *testing.T) {
	c := simtest.New(t, logsim.SimConfig{})
	pull := c.Add("PullResistor", nil)
	c.Output("Y", 1)
	c.Connect(pull, "out", "Y")
	c.Finalize()
	c.Run()
	c.Expect("Y", 0, 1)
}

func TestTunnelComponent(t *testing.T) {
	// two tunnels with the same label are one net
	c := simtest.New(t, logsim.SimConfig{})
	t1 := c.Add("Tunnel", logsim.AttrMap{"label": "bus"})
	t2 := c.Add("Tunnel", logsim.AttrMap{"label": "bus"})
	c.Input("A", 1)
	c.Output("B", 1)
	c.Connect(t1, "in", "A")
	c.Connect(t2, "in", "B")
	c.Finalize()
	c.Set("A", 1, 1)
	c.Run()
	c.Expect("B", 1, 1)
}

func TestProbeLabel(t *testing.T) {
	c := simtest.New(t, logsim.SimConfig{})
	pr := c.Add("Probe", logsim.AttrMap{"label": "watch"})
	c.Input("A", 1)
	c.Connect(pr, "in", "A")
	c.Finalize()
	c.Set("A", 1, 1)
	c.Run()
	id, ok := c.Sim.FindNode("watch")
	if !ok {
		t.Fatal("probe label not applied to its node")
	}
	if got := c.Sim.NodeSignal(id); got != logsim.FromBits(1, 1) {
		t.Errorf("probed node = %v, want 1", got)
	}
	if got := c.Sim.ComponentState(pr).(logsim.Signal); got != logsim.FromBits(1, 1) {
		t.Errorf("probe state = %v, want 1", got)
	}
}

func TestClockEdges(t *testing.T) {
	c := simtest.New(t, logsim.SimConfig{})
	clk := c.Add("Clock", logsim.AttrMap{"period": "10", "duty": "30"})
	c.Output("C", 1)
	c.Connect(clk, "out", "C")
	c.Finalize()

	// first tick delivers the rising edge at t=0
	c.Sim.Tick()
	if tm := c.Sim.CurrentTime(); tm >= 10 {
		t.Errorf("first tick ended at t=%d, want before the second period", tm)
	}
	// the level follows the edges: high for 3 units, low for 7
	c.Expect("C", 1, 1)
}

func TestClockAttrValidation(t *testing.T) {
	c := simtest.New(t, logsim.SimConfig{})
	if _, err := c.Sim.AddComponent("Clock", logsim.AttrMap{"period": "1"}); err == nil {
		t.Error("period 1 accepted")
	}
	if _, err := c.Sim.AddComponent("Clock", logsim.AttrMap{"duty": "0"}); err == nil {
		t.Error("duty 0 accepted")
	}
	if _, err := c.Sim.AddComponent("Tunnel", nil); err == nil {
		t.Error("tunnel without label accepted")
	}
}

func TestSplitterExplicitMap(t *testing.T) {
	// bit0 -> leg1, bit1 -> leg0, bit2 disconnected
	c := simtest.New(t, logsim.SimConfig{})
	s := c.Add("Splitter", logsim.AttrMap{
		"incoming": "3", "fanout": "2",
		"bit0": "1", "bit1": "0", "bit2": "none",
	})
	c.Input("bus", 3)
	c.Output("L0", 1)
	c.Output("L1", 1)
	c.Connect(s, "combined", "bus")
	c.Connect(s, "fan0", "L0")
	c.Connect(s, "fan1", "L1")
	c.Finalize()

	c.Set("bus", 0b001, 3)
	c.Run()
	c.Expect("L1", 1, 1)
	c.Expect("L0", 0, 1)

	c.Set("bus", 0b010, 3)
	c.Run()
	c.Expect("L1", 0, 1)
	c.Expect("L0", 1, 1)

	// the disconnected bit drives nothing
	c.Set("bus", 0b100, 3)
	c.Run()
	c.Expect("L0", 0, 1)
	c.Expect("L1", 0, 1)
}

func TestInputPinWidthCheck(t *testing.T) {
	c := simtest.New(t, logsim.SimConfig{})
	in := c.Input("A", 4)
	c.Finalize()
	if err := c.Sim.SetInput(in, logsim.FromBits(1, 8)); err == nil {
		t.Error("width-mismatched SetInput accepted")
	}
	out := c.Add("Pin", logsim.AttrMap{"output": "true"})
	c.Connect(out, "in", "A")
	if err := c.Sim.SetInput(out, logsim.FromBits(1, 1)); err == nil {
		t.Error("SetInput on an output pin accepted")
	}
}
