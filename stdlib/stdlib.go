// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package stdlib provides the standard component library for logsim:
// combinational gates, wiring primitives, sequential elements and memories.
//
package stdlib

import (
	"strconv"

	"github.com/db47h/logsim"
)

// common pin names
const (
	pIn   = "in"
	pOut  = "out"
	pEn   = "en"
	pClk  = "clk"
	pD    = "d"
	pQ    = "q"
	pQN   = "qn"
	pClr  = "clr"
	pLd   = "ld"
	pAddr = "addr"
	pDin  = "din"
	pDout = "dout"
	pWe   = "we"
)

// Register installs every stdlib factory into r.
//
func Register(r *logsim.Registry) error {
	for _, f := range []struct {
		kind string
		fn   logsim.Factory
	}{
		{"And", gateFactory("And")},
		{"Or", gateFactory("Or")},
		{"Nand", gateFactory("Nand")},
		{"Nor", gateFactory("Nor")},
		{"Xor", gateFactory("Xor")},
		{"Xnor", gateFactory("Xnor")},
		{"Not", newNot},
		{"Buffer", newBuffer},
		{"ControlledBuffer", newControlledBuffer},
		{"Pin", newPin},
		{"Constant", newConstant},
		{"Power", newPower},
		{"Ground", newGround},
		{"Clock", newClock},
		{"Tunnel", newTunnel},
		{"PullResistor", newPullResistor},
		{"Splitter", newSplitter},
		{"Probe", newProbe},
		{"DLatch", newDLatch},
		{"DFlipFlop", newDFlipFlop},
		{"Register", newRegister},
		{"Counter", newCounter},
		{"Rom", newRom},
		{"Ram", newRam},
	} {
		if err := r.Register(f.kind, f.fn); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns a fresh registry with the whole library installed.
//
func Registry() *logsim.Registry {
	r := logsim.NewRegistry()
	if err := Register(r); err != nil {
		panic(err) // duplicate registration in a fresh registry is a bug
	}
	return r
}

// inPin makes the i-th input pin name of a multi-input gate: in0, in1, ...
//
func inPin(i int) string {
	return pIn + strconv.Itoa(i)
}

// delayAttr reads the optional propagation delay attribute.
//
func delayAttr(attrs logsim.AttrMap, def logsim.Delay) (logsim.Delay, error) {
	v, err := attrs.Uint64("delay", uint64(def))
	return logsim.Delay(v), err
}
