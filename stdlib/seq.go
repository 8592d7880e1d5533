// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stdlib

import (
	"github.com/db47h/logsim"
)

// A dLatch is a level-sensitive latch: while en is high the output follows
// d; while en is low it holds.
//
type dLatch struct {
	width logsim.Width
	delay logsim.Delay
	state logsim.Signal
	pins  []logsim.Pin
}

func (l *dLatch) Kind() string                  { return "DLatch" }
func (l *dLatch) Pins() []logsim.Pin            { return l.pins }
func (l *dLatch) PropagationDelay() logsim.Delay { return l.delay }
func (l *dLatch) State() interface{}            { return l.state }
func (l *dLatch) Reset()                        { l.state = logsim.MakeSignal(l.width) }

func (l *dLatch) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	if in.Signal(pEn, 1).Bit(0) == logsim.High {
		l.state = in.Signal(pD, l.width)
	}
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pQ, Signal: l.state, Strength: logsim.Strong}}}
}

func newDLatch(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("width", 1)
	if err != nil {
		return nil, err
	}
	d, err := delayAttr(attrs, 1)
	if err != nil {
		return nil, err
	}
	l := &dLatch{width: w, delay: d, state: logsim.MakeSignal(w)}
	l.pins = []logsim.Pin{
		{Name: pD, Dir: logsim.In, Width: w},
		{Name: pEn, Dir: logsim.In, Width: 1},
		{Name: pQ, Dir: logsim.Out, Width: w},
	}
	return l, nil
}

// A dFlipFlop captures d on the rising clock edge.
//
type dFlipFlop struct {
	delay logsim.Delay
	state logsim.Value
	pins  []logsim.Pin
}

func (f *dFlipFlop) Kind() string                  { return "DFlipFlop" }
func (f *dFlipFlop) Pins() []logsim.Pin            { return f.pins }
func (f *dFlipFlop) PropagationDelay() logsim.Delay { return f.delay }
func (f *dFlipFlop) State() interface{}            { return f.state }
func (f *dFlipFlop) Reset()                        { f.state = logsim.Low }
func (f *dFlipFlop) ClockPin() string              { return pClk }

func (f *dFlipFlop) drives() []logsim.Drive {
	q := logsim.FromValue(f.state, 1)
	return []logsim.Drive{
		{Pin: pQ, Signal: q, Strength: logsim.Strong},
		{Pin: pQN, Signal: q.Not(), Strength: logsim.Strong},
	}
}

func (f *dFlipFlop) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{Drives: f.drives()}
}

// OnClockEdge implements logsim.EdgeTriggered.
func (f *dFlipFlop) OnClockEdge(e logsim.Edge, in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	if e == logsim.Rising {
		f.state = in.Signal(pD, 1).Bit(0)
	}
	return logsim.EvalResult{Drives: f.drives()}
}

func newDFlipFlop(attrs logsim.AttrMap) (logsim.Component, error) {
	d, err := delayAttr(attrs, 1)
	if err != nil {
		return nil, err
	}
	f := &dFlipFlop{delay: d, state: logsim.Low}
	f.pins = []logsim.Pin{
		{Name: pD, Dir: logsim.In, Width: 1},
		{Name: pClk, Dir: logsim.In, Width: 1},
		{Name: pQ, Dir: logsim.Out, Width: 1},
		{Name: pQN, Dir: logsim.Out, Width: 1},
	}
	return f, nil
}

// A register captures d on the rising clock edge while en is not low.
//
type register struct {
	width logsim.Width
	delay logsim.Delay
	state logsim.Signal
	pins  []logsim.Pin
}

func (r *register) Kind() string                  { return "Register" }
func (r *register) Pins() []logsim.Pin            { return r.pins }
func (r *register) PropagationDelay() logsim.Delay { return r.delay }
func (r *register) State() interface{}            { return r.state }
func (r *register) Reset()                        { r.state = logsim.FromBits(0, r.width) }
func (r *register) ClockPin() string              { return pClk }

func (r *register) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pQ, Signal: r.state, Strength: logsim.Strong}}}
}

// OnClockEdge implements logsim.EdgeTriggered.
func (r *register) OnClockEdge(e logsim.Edge, in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	if e == logsim.Rising && in.Signal(pEn, 1).Bit(0) != logsim.Low {
		r.state = in.Signal(pD, r.width)
	}
	return r.Evaluate(in, 0)
}

func newRegister(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("width", 8)
	if err != nil {
		return nil, err
	}
	d, err := delayAttr(attrs, 1)
	if err != nil {
		return nil, err
	}
	r := &register{width: w, delay: d, state: logsim.FromBits(0, w)}
	r.pins = []logsim.Pin{
		{Name: pD, Dir: logsim.In, Width: w},
		{Name: pEn, Dir: logsim.In, Width: 1},
		{Name: pClk, Dir: logsim.In, Width: 1},
		{Name: pQ, Dir: logsim.Out, Width: w},
	}
	return r, nil
}

// A counter increments on each rising clock edge while en is not low.
// clr high zeroes it; ld high loads d instead of counting.
//
type counter struct {
	width logsim.Width
	delay logsim.Delay
	state uint64
	pins  []logsim.Pin
}

func (c *counter) Kind() string                  { return "Counter" }
func (c *counter) Pins() []logsim.Pin            { return c.pins }
func (c *counter) PropagationDelay() logsim.Delay { return c.delay }
func (c *counter) State() interface{}            { return c.state }
func (c *counter) Reset()                        { c.state = 0 }
func (c *counter) ClockPin() string              { return pClk }

func (c *counter) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{Drives: []logsim.Drive{
		{Pin: pQ, Signal: logsim.FromBits(c.state, c.width), Strength: logsim.Strong},
	}}
}

// OnClockEdge implements logsim.EdgeTriggered.
func (c *counter) OnClockEdge(e logsim.Edge, in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	if e == logsim.Rising {
		switch {
		case in.Signal(pClr, 1).Bit(0) == logsim.High:
			c.state = 0
		case in.Signal(pLd, 1).Bit(0) == logsim.High:
			if v, ok := in.Signal(pD, c.width).ToBits(); ok {
				c.state = v
			}
		case in.Signal(pEn, 1).Bit(0) != logsim.Low:
			c.state = (c.state + 1) & c.width.Mask()
		}
	}
	return c.Evaluate(in, 0)
}

func newCounter(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("width", 8)
	if err != nil {
		return nil, err
	}
	d, err := delayAttr(attrs, 1)
	if err != nil {
		return nil, err
	}
	c := &counter{width: w, delay: d}
	c.pins = []logsim.Pin{
		{Name: pD, Dir: logsim.In, Width: w},
		{Name: pLd, Dir: logsim.In, Width: 1},
		{Name: pEn, Dir: logsim.In, Width: 1},
		{Name: pClr, Dir: logsim.In, Width: 1},
		{Name: pClk, Dir: logsim.In, Width: 1},
		{Name: pQ, Dir: logsim.Out, Width: w},
	}
	return c, nil
}
