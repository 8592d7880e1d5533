// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stdlib

import (
	"github.com/pkg/errors"

	"github.com/db47h/logsim"
)

// A gate is a combinational n-input gate over a w-bit bus. The fold
// combines inputs pairwise; invert negates the folded result.
//
type gate struct {
	kind   string
	width  logsim.Width
	inputs int
	delay  logsim.Delay
	pins   []logsim.Pin
	fold   func(a, b logsim.Signal) logsim.Signal
	invert bool
}

func (g *gate) Kind() string                  { return g.kind }
func (g *gate) Pins() []logsim.Pin            { return g.pins }
func (g *gate) Reset()                        {}
func (g *gate) PropagationDelay() logsim.Delay { return g.delay }

func (g *gate) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	// floating gate inputs read low, as if pulled down
	acc := in.Signal(inPin(0), g.width).PullUnknown(logsim.Low)
	for i := 1; i < g.inputs; i++ {
		acc = g.fold(acc, in.Signal(inPin(i), g.width).PullUnknown(logsim.Low))
	}
	if g.invert {
		acc = acc.Not()
	}
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pOut, Signal: acc, Strength: logsim.Strong}}}
}

// gateFactory builds the factory for one gate kind. Attributes: width
// (default 1), inputs (default 2, minimum 2), delay (default 0).
//
func gateFactory(kind string) logsim.Factory {
	var fold func(a, b logsim.Signal) logsim.Signal
	var invert bool
	switch kind {
	case "And":
		fold = logsim.Signal.And
	case "Nand":
		fold, invert = logsim.Signal.And, true
	case "Or":
		fold = logsim.Signal.Or
	case "Nor":
		fold, invert = logsim.Signal.Or, true
	case "Xor":
		fold = logsim.Signal.Xor
	case "Xnor":
		fold, invert = logsim.Signal.Xor, true
	}
	return func(attrs logsim.AttrMap) (logsim.Component, error) {
		w, err := attrs.Width("width", 1)
		if err != nil {
			return nil, err
		}
		n, err := attrs.Int("inputs", 2)
		if err != nil {
			return nil, err
		}
		if n < 2 {
			return nil, errors.Errorf("%s: %d inputs, need at least 2", kind, n)
		}
		d, err := delayAttr(attrs, 0)
		if err != nil {
			return nil, err
		}
		g := &gate{kind: kind, width: w, inputs: n, delay: d, fold: fold, invert: invert}
		for i := 0; i < n; i++ {
			g.pins = append(g.pins, logsim.Pin{Name: inPin(i), Dir: logsim.In, Width: w})
		}
		g.pins = append(g.pins, logsim.Pin{Name: pOut, Dir: logsim.Out, Width: w})
		return g, nil
	}
}

// A unary is a one-input combinational element (Not, Buffer).
//
type unary struct {
	kind  string
	width logsim.Width
	delay logsim.Delay
	pins  []logsim.Pin
	fn    func(logsim.Signal) logsim.Signal
}

func (u *unary) Kind() string                  { return u.kind }
func (u *unary) Pins() []logsim.Pin            { return u.pins }
func (u *unary) Reset()                        {}
func (u *unary) PropagationDelay() logsim.Delay { return u.delay }

func (u *unary) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	out := u.fn(in.Signal(pIn, u.width))
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pOut, Signal: out, Strength: logsim.Strong}}}
}

func newUnary(kind string, fn func(logsim.Signal) logsim.Signal) logsim.Factory {
	return func(attrs logsim.AttrMap) (logsim.Component, error) {
		w, err := attrs.Width("width", 1)
		if err != nil {
			return nil, err
		}
		d, err := delayAttr(attrs, 0)
		if err != nil {
			return nil, err
		}
		return &unary{
			kind: kind, width: w, delay: d, fn: fn,
			pins: []logsim.Pin{
				{Name: pIn, Dir: logsim.In, Width: w},
				{Name: pOut, Dir: logsim.Out, Width: w},
			},
		}, nil
	}
}

func newNot(attrs logsim.AttrMap) (logsim.Component, error) {
	return newUnary("Not", func(s logsim.Signal) logsim.Signal {
		return s.PullUnknown(logsim.Low).Not()
	})(attrs)
}

func newBuffer(attrs logsim.AttrMap) (logsim.Component, error) {
	return newUnary("Buffer", func(s logsim.Signal) logsim.Signal { return s })(attrs)
}

// A controlledBuffer is a tri-state buffer: en high passes in through, en
// low releases the output, anything else drives Err.
//
type controlledBuffer struct {
	width logsim.Width
	delay logsim.Delay
	pins  []logsim.Pin
}

func (b *controlledBuffer) Kind() string                  { return "ControlledBuffer" }
func (b *controlledBuffer) Pins() []logsim.Pin            { return b.pins }
func (b *controlledBuffer) Reset()                        {}
func (b *controlledBuffer) PropagationDelay() logsim.Delay { return b.delay }

func (b *controlledBuffer) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	en := in.Signal(pEn, 1).Bit(0)
	var dr logsim.Drive
	switch en {
	case logsim.High:
		dr = logsim.Drive{Pin: pOut, Signal: in.Signal(pIn, b.width), Strength: logsim.Strong}
	case logsim.Low:
		dr = logsim.Drive{Pin: pOut, Signal: logsim.MakeSignal(b.width), Strength: logsim.Floating}
	default:
		dr = logsim.Drive{Pin: pOut, Signal: logsim.ErrorSignal(b.width), Strength: logsim.Strong}
	}
	return logsim.EvalResult{Drives: []logsim.Drive{dr}}
}

func newControlledBuffer(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("width", 1)
	if err != nil {
		return nil, err
	}
	d, err := delayAttr(attrs, 0)
	if err != nil {
		return nil, err
	}
	return &controlledBuffer{
		width: w, delay: d,
		pins: []logsim.Pin{
			{Name: pIn, Dir: logsim.In, Width: w},
			{Name: pEn, Dir: logsim.In, Width: 1},
			{Name: pOut, Dir: logsim.Out, Width: w},
		},
	}, nil
}
