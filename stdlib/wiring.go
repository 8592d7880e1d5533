// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stdlib

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/db47h/logsim"
)

// An ioPin is a circuit boundary pin. Input pins carry an externally set
// value into the circuit; output pins only observe their node.
//
type ioPin struct {
	width  logsim.Width
	output bool
	label  string
	value  logsim.Signal
	pins   []logsim.Pin
}

func (p *ioPin) Kind() string                  { return "Pin" }
func (p *ioPin) Pins() []logsim.Pin            { return p.pins }
func (p *ioPin) PropagationDelay() logsim.Delay { return 0 }
func (p *ioPin) Label() string                 { return p.label }
func (p *ioPin) State() interface{}            { return p.value }

func (p *ioPin) Reset() {
	if !p.output {
		p.value = logsim.MakeSignal(p.width)
	}
}

func (p *ioPin) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	if p.output {
		p.value = in.Signal(pIn, p.width)
		return logsim.EvalResult{}
	}
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pOut, Signal: p.value, Strength: logsim.Strong}}}
}

// SetValue implements logsim.InputSetter.
//
func (p *ioPin) SetValue(s logsim.Signal) error {
	if p.output {
		return errors.New("Pin: cannot set an output pin")
	}
	if s.Width() != p.width {
		return errors.Errorf("Pin: width mismatch: got %d, want %d", s.Width(), p.width)
	}
	p.value = s
	return nil
}

func newPin(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("width", 1)
	if err != nil {
		return nil, err
	}
	output := attrs.String("output", "false") == "true"
	p := &ioPin{width: w, output: output, label: attrs.String("label", "")}
	if output {
		p.pins = []logsim.Pin{{Name: pIn, Dir: logsim.In, Width: w}}
	} else {
		p.value = logsim.MakeSignal(w)
		p.pins = []logsim.Pin{{Name: pOut, Dir: logsim.Out, Width: w}}
	}
	return p, nil
}

// A constant drives a fixed value.
//
type constant struct {
	kind  string
	value logsim.Signal
	pins  []logsim.Pin
}

func (c *constant) Kind() string                  { return c.kind }
func (c *constant) Pins() []logsim.Pin            { return c.pins }
func (c *constant) Reset()                        {}
func (c *constant) PropagationDelay() logsim.Delay { return 0 }

func (c *constant) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pOut, Signal: c.value, Strength: logsim.Strong}}}
}

func newConstantKind(kind string, value func(w logsim.Width) logsim.Signal) logsim.Factory {
	return func(attrs logsim.AttrMap) (logsim.Component, error) {
		w, err := attrs.Width("width", 1)
		if err != nil {
			return nil, err
		}
		return &constant{
			kind:  kind,
			value: value(w),
			pins:  []logsim.Pin{{Name: pOut, Dir: logsim.Out, Width: w}},
		}, nil
	}
}

func newConstant(attrs logsim.AttrMap) (logsim.Component, error) {
	v, err := attrs.Uint64("value", 1)
	if err != nil {
		return nil, err
	}
	return newConstantKind("Constant", func(w logsim.Width) logsim.Signal {
		return logsim.FromBits(v, w)
	})(attrs)
}

func newPower(attrs logsim.AttrMap) (logsim.Component, error) {
	return newConstantKind("Power", func(w logsim.Width) logsim.Signal {
		return logsim.FromValue(logsim.High, w)
	})(attrs)
}

func newGround(attrs logsim.AttrMap) (logsim.Component, error) {
	return newConstantKind("Ground", func(w logsim.Width) logsim.Signal {
		return logsim.FromValue(logsim.Low, w)
	})(attrs)
}

// A clock generates edges with a configurable period and duty cycle. The
// driver schedules its first edge at t=0 and chains the rest.
//
type clock struct {
	high, low logsim.Delay
	level     logsim.Value
	pins      []logsim.Pin
}

func (c *clock) Kind() string                  { return "Clock" }
func (c *clock) Pins() []logsim.Pin            { return c.pins }
func (c *clock) PropagationDelay() logsim.Delay { return 0 }
func (c *clock) Reset()                        { c.level = logsim.Low }
func (c *clock) ClockOutput() string           { return pOut }

func (c *clock) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pOut, Signal: logsim.FromValue(c.level, 1), Strength: logsim.Strong}}}
}

// FirstEdge implements logsim.ClockSource.
func (c *clock) FirstEdge() (logsim.Edge, logsim.Delay) { return logsim.Rising, 0 }

// NextEdge implements logsim.ClockSource.
func (c *clock) NextEdge(prev logsim.Edge) (logsim.Edge, logsim.Delay) {
	if prev == logsim.Rising {
		return logsim.Falling, c.high
	}
	return logsim.Rising, c.low
}

// OnEdge implements logsim.ClockSource.
func (c *clock) OnEdge(e logsim.Edge) {
	if e == logsim.Rising {
		c.level = logsim.High
	} else {
		c.level = logsim.Low
	}
}

func newClock(attrs logsim.AttrMap) (logsim.Component, error) {
	period, err := attrs.Uint64("period", 2)
	if err != nil {
		return nil, err
	}
	if period < 2 {
		return nil, errors.Errorf("Clock: period %d too short", period)
	}
	duty, err := attrs.Int("duty", 50)
	if err != nil {
		return nil, err
	}
	if duty < 1 || duty > 99 {
		return nil, errors.Errorf("Clock: duty cycle %d%% out of range", duty)
	}
	high := period * uint64(duty) / 100
	if high == 0 {
		high = 1
	}
	if high >= period {
		high = period - 1
	}
	return &clock{
		high: logsim.Delay(high),
		low:  logsim.Delay(period - high),
		pins: []logsim.Pin{{Name: pOut, Dir: logsim.Out, Width: 1}},
	}, nil
}

// A pullResistor drives a constant weakly: it loses to any strong driver
// and biases the node when nothing else drives it.
//
type pullResistor struct {
	value logsim.Signal
	pins  []logsim.Pin
}

func (p *pullResistor) Kind() string                  { return "PullResistor" }
func (p *pullResistor) Pins() []logsim.Pin            { return p.pins }
func (p *pullResistor) Reset()                        {}
func (p *pullResistor) PropagationDelay() logsim.Delay { return 0 }

func (p *pullResistor) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pOut, Signal: p.value, Strength: logsim.Weak}}}
}

func newPullResistor(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("width", 1)
	if err != nil {
		return nil, err
	}
	v := logsim.Low
	if attrs.String("pull", "0") == "1" {
		v = logsim.High
	}
	return &pullResistor{
		value: logsim.FromValue(v, w),
		pins:  []logsim.Pin{{Name: pOut, Dir: logsim.Out, Width: w}},
	}, nil
}

// A tunnel joins its node with every other tunnel of the same label. It
// takes no part in evaluation; the netlist build consumes its name.
//
type tunnel struct {
	label string
	width logsim.Width
	pins  []logsim.Pin
}

func (t *tunnel) Kind() string                  { return "Tunnel" }
func (t *tunnel) Pins() []logsim.Pin            { return t.pins }
func (t *tunnel) Reset()                        {}
func (t *tunnel) PropagationDelay() logsim.Delay { return 0 }
func (t *tunnel) Label() string                 { return t.label }
func (t *tunnel) TunnelName() string            { return t.label }

func (t *tunnel) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{}
}

func newTunnel(attrs logsim.AttrMap) (logsim.Component, error) {
	label := attrs.String("label", "")
	if label == "" {
		return nil, errors.New("Tunnel: empty label")
	}
	w, err := attrs.Width("width", 1)
	if err != nil {
		return nil, err
	}
	return &tunnel{
		label: label,
		width: w,
		pins:  []logsim.Pin{{Name: pIn, Dir: logsim.InOut, Width: w}},
	}, nil
}

// A probe observes its node for tracing. The node inherits the probe's
// label.
//
type probe struct {
	label string
	width logsim.Width
	value logsim.Signal
	pins  []logsim.Pin
}

func (p *probe) Kind() string                  { return "Probe" }
func (p *probe) Pins() []logsim.Pin            { return p.pins }
func (p *probe) PropagationDelay() logsim.Delay { return 0 }
func (p *probe) Label() string                 { return p.label }
func (p *probe) State() interface{}            { return p.value }
func (p *probe) Reset()                        { p.value = logsim.MakeSignal(p.width) }

func (p *probe) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	p.value = in.Signal(pIn, p.width)
	return logsim.EvalResult{}
}

func newProbe(attrs logsim.AttrMap) (logsim.Component, error) {
	// width 0 means unspecified: the pin adopts its bundle's width at build
	v, err := attrs.Int("width", 0)
	if err != nil {
		return nil, err
	}
	w := logsim.Width(v)
	if v != 0 && !w.Valid() {
		return nil, errors.Errorf("Probe: width %d out of range [1, %d]", v, logsim.MaxWidth)
	}
	return &probe{
		label: attrs.String("label", ""),
		width: w,
		pins:  []logsim.Pin{{Name: pIn, Dir: logsim.In, Width: w}},
	}, nil
}

// A splitter fans a wide bus out into narrower legs. It contributes thread
// joins at build time and is never evaluated.
//
type splitter struct {
	incoming logsim.Width
	legs     int
	joins    []logsim.ThreadJoin
	pins     []logsim.Pin
}

func (s *splitter) Kind() string                  { return "Splitter" }
func (s *splitter) Pins() []logsim.Pin            { return s.pins }
func (s *splitter) Reset()                        {}
func (s *splitter) PropagationDelay() logsim.Delay { return 0 }

func (s *splitter) Evaluate(logsim.Inputs, logsim.Timestamp) logsim.EvalResult {
	return logsim.EvalResult{}
}

// ThreadJoins implements logsim.ThreadMapper.
func (s *splitter) ThreadJoins() []logsim.ThreadJoin { return s.joins }

// legPin makes the i-th fan pin name: fan0, fan1, ...
func legPin(i int) string { return "fan" + strconv.Itoa(i) }

// CombinedPin is the name of a splitter's wide-side pin.
//
const CombinedPin = "combined"

func newSplitter(attrs logsim.AttrMap) (logsim.Component, error) {
	w, err := attrs.Width("incoming", 1)
	if err != nil {
		return nil, err
	}
	legs, err := attrs.Int("fanout", int(w))
	if err != nil {
		return nil, err
	}
	if legs < 1 {
		return nil, errors.Errorf("Splitter: fanout %d out of range", legs)
	}

	// Per-bit leg assignment: bitN attributes override the default even
	// distribution of low bits to low legs. "none" leaves a bit
	// disconnected; a malformed or out-of-range leg number disconnects the
	// bit as well. Several bits may go to one leg, which then carries them
	// in ascending order.
	legOf := make([]int, w)
	for i := 0; i < int(w); i++ {
		legOf[i] = i * legs / int(w)
		if a, ok := attrs["bit"+strconv.Itoa(i)]; ok {
			if a == "none" {
				legOf[i] = -1
				continue
			}
			l, err := strconv.Atoi(a)
			if err != nil || l < 0 || l >= legs {
				legOf[i] = -1
				continue
			}
			legOf[i] = l
		}
	}

	s := &splitter{incoming: w, legs: legs}
	legWidth := make([]int, legs)
	for i := 0; i < int(w); i++ {
		l := legOf[i]
		if l < 0 {
			continue
		}
		s.joins = append(s.joins, logsim.ThreadJoin{
			PinA: CombinedPin, BitA: i,
			PinB: legPin(l), BitB: legWidth[l],
		})
		legWidth[l]++
	}

	s.pins = append(s.pins, logsim.Pin{Name: CombinedPin, Dir: logsim.InOut, Width: w})
	for l := 0; l < legs; l++ {
		lw := logsim.Width(legWidth[l])
		if lw == 0 {
			lw = 1
		}
		s.pins = append(s.pins, logsim.Pin{Name: legPin(l), Dir: logsim.InOut, Width: lw})
	}
	return s, nil
}
