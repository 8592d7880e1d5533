// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stdlib

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/db47h/logsim"
)

// MemContents is a parsed memory image.
//
type MemContents struct {
	AddrWidth logsim.Width
	DataWidth logsim.Width
	Data      []uint64 // len 1<<AddrWidth, unspecified locations zero
}

// ParseMemContents parses the memory image format used by circuit files:
//
//	addr/data: <addr_width> <data_width>
//	<hex> <hex> 4*<hex> ...
//
// Values are hexadecimal; N*v repeats v N times. Locations beyond the
// listed values stay zero.
//
func ParseMemContents(s string) (*MemContents, error) {
	nl := strings.IndexByte(s, '\n')
	header := s
	body := ""
	if nl >= 0 {
		header, body = s[:nl], s[nl+1:]
	}
	f := strings.Fields(header)
	if len(f) != 3 || f[0] != "addr/data:" {
		return nil, errors.Errorf("bad contents header %q", header)
	}
	aw, err := strconv.Atoi(f[1])
	if err != nil || aw < 1 || aw > 24 {
		return nil, errors.Errorf("bad address width %q", f[1])
	}
	dw, err := strconv.Atoi(f[2])
	if err != nil || !logsim.Width(dw).Valid() {
		return nil, errors.Errorf("bad data width %q", f[2])
	}
	m := &MemContents{
		AddrWidth: logsim.Width(aw),
		DataWidth: logsim.Width(dw),
		Data:      make([]uint64, 1<<uint(aw)),
	}
	addr := 0
	for _, tok := range strings.Fields(body) {
		repeat := 1
		if i := strings.IndexByte(tok, '*'); i >= 0 {
			repeat, err = strconv.Atoi(tok[:i])
			if err != nil || repeat < 1 {
				return nil, errors.Errorf("bad repeat count in %q", tok)
			}
			tok = tok[i+1:]
		}
		v, err := strconv.ParseUint(tok, 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad value %q", tok)
		}
		v &= m.DataWidth.Mask()
		for ; repeat > 0; repeat-- {
			if addr >= len(m.Data) {
				return nil, errors.Errorf("contents overflow address space of %d words", len(m.Data))
			}
			m.Data[addr] = v
			addr++
		}
	}
	return m, nil
}

// String renders the image back into the contents format, run-length
// encoding repeated values and dropping the trailing zero region.
//
func (m *MemContents) String() string {
	var b strings.Builder
	b.WriteString("addr/data: ")
	b.WriteString(strconv.Itoa(int(m.AddrWidth)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(int(m.DataWidth)))
	b.WriteByte('\n')
	end := len(m.Data)
	for end > 0 && m.Data[end-1] == 0 {
		end--
	}
	first := true
	for i := 0; i < end; {
		j := i
		for j < end && m.Data[j] == m.Data[i] {
			j++
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		if n := j - i; n > 1 {
			b.WriteString(strconv.Itoa(n))
			b.WriteByte('*')
		}
		b.WriteString(strconv.FormatUint(m.Data[i], 16))
		i = j
	}
	return b.String()
}

// read returns the stored word as a signal, propagating unknown or error
// address bits to the data bus.
//
func (m *MemContents) read(addr logsim.Signal) logsim.Signal {
	a, ok := addr.ToBits()
	if !ok {
		for i := 0; i < int(m.AddrWidth); i++ {
			if addr.Bit(i) == logsim.Err {
				return logsim.ErrorSignal(m.DataWidth)
			}
		}
		return logsim.MakeSignal(m.DataWidth)
	}
	return logsim.FromBits(m.Data[a&m.AddrWidth.Mask()], m.DataWidth)
}

// A rom is a read-only memory with a combinational read port.
//
type rom struct {
	mem   *MemContents
	delay logsim.Delay
	pins  []logsim.Pin
}

func (r *rom) Kind() string                  { return "Rom" }
func (r *rom) Pins() []logsim.Pin            { return r.pins }
func (r *rom) Reset()                        {}
func (r *rom) PropagationDelay() logsim.Delay { return r.delay }
func (r *rom) State() interface{}            { return r.mem }

func (r *rom) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	out := r.mem.read(in.Signal(pAddr, r.mem.AddrWidth))
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pDout, Signal: out, Strength: logsim.Strong}}}
}

func newRom(attrs logsim.AttrMap) (logsim.Component, error) {
	contents, ok := attrs["contents"]
	if !ok {
		aw, err := attrs.Width("addrWidth", 8)
		if err != nil {
			return nil, err
		}
		dw, err := attrs.Width("dataWidth", 8)
		if err != nil {
			return nil, err
		}
		contents = "addr/data: " + strconv.Itoa(int(aw)) + " " + strconv.Itoa(int(dw)) + "\n"
	}
	mem, err := ParseMemContents(contents)
	if err != nil {
		return nil, errors.Wrap(err, "Rom")
	}
	d, err := delayAttr(attrs, 1)
	if err != nil {
		return nil, err
	}
	return &rom{
		mem:   mem,
		delay: d,
		pins: []logsim.Pin{
			{Name: pAddr, Dir: logsim.In, Width: mem.AddrWidth},
			{Name: pDout, Dir: logsim.Out, Width: mem.DataWidth},
		},
	}, nil
}

// A ram reads combinationally and writes on the rising clock edge while we
// is high.
//
type ram struct {
	mem   *MemContents
	delay logsim.Delay
	pins  []logsim.Pin
}

func (r *ram) Kind() string                  { return "Ram" }
func (r *ram) Pins() []logsim.Pin            { return r.pins }
func (r *ram) PropagationDelay() logsim.Delay { return r.delay }
func (r *ram) State() interface{}            { return r.mem }
func (r *ram) ClockPin() string              { return pClk }

func (r *ram) Reset() {
	for i := range r.mem.Data {
		r.mem.Data[i] = 0
	}
}

func (r *ram) Evaluate(in logsim.Inputs, _ logsim.Timestamp) logsim.EvalResult {
	out := r.mem.read(in.Signal(pAddr, r.mem.AddrWidth))
	return logsim.EvalResult{Drives: []logsim.Drive{{Pin: pDout, Signal: out, Strength: logsim.Strong}}}
}

// OnClockEdge implements logsim.EdgeTriggered.
func (r *ram) OnClockEdge(e logsim.Edge, in logsim.Inputs, t logsim.Timestamp) logsim.EvalResult {
	if e == logsim.Rising && in.Signal(pWe, 1).Bit(0) == logsim.High {
		if a, ok := in.Signal(pAddr, r.mem.AddrWidth).ToBits(); ok {
			if v, ok := in.Signal(pDin, r.mem.DataWidth).ToBits(); ok {
				r.mem.Data[a&r.mem.AddrWidth.Mask()] = v
			}
		}
	}
	return r.Evaluate(in, t)
}

func newRam(attrs logsim.AttrMap) (logsim.Component, error) {
	aw, err := attrs.Width("addrWidth", 8)
	if err != nil {
		return nil, err
	}
	dw, err := attrs.Width("dataWidth", 8)
	if err != nil {
		return nil, err
	}
	if aw > 24 {
		return nil, errors.Errorf("Ram: address width %d too large", aw)
	}
	d, err := delayAttr(attrs, 1)
	if err != nil {
		return nil, err
	}
	return &ram{
		mem:   &MemContents{AddrWidth: aw, DataWidth: dw, Data: make([]uint64, 1<<uint(aw))},
		delay: d,
		pins: []logsim.Pin{
			{Name: pAddr, Dir: logsim.In, Width: aw},
			{Name: pDin, Dir: logsim.In, Width: dw},
			{Name: pWe, Dir: logsim.In, Width: 1},
			{Name: pClk, Dir: logsim.In, Width: 1},
			{Name: pDout, Dir: logsim.Out, Width: dw},
		},
	}, nil
}
