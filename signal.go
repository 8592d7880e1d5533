// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"strings"
)

// MaxWidth is the widest supported bus.
//
const MaxWidth = 64

// A Width is the bit width of a bus, in [1, MaxWidth]. The zero value means
// "unspecified" and is resolved during the netlist build.
//
type Width uint8

// Valid reports whether w is a usable bus width.
//
func (w Width) Valid() bool { return w >= 1 && w <= MaxWidth }

// Mask returns a bit mask covering the w low bits.
//
func (w Width) Mask() uint64 {
	if w >= MaxWidth {
		return ^uint64(0)
	}
	return 1<<w - 1
}

// A Signal is the value of a w-bit bus. Bit 0 is the least significant bit.
// Each bit is one of the four Value states, packed into three masks: a bit is
// Err if set in err, else Unknown if set in unknown, else High or Low per
// bits. Signals are comparable with ==.
//
type Signal struct {
	width   Width
	bits    uint64 // high bits, valid where neither unknown nor err
	unknown uint64
	err     uint64
}

// MakeSignal returns an all-Unknown signal of the given width.
//
func MakeSignal(w Width) Signal {
	return Signal{width: w, unknown: w.Mask()}
}

// ErrorSignal returns an all-Err signal of the given width.
//
func ErrorSignal(w Width) Signal {
	return Signal{width: w, err: w.Mask()}
}

// FromBits builds a fully defined signal from the w low bits of v.
//
func FromBits(v uint64, w Width) Signal {
	return Signal{width: w, bits: v & w.Mask()}
}

// FromValue returns a w-bit signal with every bit set to v.
//
func FromValue(v Value, w Width) Signal {
	m := w.Mask()
	switch v {
	case Low:
		return Signal{width: w}
	case High:
		return Signal{width: w, bits: m}
	case Err:
		return Signal{width: w, err: m}
	}
	return Signal{width: w, unknown: m}
}

// Width returns the signal's bus width.
//
func (s Signal) Width() Width { return s.width }

// ToBits returns the signal as an unsigned integer. ok is false if any bit
// is Unknown or Err.
//
func (s Signal) ToBits() (v uint64, ok bool) {
	if s.unknown|s.err != 0 {
		return 0, false
	}
	return s.bits, true
}

// IsFullyDefined reports whether every bit is Low or High.
//
func (s Signal) IsFullyDefined() bool { return s.unknown|s.err == 0 }

// Bit returns the value of bit i.
//
func (s Signal) Bit(i int) Value {
	m := uint64(1) << uint(i)
	switch {
	case s.err&m != 0:
		return Err
	case s.unknown&m != 0:
		return Unknown
	case s.bits&m != 0:
		return High
	}
	return Low
}

// WithBit returns a copy of s with bit i set to v.
//
func (s Signal) WithBit(i int, v Value) Signal {
	m := uint64(1) << uint(i)
	s.bits &^= m
	s.unknown &^= m
	s.err &^= m
	switch v {
	case High:
		s.bits |= m
	case Unknown:
		s.unknown |= m
	case Err:
		s.err |= m
	}
	return s
}

// PullUnknown replaces every Unknown bit with v, the way a pull resistor
// biases a floating input. Err bits are left alone.
//
func (s Signal) PullUnknown(v Value) Signal {
	u := s.unknown
	s.unknown = 0
	switch v {
	case High:
		s.bits |= u
	case Err:
		s.err |= u
	case Unknown:
		s.unknown = u
	}
	return s
}

// Combine merges two same-strength contributions bit by bit according to the
// Value.Combine table. Signals of different widths cannot share a bus: the
// result is all-Err at the wider width.
//
func (s Signal) Combine(o Signal) Signal {
	if s.width != o.width {
		w := s.width
		if o.width > w {
			w = o.width
		}
		return ErrorSignal(w)
	}
	known := ^(s.unknown | s.err)
	oknown := ^(o.unknown | o.err)
	conflict := known & oknown & (s.bits ^ o.bits)
	err := (s.err | o.err | conflict) & s.width.Mask()
	bits := ((s.bits & known) | (o.bits & oknown)) &^ err
	unknown := (s.unknown & o.unknown) &^ err
	return Signal{width: s.width, bits: bits, unknown: unknown, err: err}
}

// Not negates every bit.
//
func (s Signal) Not() Signal {
	s.bits = ^s.bits & s.width.Mask() &^ (s.unknown | s.err)
	return s
}

// And computes the bitwise three-valued AND of two equal-width signals.
//
func (s Signal) And(o Signal) Signal {
	if s.width != o.width {
		return ErrorSignal(maxWidth(s.width, o.width))
	}
	err := s.err | o.err
	sl := ^s.bits &^ (s.unknown | s.err) // definitely Low
	ol := ^o.bits &^ (o.unknown | o.err)
	high := s.bits & o.bits &^ (s.unknown | s.err | o.unknown | o.err)
	low := (sl | ol) & s.width.Mask() &^ err
	unknown := s.width.Mask() &^ (high | low | err)
	return Signal{width: s.width, bits: high &^ err, unknown: unknown, err: err}
}

// Or computes the bitwise three-valued OR of two equal-width signals.
//
func (s Signal) Or(o Signal) Signal {
	if s.width != o.width {
		return ErrorSignal(maxWidth(s.width, o.width))
	}
	err := s.err | o.err
	sh := s.bits &^ (s.unknown | s.err) // definitely High
	oh := o.bits &^ (o.unknown | o.err)
	high := (sh | oh) &^ err
	low := ^s.bits & ^o.bits &^ (s.unknown | s.err | o.unknown | o.err | err) & s.width.Mask()
	unknown := s.width.Mask() &^ (high | low | err)
	return Signal{width: s.width, bits: high, unknown: unknown, err: err}
}

// Xor computes the bitwise three-valued XOR of two equal-width signals.
//
func (s Signal) Xor(o Signal) Signal {
	if s.width != o.width {
		return ErrorSignal(maxWidth(s.width, o.width))
	}
	err := s.err | o.err
	unknown := (s.unknown | o.unknown) &^ err
	bits := (s.bits ^ o.bits) &^ (unknown | err)
	return Signal{width: s.width, bits: bits, unknown: unknown, err: err}
}

// String renders the signal most significant bit first, e.g. "1X0E".
//
func (s Signal) String() string {
	var b strings.Builder
	for i := int(s.width) - 1; i >= 0; i-- {
		b.WriteString(s.Bit(i).String())
	}
	return b.String()
}

func maxWidth(a, b Width) Width {
	if a > b {
		return a
	}
	return b
}
