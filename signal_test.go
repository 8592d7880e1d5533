// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalBits(t *testing.T) {
	s := MakeSignal(37)
	assert.Equal(t, Unknown, s.Bit(0))
	assert.Equal(t, Unknown, s.Bit(36))

	s = s.WithBit(0, High)
	assert.Equal(t, High, s.Bit(0))
	s = s.WithBit(36, High)
	assert.Equal(t, High, s.Bit(36))
	s = s.WithBit(13, Err)
	assert.Equal(t, Err, s.Bit(13))
	s = s.WithBit(13, Low)
	assert.Equal(t, Low, s.Bit(13))
	s = s.WithBit(36, Unknown)
	assert.Equal(t, Unknown, s.Bit(36))
}

func TestSignalRoundTrip(t *testing.T) {
	// to_bits(from_bits(v)) == v for any width that can hold v
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		w := Width(rng.Intn(MaxWidth) + 1)
		v := rng.Uint64() & w.Mask()
		s := FromBits(v, w)
		got, ok := s.ToBits()
		assert.True(t, ok)
		assert.Equal(t, v, got, "width %d", w)
		assert.True(t, s.IsFullyDefined())
	}
	_, ok := MakeSignal(4).ToBits()
	assert.False(t, ok)
	_, ok = FromBits(3, 4).WithBit(2, Err).ToBits()
	assert.False(t, ok)
}

func TestSignalCombine(t *testing.T) {
	// per-bit behavior matches the Value.Combine table
	for _, a := range allValues {
		for _, b := range allValues {
			sa := FromValue(a, 8)
			sb := FromValue(b, 8)
			assert.Equal(t, FromValue(a.Combine(b), 8), sa.Combine(sb), "%v+%v", a, b)
		}
	}

	// mixed bits
	a := FromBits(0x0f, 8) // 00001111
	x := MakeSignal(8)
	got := a.Combine(x)
	assert.Equal(t, a, got, "unknown is identity bitwise")

	b := FromBits(0xf0, 8)
	got = a.Combine(b)
	for i := 0; i < 8; i++ {
		assert.Equal(t, Err, got.Bit(i), "conflicting definite bits")
	}
}

func TestSignalCombineWidthMismatch(t *testing.T) {
	got := FromBits(1, 4).Combine(FromBits(1, 8))
	assert.Equal(t, ErrorSignal(8), got)
}

func TestSignalOps(t *testing.T) {
	a := FromBits(0b1100, 4)
	b := FromBits(0b1010, 4)
	assert.Equal(t, FromBits(0b1000, 4), a.And(b))
	assert.Equal(t, FromBits(0b1110, 4), a.Or(b))
	assert.Equal(t, FromBits(0b0110, 4), a.Xor(b))
	assert.Equal(t, FromBits(0b0011, 4), a.Not())

	// three-valued behavior with error absorbing
	x := MakeSignal(4)
	e := ErrorSignal(4)
	assert.Equal(t, e, a.And(e))
	assert.Equal(t, e, x.Or(e))
	assert.Equal(t, e, b.Xor(e))
	assert.Equal(t, e, e.Not())
	got := a.And(x) // 1100 & XXXX = XX00
	assert.Equal(t, Low, got.Bit(0))
	assert.Equal(t, Low, got.Bit(1))
	assert.Equal(t, Unknown, got.Bit(2))
	assert.Equal(t, Unknown, got.Bit(3))
	got = a.Or(x) // 1100 | XXXX = 11XX
	assert.Equal(t, Unknown, got.Bit(0))
	assert.Equal(t, Unknown, got.Bit(1))
	assert.Equal(t, High, got.Bit(2))
	assert.Equal(t, High, got.Bit(3))
}

func TestSignalPullUnknown(t *testing.T) {
	s := MakeSignal(4).WithBit(1, High).WithBit(2, Err)
	got := s.PullUnknown(Low)
	assert.Equal(t, Low, got.Bit(0))
	assert.Equal(t, High, got.Bit(1))
	assert.Equal(t, Err, got.Bit(2), "err bits stay")
	assert.Equal(t, Low, got.Bit(3))
	got = s.PullUnknown(High)
	assert.Equal(t, High, got.Bit(0))
}

func TestSignalWidthBoundaries(t *testing.T) {
	// width 1 and width 64 behave like any width
	for _, w := range []Width{1, 8, 63, 64} {
		v := uint64(0xa5a5a5a5a5a5a5a5) & w.Mask()
		s := FromBits(v, w)
		got, ok := s.ToBits()
		assert.True(t, ok, "width %d", w)
		assert.Equal(t, v, got, "width %d", w)
		assert.Equal(t, FromBits(^v&w.Mask(), w), s.Not(), "width %d", w)
		assert.Equal(t, s, s.Combine(MakeSignal(w)), "width %d", w)
	}
	assert.False(t, Width(0).Valid())
	assert.False(t, Width(65).Valid())
	assert.True(t, Width(1).Valid())
	assert.True(t, Width(64).Valid())
}

func TestSignalString(t *testing.T) {
	s := MakeSignal(4).WithBit(0, High).WithBit(1, Low).WithBit(3, Err)
	assert.Equal(t, "EX01", s.String())
	assert.Equal(t, "1010", FromBits(0b1010, 4).String())
}
