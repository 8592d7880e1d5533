// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allValues = []Value{Unknown, Low, High, Err}

func TestValueCombineTable(t *testing.T) {
	// the combine table, rows indexed a, columns b in X 0 1 E order
	want := [4][4]Value{
		{Unknown, Low, High, Err},
		{Low, Low, Err, Err},
		{High, Err, High, Err},
		{Err, Err, Err, Err},
	}
	for i, a := range allValues {
		for j, b := range allValues {
			assert.Equal(t, want[i][j], a.Combine(b), "combine(%v, %v)", a, b)
		}
	}
}

func TestValueCombineLaws(t *testing.T) {
	for _, a := range allValues {
		// identity and absorption
		assert.Equal(t, a, Unknown.Combine(a), "identity %v", a)
		assert.Equal(t, Err, Err.Combine(a), "absorbing %v", a)
		for _, b := range allValues {
			assert.Equal(t, a.Combine(b), b.Combine(a), "commutative %v %v", a, b)
			for _, c := range allValues {
				assert.Equal(t, a.Combine(b).Combine(c), a.Combine(b.Combine(c)),
					"associative %v %v %v", a, b, c)
			}
		}
	}
}

func TestValueLogic(t *testing.T) {
	assert.Equal(t, High, Low.Not())
	assert.Equal(t, Low, High.Not())
	assert.Equal(t, Unknown, Unknown.Not())
	assert.Equal(t, Err, Err.Not())

	assert.Equal(t, High, High.And(High))
	assert.Equal(t, Low, Low.And(High))
	assert.Equal(t, Low, Low.And(Unknown), "low short-circuits and")
	assert.Equal(t, Unknown, High.And(Unknown))
	assert.Equal(t, Err, Low.And(Err), "error absorbs")

	assert.Equal(t, High, High.Or(Unknown), "high short-circuits or")
	assert.Equal(t, Low, Low.Or(Low))
	assert.Equal(t, Unknown, Low.Or(Unknown))
	assert.Equal(t, Err, High.Or(Err), "error absorbs")

	assert.Equal(t, High, High.Xor(Low))
	assert.Equal(t, Low, High.Xor(High))
	assert.Equal(t, Unknown, High.Xor(Unknown))
	assert.Equal(t, Err, Unknown.Xor(Err))
}

func TestValueBool(t *testing.T) {
	v, ok := High.Bool()
	assert.True(t, ok)
	assert.True(t, v)
	v, ok = Low.Bool()
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = Unknown.Bool()
	assert.False(t, ok)
	_, ok = Err.Bool()
	assert.False(t, ok)
	assert.Equal(t, High, FromBool(true))
	assert.Equal(t, Low, FromBool(false))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "X", Unknown.String())
	assert.Equal(t, "0", Low.String())
	assert.Equal(t, "1", High.String())
	assert.Equal(t, "E", Err.String())
}

func TestStrengthOrder(t *testing.T) {
	assert.True(t, Floating < Weak)
	assert.True(t, Weak < Strong)
}
