// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValue_RejectsEmptyName(t *testing.T) {
	_, err := NewValue("", Utf8, nil, "", "x")
	require.Error(t, err)
}

func TestNewValue_RejectsUnknownType(t *testing.T) {
	_, err := NewValue("n", DataType("imaginary"), nil, "", "1")
	require.Error(t, err)
}

func TestNewValue_ValidatesTextAgainstType(t *testing.T) {
	_, err := NewValue("n", U32, nil, "", "-1")
	require.Error(t, err, "unsigned types must reject a leading '-'")

	v, err := NewValue("n", U32, nil, "", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", v.Text)
}

func TestGetNativeValue_Integers(t *testing.T) {
	cases := []struct {
		dt   DataType
		text string
		want any
	}{
		{I8, "-5", int8(-5)},
		{I32, "1234", int32(1234)},
		{I64, "-1234567890", int64(-1234567890)},
		{U8, "255", uint8(255)},
		{U64, "18446744073709551615", uint64(18446744073709551615)},
	}
	for _, c := range cases {
		got, err := GetNativeValue(c.dt, c.text)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestGetNativeValue_UnsignedRejectsSign(t *testing.T) {
	for _, dt := range []DataType{U8, U16, U32, U64} {
		_, err := GetNativeValue(dt, "-1")
		require.Error(t, err)
	}
}

func TestGetNativeValue_OutOfRange(t *testing.T) {
	_, err := GetNativeValue(I8, "200")
	require.Error(t, err)
	_, err = GetNativeValue(U8, "256")
	require.Error(t, err)
}

func TestGetNativeValue_Float(t *testing.T) {
	got, err := GetNativeValue(F64, "3.14159")
	require.NoError(t, err)
	assert.InDelta(t, 3.14159, got.(float64), 1e-9)
}

func TestGetNativeValue_Bool(t *testing.T) {
	got, err := GetNativeValue(Bool, "true")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = GetNativeValue(Bool, "maybe")
	require.Error(t, err)
}

func TestValueSet_AddAndGet(t *testing.T) {
	vs, err := NewValueSet("confusion", U64, nil, "")
	require.NoError(t, err)

	vs, err = AddValueToSet(vs, "TP", "10")
	require.NoError(t, err)
	vs, err = AddValueToSet(vs, "FP", "2")
	require.NoError(t, err)

	got, err := GetValueFromSet(vs, "TP")
	require.NoError(t, err)
	assert.Equal(t, "10", got)

	_, err = GetValueFromSet(vs, "missing")
	require.Error(t, err)
}

func TestValueSet_RejectsBadItem(t *testing.T) {
	vs, err := NewValueSet("s", U8, nil, "")
	require.NoError(t, err)
	_, err = AddValueToSet(vs, "label", "not-a-number")
	require.Error(t, err)
}

func TestFormatValue_RoundTrips(t *testing.T) {
	text, err := FormatValue(U32, uint32(42))
	require.NoError(t, err)
	assert.Equal(t, "42", text)

	native, err := GetNativeValue(U32, text)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), native)
}
