// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package value implements the STEER Value Model: a uniformly typed
// container for named numeric/string results and grouped result sets, with
// parse/format conversions to/from a small fixed set of primitive types.
//
// Values always keep their canonical text form for transport; typed views
// are materialised on demand via GetNativeValue. This mirrors the teacher
// repo's table.Field/table.TableValues pattern of carrying values as
// []string and converting on demand rather than storing typed unions.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"steer/internal/steererr"
)

// DataType is the closed set of primitive kinds a Value or ValueSet may
// carry.
type DataType string

const (
	Bool DataType = "bool"
	F32  DataType = "f32"
	F64  DataType = "f64"
	F80  DataType = "f80"
	I8   DataType = "i8"
	I16  DataType = "i16"
	I32  DataType = "i32"
	I64  DataType = "i64"
	U8   DataType = "u8"
	U16  DataType = "u16"
	U32  DataType = "u32"
	U64  DataType = "u64"
	Utf8 DataType = "utf8"
)

var validDataTypes = map[DataType]bool{
	Bool: true, F32: true, F64: true, F80: true,
	I8: true, I16: true, I32: true, I64: true,
	U8: true, U16: true, U32: true, U64: true,
	Utf8: true,
}

// IsValid reports whether dt is one of the recognised data types.
func (dt DataType) IsValid() bool {
	return validDataTypes[dt]
}

// isFloat reports whether dt is one of the floating-point kinds, the only
// kinds for which Precision is meaningful.
func (dt DataType) isFloat() bool {
	return dt == F32 || dt == F64 || dt == F80
}

// Value is a single named result: (name, dataType, precision?, units?,
// value-as-text).
type Value struct {
	Name      string
	DataType  DataType
	Precision *int // meaningful only for floating-point DataTypes
	Units     string
	Text      string
}

// Item is one (label, value-as-text) pair within a ValueSet.
type Item struct {
	Label string
	Text  string
}

// ValueSet is a grouped metric, e.g. a confusion-matrix block, where every
// item shares a DataType.
type ValueSet struct {
	Name      string
	DataType  DataType
	Precision *int
	Units     string
	Items     []Item
}

// NewValue constructs a Value, validating that dataType is recognised, name
// is non-empty, and text parses under dataType. precision is only honoured
// for floating-point kinds.
func NewValue(name string, dataType DataType, precision *int, units string, text string) (Value, error) {
	if name == "" {
		return Value{}, steererr.New(steererr.EmptyString, "value name must not be empty")
	}
	if !dataType.IsValid() {
		return Value{}, steererr.New(steererr.InvalidArgument, fmt.Sprintf("unrecognised data type %q", dataType))
	}
	if _, err := GetNativeValue(dataType, text); err != nil {
		return Value{}, err
	}
	if !dataType.isFloat() {
		precision = nil
	}
	return Value{Name: name, DataType: dataType, Precision: precision, Units: units, Text: text}, nil
}

// MustNewValue panics if NewValue fails; reserved for call sites building
// values from constants known to be valid (e.g. fixed-format aggregate
// metrics), mirroring the teacher's use of panic() for programmer-error
// conditions in table.GetValuesForTable.
func MustNewValue(name string, dataType DataType, text string) Value {
	v, err := NewValue(name, dataType, nil, "", text)
	if err != nil {
		panic(err)
	}
	return v
}

// NewValueSet constructs an empty ValueSet of the given name/dataType.
func NewValueSet(name string, dataType DataType, precision *int, units string) (ValueSet, error) {
	if name == "" {
		return ValueSet{}, steererr.New(steererr.EmptyString, "value set name must not be empty")
	}
	if !dataType.IsValid() {
		return ValueSet{}, steererr.New(steererr.InvalidArgument, fmt.Sprintf("unrecognised data type %q", dataType))
	}
	if !dataType.isFloat() {
		precision = nil
	}
	return ValueSet{Name: name, DataType: dataType, Precision: precision, Units: units}, nil
}

// AddValueToSet appends (label, text) to vs after validating text parses
// under vs.DataType. Returns the updated ValueSet (ValueSet is a value
// type, following the teacher's append-only table.Field.Values pattern).
func AddValueToSet(vs ValueSet, label string, text string) (ValueSet, error) {
	if label == "" {
		return vs, steererr.New(steererr.EmptyString, "item label must not be empty")
	}
	if _, err := GetNativeValue(vs.DataType, text); err != nil {
		return vs, err
	}
	vs.Items = append(vs.Items, Item{Label: label, Text: text})
	return vs, nil
}

// GetValueFromSet returns the text value of the item with the given label.
func GetValueFromSet(vs ValueSet, label string) (string, error) {
	for _, item := range vs.Items {
		if item.Label == label {
			return item.Text, nil
		}
	}
	return "", steererr.New(steererr.InvalidArgument, fmt.Sprintf("label %q not found in value set %q", label, vs.Name))
}

// GetNativeValue parses text according to dataType and returns a typed
// scalar as an `any` holding the corresponding Go type (bool, float32,
// float64, int8/16/32/64, uint8/16/32/64, or string for utf8).
//
// Integer parsing enforces sign conformance with the declared type:
// unsigned types reject a leading '-'. Floating-point parsing uses the
// strictest available conversion (strconv.ParseFloat with an exact bit
// size) and surfaces strconv's range errors as OutOfRange.
func GetNativeValue(dataType DataType, text string) (any, error) {
	switch dataType {
	case Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, steererr.Wrap(steererr.InvalidArgument, fmt.Sprintf("%q is not a valid bool", text), err)
		}
		return b, nil
	case F32:
		return parseFloat(text, 32)
	case F64, F80:
		// F80 (x87 extended precision) has no native Go representation;
		// it is carried at float64 precision, matching the widest type
		// the platform's strconv actually supports.
		return parseFloat(text, 64)
	case I8:
		return parseInt(text, 8)
	case I16:
		return parseInt(text, 16)
	case I32:
		return parseInt(text, 32)
	case I64:
		return parseInt(text, 64)
	case U8:
		return parseUint(text, 8)
	case U16:
		return parseUint(text, 16)
	case U32:
		return parseUint(text, 32)
	case U64:
		return parseUint(text, 64)
	case Utf8:
		return text, nil
	default:
		return nil, steererr.New(steererr.InvalidArgument, fmt.Sprintf("unrecognised data type %q", dataType))
	}
}

func parseFloat(text string, bits int) (any, error) {
	f, err := strconv.ParseFloat(text, bits)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return nil, steererr.Wrap(steererr.OutOfRange, fmt.Sprintf("%q out of range for %d-bit float", text, bits), err)
		}
		return nil, steererr.Wrap(steererr.InvalidArgument, fmt.Sprintf("%q is not a valid float", text), err)
	}
	if bits == 32 {
		return float32(f), nil
	}
	return f, nil
}

func parseInt(text string, bits int) (any, error) {
	i, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return nil, steererr.Wrap(steererr.OutOfRange, fmt.Sprintf("%q out of range for i%d", text, bits), err)
		}
		return nil, steererr.Wrap(steererr.InvalidArgument, fmt.Sprintf("%q is not a valid i%d", text, bits), err)
	}
	switch bits {
	case 8:
		return int8(i), nil
	case 16:
		return int16(i), nil
	case 32:
		return int32(i), nil
	default:
		return i, nil
	}
}

func parseUint(text string, bits int) (any, error) {
	if strings.HasPrefix(strings.TrimSpace(text), "-") {
		return nil, steererr.New(steererr.InvalidArgument, fmt.Sprintf("%q has a sign but u%d is unsigned", text, bits))
	}
	u, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return nil, steererr.Wrap(steererr.OutOfRange, fmt.Sprintf("%q out of range for u%d", text, bits), err)
		}
		return nil, steererr.Wrap(steererr.InvalidArgument, fmt.Sprintf("%q is not a valid u%d", text, bits), err)
	}
	switch bits {
	case 8:
		return uint8(u), nil
	case 16:
		return uint16(u), nil
	case 32:
		return uint32(u), nil
	default:
		return u, nil
	}
}

// FormatValue formats a Go scalar back to its canonical text form for the
// given dataType, the inverse of GetNativeValue for the cases the shell and
// aggregate packages need (building Values from computed numbers).
func FormatValue(dataType DataType, v any) (string, error) {
	switch dataType {
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return "", steererr.New(steererr.InvalidArgument, "expected bool")
		}
		return strconv.FormatBool(b), nil
	case F32:
		f, ok := toFloat64(v)
		if !ok {
			return "", steererr.New(steererr.InvalidArgument, "expected float")
		}
		return strconv.FormatFloat(f, 'g', -1, 32), nil
	case F64, F80:
		f, ok := toFloat64(v)
		if !ok {
			return "", steererr.New(steererr.InvalidArgument, "expected float")
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case I8, I16, I32, I64:
		i, ok := toInt64(v)
		if !ok {
			return "", steererr.New(steererr.InvalidArgument, "expected integer")
		}
		return strconv.FormatInt(i, 10), nil
	case U8, U16, U32, U64:
		u, ok := toUint64(v)
		if !ok {
			return "", steererr.New(steererr.InvalidArgument, "expected unsigned integer")
		}
		return strconv.FormatUint(u, 10), nil
	case Utf8:
		s, ok := v.(string)
		if !ok {
			return "", steererr.New(steererr.InvalidArgument, "expected string")
		}
		return s, nil
	default:
		return "", steererr.New(steererr.InvalidArgument, fmt.Sprintf("unrecognised data type %q", dataType))
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	}
	return 0, false
}
