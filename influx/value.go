// Copyright (c) 2022 Exograd SAS.
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY
// SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR
// IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package influx

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type ValueType int

const (
	ValueTypeString ValueType = iota
	ValueTypeInteger
	ValueTypeFloat
	ValueTypeBoolean
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeString:
		return "string"
	case ValueTypeInteger:
		return "integer"
	case ValueTypeFloat:
		return "float"
	case ValueTypeBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a tag or field value. The zero value is the empty string.
type Value struct {
	Type ValueType

	s string
	i int64
	f float64
	b bool
}

func String(s string) Value {
	return Value{Type: ValueTypeString, s: s}
}

func Integer(i int64) Value {
	return Value{Type: ValueTypeInteger, i: i}
}

func Float(f float64) Value {
	return Value{Type: ValueTypeFloat, f: f}
}

func Boolean(b bool) Value {
	return Value{Type: ValueTypeBoolean, b: b}
}

func (v Value) StringValue() string {
	return v.s
}

func (v Value) IntegerValue() int64 {
	return v.i
}

func (v Value) FloatValue() float64 {
	return v.f
}

func (v Value) BooleanValue() bool {
	return v.b
}

// String returns the textual representation used for tag values: no quotes
// and no type suffix.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeInteger:
		return strconv.FormatInt(v.i, 10)
	case ValueTypeFloat:
		return formatFloat(v.f)
	case ValueTypeBoolean:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.Type, v.String())
}

func (v Value) Equal(v2 Value) bool {
	if v.Type != v2.Type {
		return false
	}

	switch v.Type {
	case ValueTypeInteger:
		return v.i == v2.i
	case ValueTypeFloat:
		return v.f == v2.f
	case ValueTypeBoolean:
		return v.b == v2.b
	default:
		return v.s == v2.s
	}
}

func (v Value) isFinite() bool {
	if v.Type != ValueTypeFloat {
		return true
	}

	return !math.IsNaN(v.f) && !math.IsInf(v.f, 0)
}

// ValueOf converts a native Go value. Unsigned integers which do not fit in
// an int64 are rejected: the database has no unsigned type we can rely on.
func ValueOf(value interface{}) (Value, error) {
	switch v := value.(type) {
	case Value:
		return v, nil

	case string:
		return String(v), nil
	case []byte:
		return String(string(v)), nil

	case bool:
		return Boolean(v), nil

	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil

	case uint:
		return unsignedValue(uint64(v))
	case uint8:
		return Integer(int64(v)), nil
	case uint16:
		return Integer(int64(v)), nil
	case uint32:
		return Integer(int64(v)), nil
	case uint64:
		return unsignedValue(v)

	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil

	case time.Duration:
		return Integer(int64(v)), nil

	case json.Number:
		s := v.String()
		if !strings.ContainsAny(s, ".eE") {
			i, err := v.Int64()
			if err != nil {
				return Value{}, fmt.Errorf("invalid integer %q: %w", s, err)
			}

			return Integer(i), nil
		}

		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid float %q: %w", s, err)
		}

		return Float(f), nil

	case fmt.Stringer:
		return String(v.String()), nil

	default:
		return Value{}, fmt.Errorf("unsupported value type %T", value)
	}
}

func unsignedValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("unsigned integer %d does not fit in a "+
			"signed 64 bit integer", u)
	}

	return Integer(int64(u)), nil
}
