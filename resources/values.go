// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package resources

import (
	"fmt"
	"math"
)

// ValueKind discriminates the tagged union of typed attribute/resource
// values a binary XML complex data slot can carry, grounded on
// `original_source/lib/dw_resources/src/values.rs`'s `Value` enum.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueReference
	ValueAttribute
	ValueString
	ValueFloat
	ValueDimension
	ValueFraction
	ValueIntDec
	ValueIntHex
	ValueIntBoolean
	ValueIntColorARGB8
	ValueIntColorRGB8
	ValueIntColorARGB4
	ValueIntColorRGB4
)

// dataType is the wire tag stored in a Res_value's dataType byte.
type dataType uint8

const (
	typeNull          dataType = 0x00
	typeReference     dataType = 0x01
	typeAttribute     dataType = 0x02
	typeString        dataType = 0x03
	typeFloat         dataType = 0x04
	typeDimension     dataType = 0x05
	typeFraction      dataType = 0x06
	typeIntDec        dataType = 0x10
	typeIntHex        dataType = 0x11
	typeIntBoolean    dataType = 0x12
	typeIntColorARGB8 dataType = 0x1c
	typeIntColorRGB8  dataType = 0x1d
	typeIntColorARGB4 dataType = 0x1e
	typeIntColorRGB4  dataType = 0x1f
)

// Value is a decoded Res_value: a tag plus its 32-bit payload, with String
// already resolved against the owning string pool.
type Value struct {
	Kind      ValueKind
	Raw       uint32
	StringVal string
	FloatVal  float32
	BoolVal   bool
}

func decodeValue(raw uint32, dt dataType, pool []string) (Value, error) {
	switch dt {
	case typeNull:
		return Value{Kind: ValueNull, Raw: raw}, nil
	case typeReference:
		return Value{Kind: ValueReference, Raw: raw}, nil
	case typeAttribute:
		return Value{Kind: ValueAttribute, Raw: raw}, nil
	case typeString:
		s := ""
		if int(raw) < len(pool) && raw != 0xffffffff {
			s = pool[raw]
		}
		return Value{Kind: ValueString, Raw: raw, StringVal: s}, nil
	case typeFloat:
		return Value{Kind: ValueFloat, Raw: raw, FloatVal: float32frombits(raw)}, nil
	case typeDimension:
		return Value{Kind: ValueDimension, Raw: raw}, nil
	case typeFraction:
		return Value{Kind: ValueFraction, Raw: raw}, nil
	case typeIntDec:
		return Value{Kind: ValueIntDec, Raw: raw}, nil
	case typeIntHex:
		return Value{Kind: ValueIntHex, Raw: raw}, nil
	case typeIntBoolean:
		return Value{Kind: ValueIntBoolean, Raw: raw, BoolVal: raw != 0}, nil
	case typeIntColorARGB8:
		return Value{Kind: ValueIntColorARGB8, Raw: raw}, nil
	case typeIntColorRGB8:
		return Value{Kind: ValueIntColorRGB8, Raw: raw}, nil
	case typeIntColorARGB4:
		return Value{Kind: ValueIntColorARGB4, Raw: raw}, nil
	case typeIntColorRGB4:
		return Value{Kind: ValueIntColorRGB4, Raw: raw}, nil
	default:
		return Value{}, newError(ErrStructure, fmt.Sprintf("unknown dataType %#x", dt), nil)
	}
}

func float32frombits(raw uint32) float32 {
	return math.Float32frombits(raw)
}

// Color is a resolved ARGB/RGB color value.
type Color struct {
	A, R, G, B uint8
	HasAlpha   bool
}

// ResolvedValue is a Value after reference/attribute indirection has been
// followed against a resource table. Resolve itself only handles the
// indirection-free cases (String/Int/Bool/Float/Color); a caller holding a
// Reference or Attribute value looks it up in a *Table (tables.go) first
// and calls Resolve on the result.
type ResolvedValue struct {
	Kind      ValueKind
	StringVal string
	IntVal    uint32
	BoolVal   bool
	FloatVal  float32
	Color     Color
}

// Resolve converts a Value into its display/compare form. Reference and
// Attribute values cannot be resolved without a full resource table and
// return ErrResNotFound.
func (v Value) Resolve() (ResolvedValue, error) {
	switch v.Kind {
	case ValueNull:
		return ResolvedValue{Kind: ValueNull}, nil
	case ValueReference, ValueAttribute:
		return ResolvedValue{}, newError(ErrResNotFound, fmt.Sprintf("value %#x requires a resource table", v.Raw), nil)
	case ValueString:
		return ResolvedValue{Kind: ValueString, StringVal: v.StringVal}, nil
	case ValueFloat:
		return ResolvedValue{Kind: ValueFloat, FloatVal: v.FloatVal}, nil
	case ValueDimension, ValueFraction:
		return ResolvedValue{Kind: v.Kind, IntVal: v.Raw}, nil
	case ValueIntDec, ValueIntHex:
		return ResolvedValue{Kind: v.Kind, IntVal: v.Raw}, nil
	case ValueIntBoolean:
		return ResolvedValue{Kind: ValueIntBoolean, BoolVal: v.BoolVal}, nil
	case ValueIntColorARGB8:
		b := toBytes(v.Raw)
		return ResolvedValue{Kind: v.Kind, Color: Color{A: b[3], R: b[2], G: b[1], B: b[0], HasAlpha: true}}, nil
	case ValueIntColorRGB8:
		b := toBytes(v.Raw)
		return ResolvedValue{Kind: v.Kind, Color: Color{R: b[2], G: b[1], B: b[0]}}, nil
	case ValueIntColorARGB4:
		b := toBytes(v.Raw)
		return ResolvedValue{Kind: v.Kind, Color: Color{
			A: b[2] >> 4, R: b[2] & 0xf, G: b[3] >> 4, B: b[3] & 0xf, HasAlpha: true,
		}}, nil
	case ValueIntColorRGB4:
		b := toBytes(v.Raw)
		return ResolvedValue{Kind: v.Kind, Color: Color{R: b[2] & 0xf, G: b[3] >> 4, B: b[3] & 0xf}}, nil
	default:
		return ResolvedValue{}, newError(ErrStructure, "unresolvable value kind", nil)
	}
}

func toBytes(v uint32) [4]byte {
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
