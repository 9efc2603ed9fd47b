package jsondiff

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
)

// Type is the kind of a JSON node.
type Type int

const (
	Null Type = iota
	Boolean
	Number
	String
	Array
	Object
)

var typeNames = [...]string{
	Null:    "NULL",
	Boolean: "BOOLEAN",
	Number:  "NUMBER",
	String:  "STRING",
	Array:   "ARRAY",
	Object:  "OBJECT",
}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

var (
	errEmptyInput    = errors.New("no content to parse")
	errTrailingInput = errors.New("unexpected data after top-level value")
	errTooDeep       = fmt.Errorf("nesting depth exceeds %d", MaxDepth)
)

// MaxDepth is the deepest array/object nesting Parse accepts.
const MaxDepth = 10000

// Value is a parsed JSON node. Objects keep key insertion order and numbers
// keep their literal text.
type Value struct {
	typ    Type
	text   string
	items  []Value
	keys   []string
	fields map[string]Value
}

// NullValue returns a JSON null.
func NullValue() Value { return Value{typ: Null, text: "null"} }

// BoolValue returns a JSON boolean.
func BoolValue(b bool) Value {
	if b {
		return Value{typ: Boolean, text: "true"}
	}
	return Value{typ: Boolean, text: "false"}
}

// NumberValue returns a JSON number with the given literal text.
func NumberValue(literal string) Value { return Value{typ: Number, text: literal} }

// StringValue returns a JSON string.
func StringValue(s string) Value { return Value{typ: String, text: s} }

// ArrayValue returns a JSON array holding items.
func ArrayValue(items ...Value) Value { return Value{typ: Array, items: items} }

// ObjectValue returns an empty JSON object.
func ObjectValue() Value { return Value{typ: Object, fields: map[string]Value{}} }

// With returns a copy of the object with key set to val; v is unchanged. A
// repeated key keeps its original position and takes the new value.
func (v Value) With(key string, val Value) Value {
	v.fields = maps.Clone(v.fields)
	v.keys = slices.Clone(v.keys)
	v.set(key, val)
	return v
}

// set writes key in place.
func (v *Value) set(key string, val Value) {
	if v.fields == nil {
		v.fields = map[string]Value{}
	}
	if _, exists := v.fields[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

// Type returns the node type.
func (v Value) Type() Type { return v.typ }

// Text returns the textual rendering of a scalar node.
func (v Value) Text() string { return v.text }

// Len returns the element count of an array or the key count of an object.
func (v Value) Len() int {
	switch v.typ {
	case Array:
		return len(v.items)
	case Object:
		return len(v.keys)
	default:
		return 0
	}
}

// Index returns the i-th array element.
func (v Value) Index(i int) Value { return v.items[i] }

// Keys returns object keys in insertion order.
func (v Value) Keys() []string { return v.keys }

// Get returns the named object member.
func (v Value) Get(key string) (Value, bool) {
	val, ok := v.fields[key]
	return val, ok
}

// Parse decodes a single JSON document.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, errTrailingInput
		}
		return Value{}, err
	}
	return v, nil
}

// ParseString decodes a single JSON document held in s.
func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, errEmptyInput
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return Value{}, errTooDeep
		}
		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
		}
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberValue(t.String()), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	obj := ObjectValue()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected object key, got %v", tok)
		}
		val, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		obj.set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	arr := Value{typ: Array}
	for dec.More() {
		val, err := decodeValue(dec, depth)
		if err != nil {
			return Value{}, err
		}
		arr.items = append(arr.items, val)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return arr, nil
}
