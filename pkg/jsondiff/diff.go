// Package jsondiff compares two JSON documents structurally and reports every
// difference with the path at which it occurs.
//
// Paths are built from the root (the empty string) by appending ".key" for
// object members and "[i]" for array elements, e.g. ".items[2].id".
package jsondiff

import (
	"fmt"
	"strings"
)

// Kind classifies a difference.
type Kind int

const (
	TypeMismatch Kind = iota
	MissingInLeft
	MissingInRight
	ArraySizeMismatch
	ValueMismatch
	InvalidInput
)

var kindNames = [...]string{
	TypeMismatch:      "type_mismatch",
	MissingInLeft:     "missing_in_left",
	MissingInRight:    "missing_in_right",
	ArraySizeMismatch: "array_size_mismatch",
	ValueMismatch:     "value_mismatch",
	InvalidInput:      "invalid_input",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Identical is the summary of a comparison without differences.
const Identical = "Identical"

// Separator joins difference messages in a summary.
const Separator = "; "

// Difference is one structural difference between two documents.
type Difference struct {
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// String renders the human readable message. "JSON 1" is the left document
// and "JSON 2" the right one.
func (d Difference) String() string {
	switch d.Kind {
	case TypeMismatch:
		return fmt.Sprintf("Type mismatch at %s - %s", d.Path, d.Detail)
	case MissingInRight:
		return "Missing key in JSON 2 at " + d.Path
	case MissingInLeft:
		return "Missing key in JSON 1 at " + d.Path
	case ArraySizeMismatch:
		return "Array size mismatch at " + d.Path
	case ValueMismatch:
		return fmt.Sprintf("Value mismatch at %s - %s", d.Path, d.Detail)
	case InvalidInput:
		return "Invalid JSON format: " + d.Detail
	default:
		return fmt.Sprintf("%s at %s", d.Kind, d.Path)
	}
}

// Compare walks both documents depth-first and returns every difference in
// traversal order. Identical documents yield an empty result.
func Compare(left, right Value) []Difference {
	var c comparer
	c.walk("", left, right)
	return c.diffs
}

// CompareText parses both inputs and compares them. A parse failure yields a
// single InvalidInput difference.
func CompareText(left, right string) []Difference {
	lv, err := ParseString(left)
	if err != nil {
		return []Difference{{Kind: InvalidInput, Detail: err.Error()}}
	}
	rv, err := ParseString(right)
	if err != nil {
		return []Difference{{Kind: InvalidInput, Detail: err.Error()}}
	}
	return Compare(lv, rv)
}

// CompareStrings is CompareText followed by Summarize.
func CompareStrings(left, right string) string {
	return Summarize(CompareText(left, right))
}

// Summarize renders differences as one line, or Identical when there are none.
func Summarize(diffs []Difference) string {
	if len(diffs) == 0 {
		return Identical
	}
	msgs := make([]string, len(diffs))
	for i, d := range diffs {
		msgs[i] = d.String()
	}
	return strings.Join(msgs, Separator)
}

// HasInvalidInput reports whether the result stems from unparseable input.
func HasInvalidInput(diffs []Difference) bool {
	return len(diffs) == 1 && diffs[0].Kind == InvalidInput
}

type comparer struct {
	diffs []Difference
}

func (c *comparer) add(path string, kind Kind, detail string) {
	c.diffs = append(c.diffs, Difference{Path: path, Kind: kind, Detail: detail})
}

func (c *comparer) walk(path string, left, right Value) {
	if left.typ != right.typ {
		c.add(path, TypeMismatch, left.typ.String()+" vs "+right.typ.String())
		return
	}

	switch left.typ {
	case Object:
		for _, key := range left.keys {
			child := path + "." + key
			rv, ok := right.fields[key]
			if !ok {
				c.add(child, MissingInRight, "")
				continue
			}
			c.walk(child, left.fields[key], rv)
		}
		for _, key := range right.keys {
			if _, ok := left.fields[key]; !ok {
				c.add(path+"."+key, MissingInLeft, "")
			}
		}
	case Array:
		if len(left.items) != len(right.items) {
			c.add(path, ArraySizeMismatch, fmt.Sprintf("%d vs %d", len(left.items), len(right.items)))
			return
		}
		for i := range left.items {
			c.walk(fmt.Sprintf("%s[%d]", path, i), left.items[i], right.items[i])
		}
	default:
		if left.text != right.text {
			c.add(path, ValueMismatch, left.text+" vs "+right.text)
		}
	}
}
