package jsondiff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, s string) Value {
	t.Helper()
	v, err := ParseString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestCompareIdenticalDocuments(t *testing.T) {
	docs := []string{
		`null`,
		`"text"`,
		`[1, "two", {"three": [3]}]`,
		`{"user":{"id":7,"tags":["a","b"],"active":true,"note":null}}`,
	}
	for _, doc := range docs {
		v := mustParse(t, doc)
		if diffs := Compare(v, v); len(diffs) != 0 {
			t.Errorf("Compare(%s, itself) = %v", doc, diffs)
		}
	}
}

func TestCompareIgnoresKeyOrder(t *testing.T) {
	left := `{"a":1,"b":{"x":true,"y":[1,2]}}`
	right := `{"b":{"y":[1,2],"x":true},"a":1}`
	if got := CompareStrings(left, right); got != Identical {
		t.Fatalf("expected Identical, got %q", got)
	}
}

func TestCompareDifferences(t *testing.T) {
	tests := []struct {
		name  string
		left  string
		right string
		want  []Difference
	}{
		{
			name:  "missing in left",
			left:  `{"a":1}`,
			right: `{"a":1,"b":2}`,
			want:  []Difference{{Path: ".b", Kind: MissingInLeft}},
		},
		{
			name:  "missing in right",
			left:  `{"a":1,"b":2}`,
			right: `{"a":1}`,
			want:  []Difference{{Path: ".b", Kind: MissingInRight}},
		},
		{
			name:  "array size at root",
			left:  `[1,2]`,
			right: `[1,2,3]`,
			want:  []Difference{{Path: "", Kind: ArraySizeMismatch, Detail: "2 vs 3"}},
		},
		{
			name:  "type mismatch stops descent",
			left:  `{"a":{"b":1}}`,
			right: `{"a":[1]}`,
			want:  []Difference{{Path: ".a", Kind: TypeMismatch, Detail: "OBJECT vs ARRAY"}},
		},
		{
			name:  "nested value mismatch",
			left:  `{"items":[{"id":1},{"id":2}]}`,
			right: `{"items":[{"id":1},{"id":3}]}`,
			want:  []Difference{{Path: ".items[1].id", Kind: ValueMismatch, Detail: "2 vs 3"}},
		},
		{
			name:  "numbers compare textually",
			left:  `{"n":1}`,
			right: `{"n":1.0}`,
			want:  []Difference{{Path: ".n", Kind: ValueMismatch, Detail: "1 vs 1.0"}},
		},
		{
			name:  "string and number are different types",
			left:  `{"n":"1"}`,
			right: `{"n":1}`,
			want:  []Difference{{Path: ".n", Kind: TypeMismatch, Detail: "STRING vs NUMBER"}},
		},
		{
			name:  "left keys first then right-only keys",
			left:  `{"a":1,"b":2,"c":3}`,
			right: `{"d":4,"b":5,"a":1}`,
			want: []Difference{
				{Path: ".b", Kind: ValueMismatch, Detail: "2 vs 5"},
				{Path: ".c", Kind: MissingInRight},
				{Path: ".d", Kind: MissingInLeft},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareText(tt.left, tt.right)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("differences mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummarizeMessages(t *testing.T) {
	got := CompareStrings(`{"a":{"b":1},"c":[1],"e":"x"}`, `{"a":[],"c":[1,2],"d":true,"e":"y"}`)
	want := strings.Join([]string{
		"Type mismatch at .a - OBJECT vs ARRAY",
		"Array size mismatch at .c",
		"Value mismatch at .e - x vs y",
		"Missing key in JSON 1 at .d",
	}, "; ")
	if got != want {
		t.Fatalf("summary mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestCompareInvalidInput(t *testing.T) {
	for _, pair := range [][2]string{
		{`{"a":`, `{}`},
		{`{}`, `not json`},
		{``, `{}`},
		{`{} {}`, `{}`},
	} {
		diffs := CompareText(pair[0], pair[1])
		if !HasInvalidInput(diffs) {
			t.Errorf("CompareText(%q, %q) = %v, want single InvalidInput", pair[0], pair[1], diffs)
			continue
		}
		if msg := Summarize(diffs); !strings.HasPrefix(msg, "Invalid JSON format: ") {
			t.Errorf("unexpected invalid summary %q", msg)
		}
	}
}

func TestParseKeepsKeyOrderAndLastDuplicate(t *testing.T) {
	v := mustParse(t, `{"z":1,"a":2,"z":3}`)
	if diff := cmp.Diff([]string{"z", "a"}, v.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}
	z, _ := v.Get("z")
	if z.Text() != "3" {
		t.Fatalf("duplicate key should keep last value, got %s", z.Text())
	}
}

func TestParseScalarText(t *testing.T) {
	cases := map[string]string{
		`"hi"`:  "hi",
		`1e3`:   "1e3",
		`-0.50`: "-0.50",
		`true`:  "true",
		`null`:  "null",
	}
	for in, want := range cases {
		if got := mustParse(t, in).Text(); got != want {
			t.Errorf("Text(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestBuiltValuesCompare(t *testing.T) {
	left := ObjectValue().With("id", NumberValue("1")).With("tags", ArrayValue(StringValue("a")))
	right := mustParse(t, `{"tags":["a"],"id":1}`)
	if diffs := Compare(left, right); len(diffs) != 0 {
		t.Fatalf("expected no differences, got %v", diffs)
	}
}

func TestWithLeavesReceiverUnchanged(t *testing.T) {
	base := ObjectValue().With("a", NumberValue("1"))
	withB := base.With("b", NumberValue("2"))
	withC := base.With("c", NumberValue("3"))

	if diff := cmp.Diff([]string{"a"}, base.Keys()); diff != "" {
		t.Fatalf("base keys changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, withB.Keys()); diff != "" {
		t.Fatalf("derived keys mismatch (-want +got):\n%s", diff)
	}
	if _, ok := withB.Get("c"); ok {
		t.Fatalf("sibling write leaked into derived object")
	}

	full := withB.With("c", NumberValue("3"))
	if got := Summarize(Compare(full, withB)); got != "Missing key in JSON 2 at .c" {
		t.Fatalf("unexpected comparison %q", got)
	}
	if got := Summarize(Compare(withC, withB)); got != "Missing key in JSON 2 at .c; Missing key in JSON 1 at .b" {
		t.Fatalf("unexpected sibling comparison %q", got)
	}
}

func TestCompareRejectsExcessiveNesting(t *testing.T) {
	deep := strings.Repeat("[", 200000) + strings.Repeat("]", 200000)
	diffs := CompareText(deep, deep)
	if !HasInvalidInput(diffs) {
		t.Fatalf("expected a single InvalidInput difference, got %d differences", len(diffs))
	}
	if !strings.Contains(diffs[0].Detail, "nesting depth") {
		t.Fatalf("unexpected detail %q", diffs[0].Detail)
	}

	limit := strings.Repeat("[", MaxDepth) + strings.Repeat("]", MaxDepth)
	if got := CompareStrings(limit, limit); got != Identical {
		t.Fatalf("nesting at the limit should parse, got %.80s", got)
	}
}
