package request

import (
	"net/http"
	"testing"
)

func TestResolveMethod(t *testing.T) {
	cases := map[string]string{
		"":        "GET",
		"get":     "GET",
		" post ":  "POST",
		"PUT":     "PUT",
		"patch":   "PATCH",
		"delete":  "DELETE",
		"HEAD":    "GET",
		"OPTIONS": "GET",
	}
	for in, want := range cases {
		if got := ResolveMethod(in); got != want {
			t.Errorf("ResolveMethod(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAllowsBody(t *testing.T) {
	for _, m := range []string{"post", "PUT", "Patch"} {
		if !AllowsBody(m) {
			t.Errorf("expected %s to allow body", m)
		}
	}
	for _, m := range []string{"", "GET", "DELETE", "HEAD"} {
		if AllowsBody(m) {
			t.Errorf("expected %s to not allow body", m)
		}
	}
}

func TestDescriptorHeaderLookup(t *testing.T) {
	d := Descriptor{
		Headers: []Header{
			{Name: "X-Trace", Value: "a"},
			{Name: "content-type", Value: "text/plain"},
			{Name: "X-Trace", Value: "b"},
		},
	}

	if v, ok := d.Header("Content-Type"); !ok || v != "text/plain" {
		t.Fatalf("expected case-insensitive lookup, got %q %v", v, ok)
	}
	if v, _ := d.Header("x-trace"); v != "a" {
		t.Fatalf("expected first duplicate value, got %q", v)
	}
	if d.HasHeader("Authorization") {
		t.Fatalf("unexpected Authorization header")
	}

	clone := d.Clone()
	clone.Headers[0].Value = "changed"
	if d.Headers[0].Value != "a" {
		t.Fatalf("clone shares header slice with original")
	}
}

func TestIsJSONBody(t *testing.T) {
	if !(Descriptor{}).IsJSONBody() {
		t.Fatalf("unspecified language should default to JSON")
	}
	if !(Descriptor{BodyLanguage: "JSON"}).IsJSONBody() {
		t.Fatalf("json language not detected")
	}
	if (Descriptor{BodyLanguage: "text"}).IsJSONBody() {
		t.Fatalf("text language treated as JSON")
	}
}

func TestInvalidCapture(t *testing.T) {
	c := InvalidCapture("missing curl prefix")
	if c.Outcome != OutcomeInvalidFormat || c.Body != InvalidCurlBody {
		t.Fatalf("unexpected sentinel capture: %+v", c)
	}
	if !c.Failed() {
		t.Fatalf("sentinel capture should report failure")
	}
	if c.ID == "" || c.Timestamp.IsZero() {
		t.Fatalf("capture should be stamped")
	}
}

func TestFormatHeaderLine(t *testing.T) {
	h := http.Header{}
	h.Add("X-B", "2")
	h.Add("Content-Type", "application/json")
	h.Add("X-B", "3")

	got := FormatHeaderLine(h)
	want := "Content-Type: application/json; X-B: 2; X-B: 3; "
	if got != want {
		t.Fatalf("FormatHeaderLine = %q, want %q", got, want)
	}
	if FormatHeaderLine(nil) != "" {
		t.Fatalf("expected empty line for nil headers")
	}
}

func TestCaptureIsBinary(t *testing.T) {
	c := Capture{Headers: http.Header{"Content-Type": []string{"image/png"}}}
	if !c.IsBinary() {
		t.Fatalf("image content should be binary")
	}
	c = Capture{Body: `{"ok":true}`}
	if c.IsBinary() {
		t.Fatalf("json body detected as binary")
	}
}
