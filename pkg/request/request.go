package request

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Methods accepted for dispatch. Anything else is sent as GET.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Header is a single request header. Order and duplicates are significant.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Descriptor describes an HTTP request independently of how it was obtained
// (collection entry, parsed cURL text, ...).
type Descriptor struct {
	Method  string   `json:"method" yaml:"method"`
	URL     string   `json:"url" yaml:"url"`
	Headers []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string   `json:"body,omitempty" yaml:"body,omitempty"`
	// BodyLanguage is the declared raw body language ("json", "text", ...).
	// Empty means unspecified and is treated as JSON.
	BodyLanguage string `json:"body_language,omitempty" yaml:"body_language,omitempty"`
}

// NormalizeMethod upper-cases the method and defaults it to GET.
func NormalizeMethod(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		return MethodGet
	}
	return m
}

// ResolveMethod returns the method actually used on the wire.
// Unsupported methods fall back to GET.
func ResolveMethod(method string) string {
	m := NormalizeMethod(method)
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m
	default:
		return MethodGet
	}
}

// AllowsBody reports whether the method carries a request body.
func AllowsBody(method string) bool {
	switch NormalizeMethod(method) {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

// HasHeader reports whether a header with the given name exists (case-insensitive).
func (d Descriptor) HasHeader(name string) bool {
	_, ok := d.Header(name)
	return ok
}

// Header returns the first value of the named header.
func (d Descriptor) Header(name string) (string, bool) {
	for _, h := range d.Headers {
		if strings.EqualFold(strings.TrimSpace(h.Name), name) {
			return h.Value, true
		}
	}
	return "", false
}

// IsJSONBody reports whether the raw body is declared (or defaults to) JSON.
func (d Descriptor) IsJSONBody() bool {
	lang := strings.ToLower(strings.TrimSpace(d.BodyLanguage))
	return lang == "" || lang == "json"
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Headers != nil {
		out.Headers = append([]Header(nil), d.Headers...)
	}
	return out
}

// generateID creates a random, URL-safe identifier.
func generateID(prefix string) string {
	const idBytes = 12 // 12 bytes => 24 hex characters
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
