package request

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// Outcome classifies how an execution ended.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeInvalidFormat  Outcome = "invalid_format"
	OutcomeNetworkFailure Outcome = "network_failure"
)

// InvalidCurlBody is the body of a capture produced for unparseable cURL text.
const InvalidCurlBody = "Invalid cURL Request"

// Capture is the recorded result of one execution. Failures are recorded in
// Outcome and Error rather than returned.
type Capture struct {
	ID             string      `json:"id"`
	Timestamp      time.Time   `json:"timestamp"`
	Method         string      `json:"method"`
	URL            string      `json:"url"`
	RequestHeaders []Header    `json:"request_headers,omitempty"`
	RequestBody    string      `json:"request_body,omitempty"`
	StatusCode     int         `json:"status_code"`
	StatusText     string      `json:"status_text"`
	Headers        http.Header `json:"headers,omitempty"`
	Body           string      `json:"body"`
	DurationMs     int64       `json:"duration_ms"`
	Outcome        Outcome     `json:"outcome"`
	Error          string      `json:"error,omitempty"`
}

// NewCapture returns an empty capture stamped with a fresh ID and time.
func NewCapture() Capture {
	return Capture{
		ID:        generateID("EXE"),
		Timestamp: time.Now(),
		Outcome:   OutcomeOK,
	}
}

// InvalidCapture builds the sentinel result for unparseable cURL text.
func InvalidCapture(reason string) Capture {
	c := NewCapture()
	c.Outcome = OutcomeInvalidFormat
	c.Body = InvalidCurlBody
	c.Error = reason
	return c
}

// Failed reports whether the capture carries no real response.
func (c Capture) Failed() bool {
	return c.Outcome != OutcomeOK
}

// ContentType returns the response Content-Type header.
func (c Capture) ContentType() string {
	if c.Headers == nil {
		return ""
	}
	return c.Headers.Get("Content-Type")
}

// IsBinary detects binary response content.
func (c Capture) IsBinary() bool {
	return isBinaryContent(c.ContentType(), []byte(c.Body))
}

// HeaderLine renders response headers as "k: v; " pairs in key order.
func (c Capture) HeaderLine() string {
	return FormatHeaderLine(c.Headers)
}

// FormatHeaderLine renders headers as "k: v; " pairs, sorted by name.
func FormatHeaderLine(h http.Header) string {
	if len(h) == 0 {
		return ""
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range h[k] {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("; ")
		}
	}
	return b.String()
}

// isBinaryContent detects if it's binary content
func isBinaryContent(contentType string, body []byte) bool {
	binaryTypes := []string{
		"image/", "video/", "audio/",
		"application/octet-stream",
		"application/zip", "application/gzip",
		"application/pdf", "application/msword",
		"application/vnd.ms-", "application/vnd.openxmlformats-",
	}

	for _, binaryType := range binaryTypes {
		if strings.HasPrefix(contentType, binaryType) {
			return true
		}
	}

	nullCount := 0
	for _, b := range body {
		if b == 0 {
			nullCount++
		}
	}
	if len(body) > 0 && nullCount > len(body)/10 { // More than 10% are null bytes
		return true
	}

	return false
}
