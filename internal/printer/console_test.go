package printer

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/pkg/jsondiff"
	"github.com/shofin-islam/qahelper/pkg/request"
)

func init() {
	color.NoColor = true
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

func newTestConsole(t *testing.T, cfg *config.BodyViewConfig) (*ConsolePrinter, *bytes.Buffer) {
	t.Helper()
	t.Setenv("QAHELPER_TEST_WIDTH", "80")
	p := NewConsolePrinter(noopLogger{}, cfg)
	buf := &bytes.Buffer{}
	p.out = buf
	return p, buf
}

func TestConsolePrinter_PrintCapture(t *testing.T) {
	p, buf := newTestConsole(t, nil)

	c := request.Capture{
		Timestamp:      time.Now(),
		Method:         "get",
		URL:            "https://api.example.com/hello?q=1",
		RequestHeaders: []request.Header{{Name: "Authorization", Value: "Bearer secret"}, {Name: "Accept", Value: "*/*"}},
		StatusCode:     200,
		StatusText:     "OK",
		Headers:        http.Header{"Content-Type": {"text/plain"}, "Set-Cookie": {"sid=secret"}},
		Body:           "hi",
		DurationMs:     12,
		Outcome:        request.OutcomeOK,
	}

	if err := p.PrintCapture("Orders!2", c); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Execution #", "Orders!2", "GET https://api.example.com/hello?q=1", "HTTP 200 OK", "Size: 2 B", "Time: 12ms", "hi"} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "secret") {
		t.Fatalf("sensitive header should be redacted:\n%s", output)
	}
}

func TestConsolePrinter_FailedCapture(t *testing.T) {
	p, buf := newTestConsole(t, nil)

	c := request.InvalidCapture("unterminated quote")
	if err := p.PrintCapture("", c); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Outcome: invalid_format") {
		t.Fatalf("expected outcome line, got %s", output)
	}
	if !strings.Contains(output, "Error: unterminated quote") {
		t.Fatalf("expected error line, got %s", output)
	}
	if !strings.Contains(output, request.InvalidCurlBody) {
		t.Fatalf("expected sentinel body, got %s", output)
	}
}

func TestConsolePrinter_Silence(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	p.silence = true

	if err := p.PrintCapture("", request.NewCapture()); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("silenced printer wrote %q", buf.String())
	}
}

func TestConsolePrinter_JSONPretty(t *testing.T) {
	cfg := config.BodyViewConfig{
		Enable: true,
		Json: config.JSONViewConfig{
			Enable:         true,
			Pretty:         true,
			MaxIndentBytes: 1024,
		},
	}
	p, buf := newTestConsole(t, &cfg)
	c := request.Capture{
		Method:  "POST",
		URL:     "https://api.example.com/json",
		Headers: http.Header{"Content-Type": {"application/json"}},
		Body:    `{"foo":"bar","nested":{"a":1}}`,
		Outcome: request.OutcomeOK,
	}
	if err := p.PrintCapture("", c); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "\n  \"foo\": \"bar\"") {
		t.Fatalf("expected pretty JSON output, got %s", output)
	}
}

func TestConsolePrinter_FormTable(t *testing.T) {
	cfg := config.BodyViewConfig{
		Enable: true,
		Form:   config.FormViewConfig{Enable: true},
	}
	p, buf := newTestConsole(t, &cfg)
	c := request.Capture{
		Method:  "POST",
		URL:     "https://api.example.com/form",
		Headers: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		Body:    "foo=bar&foo=baz&bar=baz",
		Outcome: request.OutcomeOK,
	}
	if err := p.PrintCapture("", c); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Form data:") || !strings.Contains(output, "foo │ bar, baz") {
		t.Fatalf("expected form table output, got %s", output)
	}
}

func TestConsolePrinter_TruncationNotice(t *testing.T) {
	cfg := config.BodyViewConfig{
		Enable:          true,
		MaxPreviewBytes: 8,
	}
	p, buf := newTestConsole(t, &cfg)
	c := request.Capture{
		Method:  "GET",
		URL:     "https://api.example.com/truncate",
		Headers: http.Header{"Content-Type": {"text/plain"}},
		Body:    "0123456789abcdef",
		Outcome: request.OutcomeOK,
	}
	if err := p.PrintCapture("", c); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "[Showing first 8 B of 16 B]") {
		t.Fatalf("expected truncation notice, got %s", output)
	}
	if strings.Contains(output, "abcdef") {
		t.Fatalf("unexpected full body output when preview limit active")
	}
}

func TestConsolePrinter_BinaryBodySkipped(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	c := request.Capture{
		Method:  "GET",
		URL:     "https://api.example.com/bin",
		Headers: http.Header{"Content-Type": {"application/octet-stream"}},
		Body:    string([]byte{0x00, 0x01, 0x02, 0x03}),
		Outcome: request.OutcomeOK,
	}
	if err := p.PrintCapture("", c); err != nil {
		t.Fatalf("print capture failed: %v", err)
	}
	if !strings.Contains(buf.String(), "[Binary Body: application/octet-stream, 4 B. Content skipped.]") {
		t.Fatalf("expected binary notice, got %s", buf.String())
	}
}

func TestConsolePrinter_PrintDifferences(t *testing.T) {
	p, buf := newTestConsole(t, nil)

	if err := p.PrintDifferences("a.json vs b.json", nil); err != nil {
		t.Fatalf("print differences failed: %v", err)
	}
	if !strings.Contains(buf.String(), jsondiff.Identical) {
		t.Fatalf("expected identical marker, got %s", buf.String())
	}

	buf.Reset()
	diffs := jsondiff.CompareText(`{"a":1,"b":2}`, `{"a":2}`)
	if err := p.PrintDifferences("", diffs); err != nil {
		t.Fatalf("print differences failed: %v", err)
	}
	output := buf.String()
	if strings.Count(output, "  - ") != len(diffs) {
		t.Fatalf("expected %d difference lines, got %s", len(diffs), output)
	}
	if !strings.Contains(output, "Missing key in JSON 2 at .b") {
		t.Fatalf("missing key difference not printed: %s", output)
	}
}

func TestConsolePrinter_PrintSummary(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	rows := []SummaryRow{
		{Label: "Total", Value: "3"},
		{Label: "Succeeded", Value: "2"},
	}
	if err := p.PrintSummary("Run finished", rows); err != nil {
		t.Fatalf("print summary failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[3], "Total") || !strings.Contains(lines[3], "3") {
		t.Fatalf("unexpected first row %q", lines[3])
	}
	width := len([]rune(lines[0]))
	for i, line := range lines {
		if got := len([]rune(line)); got != width {
			t.Fatalf("line %d has width %d, want %d: %q", i, got, width, line)
		}
	}
}

func TestConsolePrinter_PrintValue(t *testing.T) {
	p, buf := newTestConsole(t, nil)
	if err := p.PrintValue("descriptor", map[string]string{"method": "GET"}); err != nil {
		t.Fatalf("print value failed: %v", err)
	}
	if buf.String() != "{\n  \"method\": \"GET\"\n}\n" {
		t.Fatalf("unexpected value output %q", buf.String())
	}

	buf.Reset()
	if err := p.PrintValue("curl", "curl -X GET 'x'"); err != nil {
		t.Fatalf("print value failed: %v", err)
	}
	if buf.String() != "curl -X GET 'x'\n" {
		t.Fatalf("strings should print verbatim, got %q", buf.String())
	}
}

func TestBodyFormatter_Markup(t *testing.T) {
	cfg := config.BodyViewConfig{
		Enable: true,
		XML:    config.XMLViewConfig{Enable: true, Pretty: true, StripControl: true},
		HTML:   config.HTMLViewConfig{Enable: true, Pretty: true},
	}
	f := newBodyFormatter(&cfg, noopLogger{})

	htmlOut := f.Format("text/html; charset=utf-8", []byte("<html><body><p>hi</p></body></html>"))
	if !strings.Contains(htmlOut.Text, "    <p>\n      hi\n    </p>\n") {
		t.Fatalf("unexpected html rendering:\n%s", htmlOut.Text)
	}

	xmlOut := f.Format("application/xml", []byte("<a>\x01<b>1</b></a>"))
	if strings.ContainsRune(xmlOut.Text, '\x01') {
		t.Fatalf("control byte not stripped: %q", xmlOut.Text)
	}
	if !strings.Contains(xmlOut.Text, "\n  <b>1</b>") {
		t.Fatalf("unexpected xml rendering:\n%s", xmlOut.Text)
	}

	plain := f.Format("text/plain", []byte("hello"))
	if plain.Text != "hello" || len(plain.Notices) != 0 {
		t.Fatalf("plain text should pass through, got %+v", plain)
	}
}
