// Package curl converts request descriptors to shell-ready cURL commands and
// parses cURL commands back into descriptors.
package curl

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shofin-islam/qahelper/pkg/request"
)

const jsonContentType = "application/json"

// Encode renders req as a single-line cURL command. URL and body placeholders
// are substituted from env first. Encode never fails.
func Encode(req request.Descriptor, env map[string]string) string {
	method := request.NormalizeMethod(req.Method)
	url := Substitute(req.URL, env)

	var b strings.Builder
	b.WriteString("curl -X ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(doubleQuote(url))

	for _, h := range req.Headers {
		if strings.TrimSpace(h.Name) == "" || h.Value == "" {
			continue
		}
		b.WriteString(" -H ")
		b.WriteString(doubleQuote(h.Name + ": " + h.Value))
	}

	body := Substitute(req.Body, env)
	if request.AllowsBody(method) && body != "" && req.IsJSONBody() {
		if !req.HasHeader("Content-Type") {
			b.WriteString(` -H "Content-Type: ` + jsonContentType + `"`)
		}
		b.WriteString(" --data ")
		b.WriteString(singleQuote(FormatBody(body)))
	}

	return b.String()
}

// FormatBody pretty-prints JSON with two-space indentation, preserving key
// order. Anything that is not valid JSON is returned verbatim.
func FormatBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return body
	}
	return buf.String()
}

// singleQuote wraps s in single quotes; embedded single quotes become '"'"'.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// doubleQuote wraps s in double quotes, escaping characters the shell would
// otherwise interpret.
func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}
