package printer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/internal/logger"
	nethtml "golang.org/x/net/html"
)

// bodyFormatter renders response bodies for the console by content type.
type bodyFormatter struct {
	cfg    *config.BodyViewConfig
	logger logger.Logger
	rules  []formatRule
}

type formattedBody struct {
	Text    string
	Notices []string
}

// formatRule renders a body when it applies; ok is false otherwise.
type formatRule func(mediaType string, body []byte) (res formattedBody, ok bool)

func newBodyFormatter(cfg *config.BodyViewConfig, log logger.Logger) *bodyFormatter {
	if cfg == nil {
		cfg = &config.BodyViewConfig{}
	}
	f := &bodyFormatter{cfg: cfg, logger: log}
	f.rules = []formatRule{f.jsonRule, f.formRule, f.xmlRule, f.htmlRule}
	return f
}

// Format renders body, falling back to the raw text.
func (f *bodyFormatter) Format(contentType string, body []byte) formattedBody {
	if f == nil || len(body) == 0 {
		return formattedBody{}
	}
	raw := formattedBody{Text: string(body)}
	if !f.cfg.Enable {
		return raw
	}
	mediaType := mediaTypeOf(contentType)
	for _, rule := range f.rules {
		if res, ok := rule(mediaType, body); ok {
			return res
		}
	}
	return raw
}

func (f *bodyFormatter) debug(msg string, err error) {
	if f.logger != nil {
		f.logger.Debug(msg, "error", err)
	}
}

func (f *bodyFormatter) jsonRule(mediaType string, body []byte) (formattedBody, bool) {
	opts := f.cfg.Json
	if !opts.Enable || !looksLikeJSON(mediaType, body) {
		return formattedBody{}, false
	}
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return formattedBody{}, false
	}
	switch {
	case !opts.Pretty:
		return formattedBody{Text: string(body)}, true
	case opts.MaxIndentBytes > 0 && len(trimmed) > opts.MaxIndentBytes:
		notice := fmt.Sprintf("JSON larger than %s, shown without indentation", humanize.Bytes(uint64(opts.MaxIndentBytes)))
		return formattedBody{Text: string(body), Notices: []string{notice}}, true
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		f.debug("json indent failed", err)
		return formattedBody{}, false
	}
	return formattedBody{Text: buf.String()}, true
}

func (f *bodyFormatter) formRule(mediaType string, body []byte) (formattedBody, bool) {
	if !f.cfg.Form.Enable || mediaType != "application/x-www-form-urlencoded" {
		return formattedBody{}, false
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		f.debug("form parse failed", err)
		return formattedBody{}, false
	}
	if len(values) == 0 {
		return formattedBody{Text: string(body)}, true
	}
	return formattedBody{Text: formTable(values)}, true
}

// formTable lays form fields out as a two column table, keys sorted.
func formTable(values url.Values) string {
	keys := make([]string, 0, len(values))
	width := utf8.RuneCountInString("Key")
	for k := range values {
		keys = append(keys, k)
		if w := utf8.RuneCountInString(k); w > width {
			width = w
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Form data:\n")
	fmt.Fprintf(&b, "%-*s │ %s\n", width, "Key", "Value")
	b.WriteString(strings.Repeat("─", width+1) + "┼" + strings.Repeat("─", 40) + "\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%-*s │ %s\n", width, k, strings.Join(values[k], ", "))
	}
	return b.String()
}

func (f *bodyFormatter) xmlRule(mediaType string, body []byte) (formattedBody, bool) {
	if !f.cfg.XML.Enable || !strings.Contains(mediaType, "xml") {
		return formattedBody{}, false
	}
	return f.markup(body, f.cfg.XML.StripControl, f.cfg.XML.Pretty, indentXML), true
}

func (f *bodyFormatter) htmlRule(mediaType string, body []byte) (formattedBody, bool) {
	if !f.cfg.HTML.Enable {
		return formattedBody{}, false
	}
	if !strings.Contains(mediaType, "html") && !looksLikeHTML(body) {
		return formattedBody{}, false
	}
	return f.markup(body, f.cfg.HTML.StripControl, f.cfg.HTML.Pretty, indentHTML), true
}

// markup optionally strips control bytes and re-indents an XML or HTML body.
// A body that fails to re-indent is shown as is.
func (f *bodyFormatter) markup(body []byte, strip, pretty bool, indent func([]byte) (string, error)) formattedBody {
	if strip {
		body = stripControlBytes(body)
	}
	if !pretty {
		return formattedBody{Text: string(body)}
	}
	text, err := indent(body)
	if err != nil {
		f.debug("markup indent failed", err)
		return formattedBody{Text: string(body)}
	}
	return formattedBody{Text: text}
}

func mediaTypeOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func looksLikeJSON(mediaType string, body []byte) bool {
	if strings.Contains(mediaType, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 2 {
		return false
	}
	first, last := trimmed[0], trimmed[len(trimmed)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 5 {
		return false
	}
	head := strings.ToLower(string(trimmed[:5]))
	return head == "<html" || head == "<!doc"
}

// stripControlBytes drops ASCII control bytes except tab, CR and LF.
func stripControlBytes(b []byte) []byte {
	return bytes.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, b)
}

func indentXML(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if err := enc.EncodeToken(tok); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func indentHTML(data []byte) (string, error) {
	doc, err := nethtml.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeHTMLNode(&b, doc, 0)
	return b.String(), nil
}

func writeHTMLNode(b *strings.Builder, n *nethtml.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	switch n.Type {
	case nethtml.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeHTMLNode(b, c, depth)
		}
	case nethtml.ElementNode:
		b.WriteString(pad + "<" + n.Data)
		for _, a := range n.Attr {
			fmt.Fprintf(b, " %s=\"%s\"", a.Key, html.EscapeString(a.Val))
		}
		if voidElements[strings.ToLower(n.Data)] {
			b.WriteString(" />\n")
			return
		}
		b.WriteString(">\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeHTMLNode(b, c, depth+1)
		}
		if n.FirstChild != nil {
			b.WriteString(pad)
		}
		b.WriteString("</" + n.Data + ">\n")
	case nethtml.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			b.WriteString(pad + text + "\n")
		}
	case nethtml.CommentNode:
		b.WriteString(pad + "<!--" + strings.TrimSpace(n.Data) + "-->\n")
	}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}
