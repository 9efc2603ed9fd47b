package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/jsondiff"
	"github.com/shofin-islam/qahelper/pkg/request"
	"golang.org/x/term"
)

// ColorScheme color scheme
type ColorScheme struct {
	MethodGET      *color.Color
	MethodPOST     *color.Color
	MethodPUT      *color.Color
	MethodDELETE   *color.Color
	MethodPATCH    *color.Color
	HeaderKey      *color.Color
	HeaderValue    *color.Color
	Separator      *color.Color
	Timestamp      *color.Color
	BodyContent    *color.Color
	BinaryNotice   *color.Color
	TruncateNotice *color.Color
	StatusOK       *color.Color
	StatusError    *color.Color
	Identical      *color.Color
	Difference     *color.Color
}

// NewColorScheme creates a new color scheme
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		MethodGET:      color.New(color.FgBlue, color.Bold),
		MethodPOST:     color.New(color.FgGreen, color.Bold),
		MethodPUT:      color.New(color.FgYellow, color.Bold),
		MethodDELETE:   color.New(color.FgRed, color.Bold),
		MethodPATCH:    color.New(color.FgMagenta, color.Bold),
		HeaderKey:      color.New(color.FgCyan),
		HeaderValue:    color.New(color.FgWhite),
		Separator:      color.New(color.FgYellow, color.Bold),
		Timestamp:      color.New(color.FgHiBlack),
		BodyContent:    color.New(color.FgWhite),
		BinaryNotice:   color.New(color.FgHiRed, color.Bold),
		TruncateNotice: color.New(color.FgHiYellow, color.Bold),
		StatusOK:       color.New(color.FgGreen, color.Bold),
		StatusError:    color.New(color.FgRed, color.Bold),
		Identical:      color.New(color.FgGreen, color.Bold),
		Difference:     color.New(color.FgHiRed),
	}
}

// ConsolePrinter console printer
type ConsolePrinter struct {
	colorScheme *ColorScheme
	logger      logger.Logger
	formatter   *bodyFormatter
	cfg         *config.BodyViewConfig
	out         io.Writer
	silence     bool
}

// NewConsolePrinter creates a new console printer
func NewConsolePrinter(log logger.Logger, cfg *config.BodyViewConfig) *ConsolePrinter {
	if cfg == nil {
		cfg = &config.BodyViewConfig{}
	}
	return &ConsolePrinter{
		colorScheme: NewColorScheme(),
		logger:      log,
		formatter:   newBodyFormatter(cfg, log),
		cfg:         cfg,
		out:         os.Stdout,
	}
}

// getTerminalWidth gets the current terminal width with fallback
func (p *ConsolePrinter) getTerminalWidth() int {
	if testWidth := os.Getenv("QAHELPER_TEST_WIDTH"); testWidth != "" {
		if width, err := strconv.Atoi(testWidth); err == nil {
			return clampWidth(width)
		}
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	switch {
	case width < 40:
		return 40
	case width > 150:
		return 150
	default:
		return width
	}
}

// wrapText wraps text to fit within the specified width, preserving words
func (p *ConsolePrinter) wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)

	if len(words) == 0 {
		return []string{""}
	}

	currentLine := words[0]
	currentWidth := runewidth.StringWidth(currentLine)

	for _, word := range words[1:] {
		wordWidth := runewidth.StringWidth(word)
		if currentWidth+1+wordWidth > maxWidth {
			lines = append(lines, currentLine)
			currentLine = word
			currentWidth = wordWidth
			continue
		}
		currentLine += " " + word
		currentWidth += 1 + wordWidth
	}

	return append(lines, currentLine)
}

// PrintCapture prints one execution: summary, request line, headers and body.
func (p *ConsolePrinter) PrintCapture(label string, c request.Capture) error {
	if p.silence {
		return nil
	}
	num := nextCaptureNumber()
	width := p.getTerminalWidth()

	p.printSummary(num, label, c, width)
	p.printRequestLine(c)
	p.printRequestHeaders(c.RequestHeaders, width)
	fmt.Fprintln(p.out)
	p.printStatusLine(c)
	p.printHeaders(c.Headers, width)
	fmt.Fprintln(p.out)
	p.printBody(c)
	fmt.Fprintln(p.out)
	return nil
}

func (p *ConsolePrinter) printSummary(num uint64, label string, c request.Capture, width int) {
	separator := strings.Repeat("-", clampWidth(width))
	p.colorScheme.Separator.Fprintln(p.out, separator)
	title := fmt.Sprintf("Execution #%d", num)
	if label != "" {
		title += "  " + label
	}
	p.colorScheme.Separator.Fprintf(p.out, "%s  ", title)
	p.colorScheme.Timestamp.Fprintln(p.out, c.Timestamp.Format(time.RFC3339))
	p.printMetadataLine(c)
	p.colorScheme.Separator.Fprintln(p.out, separator)
	fmt.Fprintln(p.out)
}

func (p *ConsolePrinter) printMetadataLine(c request.Capture) {
	first := true
	addSep := func() {
		if first {
			first = false
			return
		}
		fmt.Fprint(p.out, " | ")
	}

	addSep()
	fmt.Fprint(p.out, "Outcome: ")
	if c.Failed() {
		p.colorScheme.StatusError.Fprint(p.out, string(c.Outcome))
	} else {
		p.colorScheme.StatusOK.Fprint(p.out, string(c.Outcome))
	}

	if ct := c.ContentType(); ct != "" {
		addSep()
		fmt.Fprint(p.out, "Content-Type: ")
		p.colorScheme.HeaderValue.Fprint(p.out, ct)
	}

	addSep()
	fmt.Fprint(p.out, "Size: ")
	p.colorScheme.BodyContent.Fprint(p.out, humanize.Bytes(uint64(len(c.Body))))

	addSep()
	fmt.Fprint(p.out, "Time: ")
	p.colorScheme.BodyContent.Fprint(p.out, (time.Duration(c.DurationMs) * time.Millisecond).String())
	fmt.Fprintln(p.out)

	if c.Error != "" {
		p.colorScheme.StatusError.Fprintf(p.out, "Error: %s\n", c.Error)
	}
}

func (p *ConsolePrinter) printRequestLine(c request.Capture) {
	if c.Method == "" && c.URL == "" {
		return
	}
	method := strings.ToUpper(c.Method)
	p.getMethodColor(method).Fprintf(p.out, "%s ", method)
	fmt.Fprintln(p.out, c.URL)
}

func (p *ConsolePrinter) printStatusLine(c request.Capture) {
	if c.StatusCode == 0 {
		return
	}
	clr := p.colorScheme.StatusOK
	if c.StatusCode >= 400 {
		clr = p.colorScheme.StatusError
	}
	clr.Fprintf(p.out, "HTTP %d %s\n", c.StatusCode, c.StatusText)
}

func (p *ConsolePrinter) printRequestHeaders(headers []request.Header, width int) {
	for _, h := range headers {
		value := h.Value
		if p.isSensitiveHeader(strings.ToLower(h.Name)) {
			value = "[REDACTED]"
		}
		p.printHeaderLine(h.Name, value, width)
	}
}

func (p *ConsolePrinter) printHeaders(headers http.Header, width int) {
	if len(headers) == 0 {
		return
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		if p.shouldSkipHeader(strings.ToLower(key)) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		displayValue := strings.Join(headers[key], ", ")
		if p.isSensitiveHeader(strings.ToLower(key)) {
			displayValue = "[REDACTED]"
		}
		p.printHeaderLine(key, displayValue, width)
	}
}

func (p *ConsolePrinter) printHeaderLine(key, value string, width int) {
	if width <= 0 {
		width = 80
	}

	prefix := key + ": "
	available := width - utf8.RuneCountInString(prefix)
	if available < 20 {
		available = 20
	}

	wrappedValues := p.wrapText(value, available)

	p.colorScheme.HeaderKey.Fprint(p.out, prefix)
	p.colorScheme.HeaderValue.Fprintln(p.out, wrappedValues[0])

	indent := strings.Repeat(" ", utf8.RuneCountInString(prefix))
	for _, line := range wrappedValues[1:] {
		fmt.Fprint(p.out, indent)
		p.colorScheme.HeaderValue.Fprintln(p.out, line)
	}
}

func (p *ConsolePrinter) printBody(c request.Capture) {
	body := []byte(c.Body)
	bodySize := humanize.Bytes(uint64(len(body)))

	if len(body) == 0 {
		p.colorScheme.BodyContent.Fprintf(p.out, "[Empty Body - %s]\n", bodySize)
		return
	}

	if c.IsBinary() {
		p.colorScheme.BinaryNotice.Fprintf(p.out, "[Binary Body: %s, %s. Content skipped.]\n", c.ContentType(), bodySize)
		return
	}

	truncated := false
	if limit := p.cfg.MaxPreviewBytes; limit > 0 && !p.cfg.FullBody && len(body) > limit {
		body = body[:limit]
		truncated = true
	}

	formatted := p.formatter.Format(c.ContentType(), body)
	text := formatted.Text
	if text == "" {
		text = string(body)
	}
	p.printBodyContent(text)

	for _, notice := range formatted.Notices {
		p.colorScheme.TruncateNotice.Fprintln(p.out, notice)
	}
	if truncated {
		p.colorScheme.TruncateNotice.Fprintf(p.out, "[Showing first %s of %s]\n",
			humanize.Bytes(uint64(len(body))), bodySize)
	}
}

func (p *ConsolePrinter) printBodyContent(content string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "" {
			fmt.Fprintln(p.out)
			continue
		}
		p.colorScheme.BodyContent.Fprintln(p.out, trimmed)
	}
}

// PrintDifferences prints a comparison result, one difference per line.
func (p *ConsolePrinter) PrintDifferences(title string, diffs []jsondiff.Difference) error {
	if title != "" {
		p.colorScheme.Separator.Fprintln(p.out, title)
	}
	if len(diffs) == 0 {
		p.colorScheme.Identical.Fprintln(p.out, jsondiff.Identical)
		return nil
	}
	for _, d := range diffs {
		p.colorScheme.Difference.Fprintf(p.out, "  - %s\n", d.String())
	}
	return nil
}

// PrintSummary draws a box with one label/value line per row.
func (p *ConsolePrinter) PrintSummary(title string, rows []SummaryRow) error {
	labelWidth, valueWidth := 0, 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.Label); w > labelWidth {
			labelWidth = w
		}
		if w := runewidth.StringWidth(r.Value); w > valueWidth {
			valueWidth = w
		}
	}
	inner := labelWidth + valueWidth + 3
	if w := runewidth.StringWidth(title); w > inner {
		valueWidth += w - inner
		inner = w
	}

	border := p.colorScheme.Separator
	border.Fprintln(p.out, "┌"+strings.Repeat("─", inner+2)+"┐")
	border.Fprint(p.out, "│ ")
	fmt.Fprint(p.out, runewidth.FillRight(title, inner))
	border.Fprintln(p.out, " │")
	border.Fprintln(p.out, "├"+strings.Repeat("─", labelWidth+2)+"┬"+strings.Repeat("─", valueWidth+2)+"┤")
	for _, r := range rows {
		border.Fprint(p.out, "│ ")
		p.colorScheme.HeaderKey.Fprint(p.out, runewidth.FillRight(r.Label, labelWidth))
		border.Fprint(p.out, " │ ")
		fmt.Fprint(p.out, runewidth.FillRight(r.Value, valueWidth))
		border.Fprintln(p.out, " │")
	}
	border.Fprintln(p.out, "└"+strings.Repeat("─", labelWidth+2)+"┴"+strings.Repeat("─", valueWidth+2)+"┘")
	return nil
}

// PrintValue prints v as indented JSON.
func (p *ConsolePrinter) PrintValue(_ string, v interface{}) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(p.out, s)
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

// getMethodColor gets the corresponding color based on HTTP method
func (p *ConsolePrinter) getMethodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return p.colorScheme.MethodGET
	case "POST":
		return p.colorScheme.MethodPOST
	case "PUT":
		return p.colorScheme.MethodPUT
	case "DELETE":
		return p.colorScheme.MethodDELETE
	case "PATCH":
		return p.colorScheme.MethodPATCH
	default:
		return color.New(color.FgWhite, color.Bold)
	}
}

// isSensitiveHeader checks if it's sensitive header information
func (p *ConsolePrinter) isSensitiveHeader(key string) bool {
	sensitiveHeaders := map[string]bool{
		"authorization":   true,
		"cookie":          true,
		"set-cookie":      true,
		"x-api-key":       true,
		"x-auth-token":    true,
		"x-csrf-token":    true,
		"x-session-token": true,
	}
	return sensitiveHeaders[key]
}

// shouldSkipHeader checks if header should be skipped from display
func (p *ConsolePrinter) shouldSkipHeader(key string) bool {
	skipHeaders := map[string]bool{
		"connection":        true,
		"keep-alive":        true,
		"proxy-connection":  true,
		"te":                true,
		"trailer":           true,
		"transfer-encoding": true,
		"upgrade":           true,
	}
	return skipHeaders[key]
}
