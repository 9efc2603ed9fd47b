package curl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kballard/go-shellquote"
	"github.com/shofin-islam/qahelper/pkg/request"
)

var (
	// ErrInvalidFormat is returned for text that is not a cURL command.
	ErrInvalidFormat = errors.New("invalid cURL request")
	// ErrMissingURL is returned when no http(s) URL argument is present.
	ErrMissingURL = fmt.Errorf("%w: no http(s) URL found", ErrInvalidFormat)
)

// flags whose argument is consumed and ignored
var ignoredValueFlags = map[string]struct{}{
	"-o": {}, "--output": {},
	"-m": {}, "--max-time": {},
	"--connect-timeout": {},
	"-x": {}, "--proxy": {},
	"-w": {}, "--write-out": {},
	"--retry": {}, "--max-redirs": {},
	"-F": {}, "--form": {},
	"-E": {}, "--cert": {}, "--key": {}, "--cacert": {},
	"-T": {}, "--upload-file": {},
	"-r": {}, "--range": {},
	"-K": {}, "--config": {},
	"-c": {}, "--cookie-jar": {},
	"--resolve": {}, "--limit-rate": {},
}

var dataFlags = map[string]struct{}{
	"-d": {}, "--data": {}, "--data-raw": {}, "--data-binary": {},
	"--data-ascii": {}, "--data-urlencode": {},
}

var continuationReplacer = strings.NewReplacer("\\\r\n", " ", "\\\n", " ", "\r\n", "\n")

// IsCurl reports whether text starts with the curl token.
func IsCurl(text string) bool {
	t := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(t, "curl") {
		return false
	}
	rest := t[len("curl"):]
	return rest == "" || unicode.IsSpace(rune(rest[0]))
}

// Parse extracts a request descriptor from cURL command text.
//
// The text is tokenised with POSIX shell rules; when the quoting is broken the
// parser falls back to a pattern scan of single-quoted arguments.
func Parse(text string) (request.Descriptor, error) {
	if !IsCurl(text) {
		return request.Descriptor{}, fmt.Errorf("%w: command must start with curl", ErrInvalidFormat)
	}

	normalized := expandANSIQuotes(continuationReplacer.Replace(strings.TrimSpace(text)))
	words, err := shellquote.Split(normalized)

	var p parsed
	if err != nil {
		p = scanPatterns(text)
	} else {
		p = scanWords(words[1:])
	}
	return p.descriptor()
}

// expandANSIQuotes rewrites bash $'...' words as plain single-quoted words
// with their escapes decoded, since shellquote only knows POSIX quoting.
// Text with an unterminated $' is returned unchanged.
func expandANSIQuotes(s string) string {
	if !strings.Contains(s, "$'") {
		return s
	}
	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			}
		case quote == '"':
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(c)
				i++
				c = s[i]
			} else if c == '"' {
				quote = 0
			}
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			i++
			c = s[i]
		case c == '\'' || c == '"':
			quote = c
		case c == '$' && i+1 < len(s) && s[i+1] == '\'':
			decoded, end, ok := decodeANSIQuoted(s, i+2)
			if !ok {
				return s
			}
			b.WriteString("'" + strings.ReplaceAll(decoded, "'", `'\''`) + "'")
			i = end
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// decodeANSIQuoted decodes from start up to the closing quote and returns the
// index of that quote.
func decodeANSIQuoted(s string, start int) (string, int, bool) {
	var b strings.Builder
	for i := start; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			return b.String(), i, true
		}
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'e', 'E':
			b.WriteByte(0x1b)
		case 'x', 'u', 'U':
			width := 2
			if e == 'u' {
				width = 4
			} else if e == 'U' {
				width = 8
			}
			j := i + 1
			for j < len(s) && j < i+1+width && isHexDigit(s[j]) {
				j++
			}
			if j == i+1 {
				b.WriteByte('\\')
				b.WriteByte(e)
				continue
			}
			n, _ := strconv.ParseUint(s[i+1:j], 16, 32)
			if e == 'x' {
				b.WriteByte(byte(n))
			} else {
				b.WriteRune(rune(n))
			}
			i = j - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 16)
			b.WriteByte(byte(n))
			i = j - 1
		default:
			// \\, \', \" and \? stand for the character itself
			if e != '\\' && e != '\'' && e != '"' && e != '?' {
				b.WriteByte('\\')
			}
			b.WriteByte(e)
		}
	}
	return "", 0, false
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

type parsed struct {
	method   string
	url      string
	headers  []request.Header
	data     []string
	hasData  bool
	forceGet bool
}

func (p *parsed) addHeader(line string) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return
	}
	name := strings.TrimSpace(line[:idx])
	if name == "" {
		return
	}
	p.headers = append(p.headers, request.Header{Name: name, Value: strings.TrimSpace(line[idx+1:])})
}

func (p *parsed) addData(v string) {
	p.data = append(p.data, v)
	p.hasData = true
}

func (p *parsed) hasHeader(name string) bool {
	for _, h := range p.headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

func (p parsed) descriptor() (request.Descriptor, error) {
	if p.url == "" {
		return request.Descriptor{}, ErrMissingURL
	}

	desc := request.Descriptor{
		URL:     p.url,
		Headers: p.headers,
	}
	body := strings.Join(p.data, "&")

	switch {
	case p.forceGet:
		desc.Method = request.MethodGet
		if body != "" {
			sep := "?"
			if strings.Contains(desc.URL, "?") {
				sep = "&"
			}
			desc.URL += sep + body
		}
		return desc, nil
	case p.method != "":
		desc.Method = request.NormalizeMethod(p.method)
	case p.hasData:
		desc.Method = request.MethodPost
	default:
		desc.Method = request.MethodGet
	}

	desc.Body = body
	if ct, ok := desc.Header("Content-Type"); ok && !strings.Contains(strings.ToLower(ct), "json") {
		desc.BodyLanguage = "text"
	}
	return desc, nil
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func scanWords(words []string) parsed {
	var p parsed
	for i := 0; i < len(words); i++ {
		w := words[i]
		next := func() (string, bool) {
			if i+1 < len(words) {
				i++
				return words[i], true
			}
			return "", false
		}

		switch {
		case w == "-X" || w == "--request":
			if v, ok := next(); ok {
				p.method = v
			}
		case strings.HasPrefix(w, "--request="):
			p.method = strings.TrimPrefix(w, "--request=")
		case strings.HasPrefix(w, "-X") && len(w) > 2:
			p.method = w[2:]
		case w == "-H" || w == "--header":
			if v, ok := next(); ok {
				p.addHeader(v)
			}
		case w == "--json":
			if v, ok := next(); ok {
				p.addData(v)
				if !p.hasHeader("Content-Type") {
					p.headers = append(p.headers, request.Header{Name: "Content-Type", Value: jsonContentType})
				}
			}
		case isDataFlag(w):
			if v, ok := next(); ok {
				p.addData(v)
			}
		case w == "--url":
			if v, ok := next(); ok && p.url == "" {
				p.url = v
			}
		case w == "-u" || w == "--user":
			if v, ok := next(); ok {
				p.headers = append(p.headers, request.Header{
					Name:  "Authorization",
					Value: "Basic " + base64.StdEncoding.EncodeToString([]byte(v)),
				})
			}
		case w == "-A" || w == "--user-agent":
			if v, ok := next(); ok {
				p.headers = append(p.headers, request.Header{Name: "User-Agent", Value: v})
			}
		case w == "-b" || w == "--cookie":
			if v, ok := next(); ok {
				p.headers = append(p.headers, request.Header{Name: "Cookie", Value: v})
			}
		case w == "-e" || w == "--referer":
			if v, ok := next(); ok {
				p.headers = append(p.headers, request.Header{Name: "Referer", Value: v})
			}
		case w == "-G" || w == "--get":
			p.forceGet = true
		case isIgnoredValueFlag(w):
			next()
		case strings.HasPrefix(w, "-"):
			// boolean flag such as --location, -k, --compressed
		default:
			if p.url == "" && hasHTTPScheme(w) {
				p.url = w
			}
		}
	}
	return p
}

func isDataFlag(w string) bool {
	_, ok := dataFlags[w]
	return ok
}

func isIgnoredValueFlag(w string) bool {
	_, ok := ignoredValueFlags[w]
	return ok
}

var (
	urlPattern    = regexp.MustCompile(`['"]?(https?://[^\s'"]+)`)
	methodPattern = regexp.MustCompile(`(?:--request|-X)\s+['"]?([A-Za-z]+)`)
	headerPattern = regexp.MustCompile(`(?s)(?:--header|-H)\s+'([^':]+):\s*([^']*)'`)
	dataPattern   = regexp.MustCompile(`(?s)(?:--data-raw|--data-binary|--data|-d)\s+'(.+?)'`)
)

// scanPatterns extracts the request from text whose shell quoting is broken.
func scanPatterns(text string) parsed {
	var p parsed
	if m := urlPattern.FindStringSubmatch(text); m != nil {
		p.url = m[1]
	}
	if m := methodPattern.FindStringSubmatch(text); m != nil {
		p.method = m[1]
	}
	for _, m := range headerPattern.FindAllStringSubmatch(text, -1) {
		p.headers = append(p.headers, request.Header{Name: strings.TrimSpace(m[1]), Value: strings.TrimSpace(m[2])})
	}
	if m := dataPattern.FindStringSubmatch(text); m != nil {
		p.addData(m[1])
	}
	return p
}
