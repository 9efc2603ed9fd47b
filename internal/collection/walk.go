package collection

import (
	"strconv"
	"strings"

	"github.com/shofin-islam/qahelper/pkg/request"
)

// Entry is one request of a collection with its position in the folder tree.
type Entry struct {
	File         string
	FullPath     string
	ParentFolder string
	Name         string
	Request      request.Descriptor
	Examples     []Example
}

// Example is a saved response of a request.
type Example struct {
	Name    string
	Status  string
	Code    int
	Headers []request.Header
	Body    string
}

// CodeText renders the status code, or "" when none was saved.
func (e Example) CodeText() string {
	if e.Code == 0 {
		return ""
	}
	return strconv.Itoa(e.Code)
}

// HeaderLine renders headers as "k: v; " pairs in saved order.
func (e Example) HeaderLine() string {
	var b strings.Builder
	for _, h := range e.Headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("; ")
	}
	return b.String()
}

// Flatten walks items depth-first and returns one entry per request.
// Folder names are accumulated into FullPath ("Folder/Sub/Request").
func Flatten(file string, items []Item) []Entry {
	var out []Entry
	walk(file, items, "", "", &out)
	return out
}

// FlattenAll flattens every document in order.
func FlattenAll(docs []Document) []Entry {
	var out []Entry
	for _, doc := range docs {
		out = append(out, Flatten(doc.File, doc.Collection.Items)...)
	}
	return out
}

func walk(file string, items []Item, parentPath, parentFolder string, out *[]Entry) {
	for _, it := range items {
		if it.Request == nil {
			walk(file, it.Items, parentPath+it.Name+"/", it.Name, out)
			continue
		}
		*out = append(*out, Entry{
			File:         file,
			FullPath:     parentPath + it.Name,
			ParentFolder: parentFolder,
			Name:         it.Name,
			Request:      Descriptor(it.Request),
			Examples:     examples(it.Responses),
		})
	}
}

// Descriptor converts a Postman request. Disabled headers are dropped and only
// raw bodies are carried.
func Descriptor(r *Request) request.Descriptor {
	desc := request.Descriptor{
		Method: request.NormalizeMethod(r.Method),
		URL:    r.URL.Raw,
	}
	for _, h := range r.Header {
		if h.Disabled {
			continue
		}
		desc.Headers = append(desc.Headers, request.Header{Name: h.Key, Value: h.Value})
	}
	if r.Body != nil && r.Body.Mode == "raw" {
		desc.Body = r.Body.Raw
		desc.BodyLanguage = r.Body.Language()
	}
	return desc
}

func examples(responses []SavedResponse) []Example {
	if len(responses) == 0 {
		return nil
	}
	out := make([]Example, 0, len(responses))
	for _, r := range responses {
		ex := Example{Name: r.Name, Status: r.Status, Code: r.Code, Body: r.Body}
		for _, h := range r.Header {
			ex.Headers = append(ex.Headers, request.Header{Name: h.Key, Value: h.Value})
		}
		out = append(out, ex)
	}
	return out
}

// StripQuery returns url without its query string.
func StripQuery(url string) string {
	if idx := strings.Index(url, "?"); idx > 0 {
		return url[:idx]
	}
	return url
}

// FeatureName is the URL without query string and without any of the given
// base-URL patterns.
func FeatureName(url string, stripPatterns []string) string {
	feature := StripQuery(url)
	for _, p := range stripPatterns {
		if p == "" {
			continue
		}
		feature = strings.ReplaceAll(feature, p, "")
	}
	return feature
}

// RequestKey identifies a request for de-duplication.
func RequestKey(method, rawURL string) string {
	return method + "_" + rawURL
}
