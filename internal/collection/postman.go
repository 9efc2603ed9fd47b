// Package collection reads Postman v2.1 collections, flattens them into
// request entries and merges several collections into one.
package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SchemaV21 is the schema URL of Postman collection format v2.1.
const SchemaV21 = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a Postman collection document.
type Collection struct {
	Info      Info       `json:"info"`
	Items     []Item     `json:"item"`
	Variables []KeyValue `json:"variable,omitempty"`
}

// Info collection metadata
type Info struct {
	PostmanID string `json:"_postman_id,omitempty"`
	Name      string `json:"name"`
	Schema    string `json:"schema,omitempty"`
}

// Item is a folder (has Items) or a request leaf (has Request). The raw JSON is
// kept so that re-encoding preserves fields this package does not model.
type Item struct {
	Name      string          `json:"name"`
	Items     []Item          `json:"item,omitempty"`
	Request   *Request        `json:"request,omitempty"`
	Responses []SavedResponse `json:"response,omitempty"`

	folder bool
	raw    json.RawMessage
}

type itemAlias Item

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	var alias itemAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*it = Item(alias)
	_, it.folder = probe["item"]
	it.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON implements json.Marshaler. Folders are re-encoded with their
// current children; leaves are emitted as read.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.raw) == 0 {
		return json.Marshal(itemAlias(it))
	}
	if !it.IsFolder() {
		return it.raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(it.raw, &fields); err != nil {
		return nil, err
	}
	children := it.Items
	if children == nil {
		children = []Item{}
	}
	encoded, err := json.Marshal(children)
	if err != nil {
		return nil, err
	}
	fields["item"] = encoded
	return json.Marshal(fields)
}

// IsFolder reports whether the item groups other items.
func (it Item) IsFolder() bool {
	return it.folder || len(it.Items) > 0
}

// WithItems returns a copy of the folder holding items.
func (it Item) WithItems(items []Item) Item {
	it.Items = items
	it.folder = true
	return it
}

// Request is a Postman request definition.
type Request struct {
	Method string     `json:"method"`
	URL    URL        `json:"url"`
	Header []KeyValue `json:"header,omitempty"`
	Body   *Body      `json:"body,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. A bare string is a GET of that URL.
func (r *Request) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*r = Request{Method: "GET", URL: URL{Raw: s}}
		return nil
	}
	type requestAlias Request
	var alias requestAlias
	if err := json.Unmarshal(trimmed, &alias); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	*r = Request(alias)
	return nil
}

// URL accepts both the string and the object form.
type URL struct {
	Raw   string     `json:"raw"`
	Query []KeyValue `json:"query,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *URL) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*u = URL{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*u = URL{Raw: s}
		return nil
	}
	type urlAlias URL
	var alias urlAlias
	if err := json.Unmarshal(trimmed, &alias); err != nil {
		return fmt.Errorf("decode url: %w", err)
	}
	*u = URL(alias)
	return nil
}

// KeyValue is a header, query parameter or variable entry.
type KeyValue struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Body is a request body definition.
type Body struct {
	Mode    string       `json:"mode"`
	Raw     string       `json:"raw,omitempty"`
	Options *BodyOptions `json:"options,omitempty"`
}

// BodyOptions body options
type BodyOptions struct {
	Raw *RawOptions `json:"raw,omitempty"`
}

// RawOptions raw body options
type RawOptions struct {
	Language string `json:"language,omitempty"`
}

// Language returns the declared raw language. Empty means unspecified.
func (b *Body) Language() string {
	if b == nil || b.Options == nil {
		return ""
	}
	if b.Options.Raw == nil {
		return "none"
	}
	return b.Options.Raw.Language
}

// SavedResponse is an example response stored with a request.
type SavedResponse struct {
	Name   string     `json:"name"`
	Status string     `json:"status"`
	Code   int        `json:"code"`
	Header []KeyValue `json:"header"`
	Body   string     `json:"body"`
}

// Document is a collection read from a file.
type Document struct {
	File       string
	Collection *Collection
}

// FileError records a file that could not be read.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Parse decodes a collection document.
func Parse(data []byte) (*Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return &c, nil
}

// LoadFile reads one collection file.
func LoadFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	return Parse(data)
}

// LoadDir reads every *.json file in dir, sorted by name. Files that cannot be
// read are reported and skipped.
func LoadDir(dir string) ([]Document, []FileError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read collection dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var docs []Document
	var failed []FileError
	for _, name := range names {
		c, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			failed = append(failed, FileError{File: name, Err: err})
			continue
		}
		docs = append(docs, Document{File: name, Collection: c})
	}
	return docs, failed, nil
}

// Write encodes the collection as indented JSON.
func Write(path string, c *Collection) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}
