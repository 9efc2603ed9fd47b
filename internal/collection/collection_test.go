package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shofin-islam/qahelper/pkg/request"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

const ordersCollection = `{
  "info": {"name": "Orders", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},
  "item": [
    {
      "name": "Orders",
      "item": [
        {
          "name": "Create",
          "event": [{"listen": "test"}],
          "request": {
            "method": "POST",
            "url": {"raw": "{{baseUrl}}/orders?dry=1", "host": ["{{baseUrl}}"]},
            "header": [
              {"key": "Accept", "value": "application/json"},
              {"key": "X-Debug", "value": "1", "disabled": true}
            ],
            "body": {"mode": "raw", "raw": "{\"sku\":\"A\"}", "options": {"raw": {"language": "json"}}}
          },
          "response": [
            {"name": "Created-happy", "status": "Created", "code": 201,
             "header": [{"key": "Content-Type", "value": "application/json"}], "body": "{\"id\":1}"},
            {"name": "Bad", "status": "Bad Request", "code": 400, "header": null, "body": "{}"}
          ]
        },
        {
          "name": "Nested",
          "item": [
            {"name": "List", "request": {"method": "get", "url": "{{baseUrl}}/orders"}}
          ]
        }
      ]
    },
    {"name": "Health", "request": "https://status.example.com/health"}
  ]
}`

const usersCollection = `{
  "info": {"name": "Users"},
  "item": [
    {"name": "List orders again", "request": {"method": "GET", "url": {"raw": "{{baseUrl}}/orders"}}},
    {"name": "Users", "request": {"method": "GET", "url": {"raw": "{{baseUrl}}/users"}}},
    {"name": "Empty folder", "item": []},
    {"name": "External", "request": {"method": "GET", "url": {"raw": "https://other.example.org/a"}}}
  ]
}`

func mustParse(t *testing.T, data string) *Collection {
	t.Helper()
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func TestFlattenWalksFolders(t *testing.T) {
	c := mustParse(t, ordersCollection)
	entries := Flatten("orders.json", c.Items)

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	create := entries[0]
	if create.FullPath != "Orders/Create" || create.ParentFolder != "Orders" || create.File != "orders.json" {
		t.Fatalf("unexpected create entry position: %+v", create)
	}
	wantReq := request.Descriptor{
		Method:       "POST",
		URL:          "{{baseUrl}}/orders?dry=1",
		Headers:      []request.Header{{Name: "Accept", Value: "application/json"}},
		Body:         `{"sku":"A"}`,
		BodyLanguage: "json",
	}
	if diff := cmp.Diff(wantReq, create.Request); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
	if len(create.Examples) != 2 || create.Examples[0].CodeText() != "201" {
		t.Fatalf("unexpected examples %+v", create.Examples)
	}
	if got := create.Examples[0].HeaderLine(); got != "Content-Type: application/json; " {
		t.Fatalf("unexpected header line %q", got)
	}

	list := entries[1]
	if list.FullPath != "Orders/Nested/List" || list.ParentFolder != "Nested" || list.Request.Method != "GET" {
		t.Fatalf("unexpected nested entry %+v", list)
	}

	health := entries[2]
	if health.FullPath != "Health" || health.ParentFolder != "" || health.Request.URL != "https://status.example.com/health" {
		t.Fatalf("unexpected root entry %+v", health)
	}
}

func TestFeatureName(t *testing.T) {
	patterns := []string{"{{baseUrl}}", "{{base_url}}"}
	if got := FeatureName("{{baseUrl}}/orders/1?expand=true", patterns); got != "/orders/1" {
		t.Fatalf("FeatureName = %q", got)
	}
	if got := FeatureName("https://x/a", nil); got != "https://x/a" {
		t.Fatalf("FeatureName without patterns = %q", got)
	}
}

func TestBodyLanguage(t *testing.T) {
	var b *Body
	if b.Language() != "" {
		t.Fatalf("nil body should have no language")
	}
	if (&Body{Mode: "raw"}).Language() != "" {
		t.Fatalf("body without options is unspecified")
	}
	withoutRaw := &Body{Mode: "raw", Options: &BodyOptions{}}
	if d := (request.Descriptor{BodyLanguage: withoutRaw.Language()}); d.IsJSONBody() {
		t.Fatalf("options without raw language must not count as JSON")
	}
}

func docs(t *testing.T) []Document {
	return []Document{
		{File: "orders.json", Collection: mustParse(t, ordersCollection)},
		{File: "users.json", Collection: mustParse(t, usersCollection)},
	}
}

func TestMergeFolders(t *testing.T) {
	merged, stats := Merge(docs(t), MergeOptions{Mode: MergeFolders}, noopLogger{})

	want := MergeStats{Processed: 6, Added: 5, Skipped: 1, Folders: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if merged.Info.Name != "Merged API Collection" || merged.Info.Schema != SchemaV21 || merged.Info.PostmanID == "" {
		t.Fatalf("unexpected info %+v", merged.Info)
	}

	var names []string
	for _, it := range merged.Items {
		names = append(names, it.Name)
	}
	if diff := cmp.Diff([]string{"Orders", "Health", "Users", "External"}, names); diff != "" {
		t.Fatalf("top-level items mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeUniqueSorted(t *testing.T) {
	merged, stats := Merge(docs(t), MergeOptions{Mode: MergeUnique}, noopLogger{})
	if stats.Processed != 6 || stats.Added != 5 || stats.Skipped != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var urls []string
	for _, it := range merged.Items {
		if it.IsFolder() {
			t.Fatalf("unique merge must not contain folders")
		}
		urls = append(urls, it.Request.URL.Raw)
	}
	want := []string{
		"https://other.example.org/a",
		"https://status.example.com/health",
		"{{baseUrl}}/orders",
		"{{baseUrl}}/orders?dry=1",
		"{{baseUrl}}/users",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Fatalf("sorted urls mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFiltered(t *testing.T) {
	merged, stats := Merge(docs(t), MergeOptions{Mode: MergeFiltered, FilterDomains: []string{"{{baseUrl}}"}}, noopLogger{})

	want := MergeStats{Processed: 6, MatchingFilter: 4, Added: 3, Skipped: 1, Folders: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if merged.Info.Name != "Filtered Merged API Collection" {
		t.Fatalf("unexpected name %q", merged.Info.Name)
	}
	for _, it := range merged.Items {
		if it.Name == "Health" || it.Name == "External" {
			t.Fatalf("non-matching request %q kept", it.Name)
		}
	}
}

func TestMergedCollectionKeepsUnknownFields(t *testing.T) {
	merged, _ := Merge(docs(t)[:1], MergeOptions{}, noopLogger{})
	data, err := json.Marshal(merged)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"event"`) || !strings.Contains(string(data), `"host"`) {
		t.Fatalf("unknown fields dropped: %s", data)
	}

	again := mustParse(t, string(data))
	if got := len(Flatten("x", again.Items)); got != 3 {
		t.Fatalf("re-read merged collection has %d entries", got)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.json":      usersCollection,
		"a.json":      ordersCollection,
		"broken.json": "{",
		"notes.txt":   "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	docs, failed, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 || docs[0].File != "a.json" || docs[1].File != "b.json" {
		t.Fatalf("unexpected documents %+v", docs)
	}
	if len(failed) != 1 || failed[0].File != "broken.json" {
		t.Fatalf("expected broken.json failure, got %+v", failed)
	}

	if _, _, err := LoadDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestWriteCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "merged.json")
	c := &Collection{Info: Info{Name: "x", Schema: SchemaV21}, Items: []Item{
		{Name: "r", Request: &Request{Method: "GET", URL: URL{Raw: "https://x"}}},
	}}
	if err := Write(path, c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	read, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(read.Items) != 1 || read.Items[0].Request.URL.Raw != "https://x" {
		t.Fatalf("unexpected collection %+v", read)
	}
}
