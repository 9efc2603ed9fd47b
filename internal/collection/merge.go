package collection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/request"
)

// MergeMode selects how collections are combined.
type MergeMode string

const (
	// MergeFolders keeps the folder tree and drops duplicate requests.
	MergeFolders MergeMode = "folders"
	// MergeUnique flattens all requests, drops duplicates and sorts by URL.
	MergeUnique MergeMode = "unique"
	// MergeFiltered is MergeFolders restricted to URLs matching a filter.
	MergeFiltered MergeMode = "filtered"
)

// ParseMergeMode validates a mode name.
func ParseMergeMode(s string) (MergeMode, error) {
	switch m := MergeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case MergeFolders, MergeUnique, MergeFiltered:
		return m, nil
	case "":
		return MergeFolders, nil
	default:
		return "", fmt.Errorf("unknown merge mode %q (want folders, unique or filtered)", s)
	}
}

// DefaultName returns the collection name used for a mode.
func (m MergeMode) DefaultName() string {
	switch m {
	case MergeUnique:
		return "Unique Sorted API Collection"
	case MergeFiltered:
		return "Filtered Merged API Collection"
	default:
		return "Merged API Collection"
	}
}

// MergeOptions merge parameters
type MergeOptions struct {
	Mode          MergeMode
	Name          string
	FilterDomains []string
}

// MergeStats counts what happened during a merge.
type MergeStats struct {
	Processed      int
	MatchingFilter int
	Added          int
	Skipped        int
	NoURL          int
	Folders        int
}

// Merge combines the documents into one collection.
func Merge(docs []Document, opts MergeOptions, log logger.Logger) (*Collection, MergeStats) {
	if opts.Mode == "" {
		opts.Mode = MergeFolders
	}
	if opts.Name == "" {
		opts.Name = opts.Mode.DefaultName()
	}

	m := &merger{
		opts:   opts,
		seen:   make(map[string]struct{}),
		logger: log,
	}

	var items []Item
	for _, doc := range docs {
		log.Debug("Merging collection", "file", doc.File, "mode", string(opts.Mode))
		if opts.Mode == MergeUnique {
			items = append(items, m.flatten(doc.Collection.Items)...)
			continue
		}
		for _, it := range doc.Collection.Items {
			if kept, ok := m.item(it, ""); ok {
				items = append(items, kept)
			}
		}
	}

	if opts.Mode == MergeUnique {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Request.URL.Raw < items[j].Request.URL.Raw
		})
	}

	return &Collection{
		Info: Info{
			PostmanID: uuid.NewString(),
			Name:      opts.Name,
			Schema:    SchemaV21,
		},
		Items: items,
	}, m.stats
}

type merger struct {
	opts   MergeOptions
	seen   map[string]struct{}
	stats  MergeStats
	logger logger.Logger
}

// item returns the item to keep, if any. Folders are kept only when at least
// one descendant survives.
func (m *merger) item(it Item, folderPath string) (Item, bool) {
	if it.IsFolder() {
		path := folderPath + "/" + it.Name
		var children []Item
		for _, child := range it.Items {
			if kept, ok := m.item(child, path); ok {
				children = append(children, kept)
			}
		}
		if len(children) == 0 {
			return Item{}, false
		}
		m.stats.Folders++
		m.logger.Debug("Added folder", "folder", path)
		return it.WithItems(children), true
	}
	if it.Request == nil {
		return Item{}, false
	}
	return it, m.accept(it.Request)
}

func (m *merger) flatten(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.IsFolder() {
			out = append(out, m.flatten(it.Items)...)
			continue
		}
		if it.Request != nil && m.accept(it.Request) {
			out = append(out, it)
		}
	}
	return out
}

// accept records r in the stats and reports whether it is new.
func (m *merger) accept(r *Request) bool {
	m.stats.Processed++
	method := request.NormalizeMethod(r.Method)
	url := r.URL.Raw
	if url == "" {
		m.stats.NoURL++
		m.logger.Debug("Skipped request without URL", "method", method)
		return false
	}

	if m.opts.Mode == MergeFiltered {
		if !matchesFilter(url, m.opts.FilterDomains) {
			m.logger.Debug("Skipped request not matching filter", "method", method, "url", url)
			return false
		}
		m.stats.MatchingFilter++
	}

	key := RequestKey(method, url)
	if _, dup := m.seen[key]; dup {
		m.stats.Skipped++
		m.logger.Debug("Skipped duplicate request", "method", method, "url", url)
		return false
	}
	m.seen[key] = struct{}{}
	m.stats.Added++
	m.logger.Debug("Added request", "method", method, "url", url)
	return true
}

func matchesFilter(url string, domains []string) bool {
	for _, d := range domains {
		if d != "" && strings.Contains(url, d) {
			return true
		}
	}
	return false
}
