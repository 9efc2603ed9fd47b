package batch

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shofin-islam/qahelper/internal/collection"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/internal/sheet"
)

// MergeOutputPath is <outDir>/<Prefix>_<timestamp>/<prefix>.json for the mode.
func MergeOutputPath(outDir string, mode collection.MergeMode, t time.Time) string {
	var prefix string
	switch mode {
	case collection.MergeUnique:
		prefix = "Unique_Sorted_Collection"
	case collection.MergeFiltered:
		prefix = "Filtered_Merged_Collection"
	default:
		prefix = "Merged_Collection"
	}
	return filepath.Join(outDir, prefix+"_"+t.Format(TimestampLayout), strings.ToLower(prefix)+".json")
}

// MergeToDir merges the documents and writes the result below outDir. It
// returns the written path.
func MergeToDir(docs []collection.Document, opts collection.MergeOptions, outDir string, now time.Time, log logger.Logger) (string, collection.MergeStats, error) {
	merged, stats := collection.Merge(docs, opts, log)
	mode := opts.Mode
	if mode == "" {
		mode = collection.MergeFolders
	}
	path := MergeOutputPath(outDir, mode, now)
	if err := collection.Write(path, merged); err != nil {
		return "", stats, err
	}
	log.Info("Merged collection saved", "path", path, "added", stats.Added, "skipped", stats.Skipped)
	return path, stats, nil
}

// ConcatOutput names the files written by ConcatToFiles.
type ConcatOutput struct {
	Merged     string
	Duplicates string
}

// ConcatToFiles concatenates the sources and writes the merged table and, when
// sheet names repeat, the duplicate report. An empty duplicatesPath derives
// one from mergedPath.
func ConcatToFiles(sources []sheet.Source, opts sheet.ConcatOptions, mergedPath, duplicatesPath string, log logger.Logger) (ConcatOutput, sheet.ConcatStats, error) {
	var out ConcatOutput
	res := sheet.Concat(sources, opts)

	if err := sheet.WriteFile(mergedPath, res.Merged, ""); err != nil {
		return out, res.Stats, fmt.Errorf("write merged sheet: %w", err)
	}
	out.Merged = mergedPath
	log.Info("Merged data written", "path", mergedPath, "rows", res.Stats.Rows)

	if res.Duplicates == nil {
		return out, res.Stats, nil
	}
	if duplicatesPath == "" {
		ext := filepath.Ext(mergedPath)
		duplicatesPath = strings.TrimSuffix(mergedPath, ext) + "_duplicate_sheets" + ext
	}
	if err := sheet.WriteFile(duplicatesPath, res.Duplicates, ""); err != nil {
		return out, res.Stats, fmt.Errorf("write duplicate report: %w", err)
	}
	out.Duplicates = duplicatesPath
	log.Warn("Duplicate sheet names found", "path", duplicatesPath, "count", res.Stats.Duplicates)
	return out, res.Stats, nil
}
