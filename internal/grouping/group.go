// Package grouping turns the flat OCR output listing into one group per
// source document and labels each output file by its naming suffix.
package grouping

import (
	"path"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"go-ocr-inventory/internal/model"
)

// DefaultSeparator splits "<document>_<artifact>.<ext>" file names.
const DefaultSeparator = "_"

type Options struct {
	Separator string
	Language  language.Tag
}

func (o Options) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

// Group partitions records into document groups using the default options.
func Group(records []model.RemoteFileRecord) []model.DocumentGroup {
	return GroupWith(records, Options{})
}

// GroupWith partitions records into document groups. Every record lands in
// exactly one group; groups keep the order in which their key was first seen
// and files inside a group are sorted by name. The input is not modified.
func GroupWith(records []model.RemoteFileRecord, opts Options) []model.DocumentGroup {
	sep := opts.separator()

	groups := make([]model.DocumentGroup, 0)
	index := make(map[string]int)
	for _, record := range records {
		key := KeyOf(record, sep)
		pos, exists := index[key]
		if !exists {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, model.DocumentGroup{Key: key})
		}
		groups[pos].Files = append(groups[pos].Files, record)
	}

	// Collators carry internal buffers and are not safe for concurrent use.
	collator := collate.New(opts.Language)
	for i := range groups {
		sortFiles(collator, groups[i].Files)
		groups[i].DisplayName = displayName(groups[i].Files[0], sep)
	}

	return groups
}

// KeyOf derives the grouping key of a record: its directory when the path
// has one, otherwise the first sep-delimited segment of the file name.
func KeyOf(record model.RemoteFileRecord, sep string) string {
	if sep == "" {
		sep = DefaultSeparator
	}

	cleaned := normalizePath(record.Path)
	if cleaned != "" {
		if dir := path.Dir(cleaned); dir != "." && dir != "/" {
			return dir
		}
	}

	return firstSegment(recordName(record), sep)
}

func sortFiles(collator *collate.Collator, files []model.RemoteFileRecord) {
	slices.SortStableFunc(files, func(a, b model.RemoteFileRecord) int {
		if c := collator.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
}

func displayName(record model.RemoteFileRecord, sep string) string {
	name := firstSegment(recordName(record), sep)
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}

func recordName(record model.RemoteFileRecord) string {
	if name := strings.TrimSpace(record.Name); name != "" {
		return name
	}

	cleaned := normalizePath(record.Path)
	if cleaned == "" {
		return ""
	}
	return path.Base(cleaned)
}

func firstSegment(name string, sep string) string {
	segment, _, _ := strings.Cut(name, sep)
	if segment == "" {
		return name
	}
	return segment
}

func normalizePath(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	cleaned = strings.TrimPrefix(cleaned, "./")
	cleaned = strings.TrimLeft(cleaned, "/")
	if cleaned == "" {
		return ""
	}
	return path.Clean(cleaned)
}
